package filter

import (
	"context"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/solobox/internal/domain/track"
)

// Chain runs filters in the order they were added. The first rejection wins.
type Chain struct {
	filters []Filter
}

// NewChain returns a chain holding filters.
func NewChain(filters ...Filter) *Chain {
	return &Chain{filters: append([]Filter(nil), filters...)}
}

// Add appends f to the end of the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute checks req against every filter. A rejection carries the name of
// the filter that produced it; later filters are not consulted.
func (c *Chain) Execute(ctx context.Context, req TrackRequest, t track.Track) Result {
	for _, f := range c.filters {
		if result := f.Check(ctx, req, t); !result.Accepted {
			result.Filter = f.Name()
			zlog.Debug().Msgf("filter: %s rejected track=%s code=%s", f.Name(), req.TrackID, result.Code)
			return result
		}
	}
	return Accept()
}

// Filters returns the filters in execution order.
func (c *Chain) Filters() []Filter {
	return c.filters
}

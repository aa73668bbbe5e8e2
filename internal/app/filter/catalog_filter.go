package filter

import (
	"context"

	"github.com/osa030/solobox/internal/domain/track"
)

// CodeTrackNotFound is returned for ids the catalog does not know.
const CodeTrackNotFound = "track_not_found"

// TrackLookup resolves a track id against the catalog.
type TrackLookup interface {
	Lookup(id string) (track.Track, bool)
}

// CatalogFilter rejects requests for tracks that are not in the catalog.
// It is always the first filter of the chain.
type CatalogFilter struct {
	lookup TrackLookup
}

// NewCatalogFilter creates a new catalog filter.
func NewCatalogFilter(lookup TrackLookup) *CatalogFilter {
	return &CatalogFilter{lookup: lookup}
}

func (f *CatalogFilter) Name() string {
	return "catalog_filter"
}

func (f *CatalogFilter) Description() string {
	return "Rejects tracks that are not in the catalog"
}

func (f *CatalogFilter) ReturnCodes() []string {
	return []string{CodeTrackNotFound}
}

func (f *CatalogFilter) ValidateConfig(map[string]any) error {
	return nil
}

func (f *CatalogFilter) Check(_ context.Context, req TrackRequest, _ track.Track) Result {
	if req.TrackID == "" {
		return Reject(CodeTrackNotFound)
	}
	if _, ok := f.lookup.Lookup(req.TrackID); !ok {
		return Reject(CodeTrackNotFound)
	}
	return Accept()
}

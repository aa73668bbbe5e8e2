// Package filter decides whether a track may join the queue.
//
// Every enqueue passes through a Chain. The catalog filter always runs first;
// the others are opt-in and enabled by name from the filters section of the
// server config.
package filter

import (
	"context"

	"github.com/osa030/solobox/internal/domain/track"
)

// TrackRequest is one enqueue attempt.
type TrackRequest struct {
	TrackID string
}

// Result is the verdict of a filter or of a whole chain.
type Result struct {
	Accepted bool
	Code     string // Machine readable reason, empty when accepted
	Filter   string // Name of the rejecting filter, set by Chain
}

// Accept lets the request through.
func Accept() Result {
	return Result{Accepted: true}
}

// Reject refuses the request with code.
func Reject(code string) Result {
	return Result{Code: code}
}

// Filter is one enqueue rule.
type Filter interface {
	// Name is the key of the filter in the config file.
	Name() string
	Description() string
	// ReturnCodes lists every code Check may reject with.
	ReturnCodes() []string
	// ValidateConfig decodes and checks settings, then keeps them.
	ValidateConfig(settings map[string]any) error
	// Check judges req. t is the zero Track for ids the catalog lacks.
	Check(ctx context.Context, req TrackRequest, t track.Track) Result
}

var registry = map[string]func() Filter{}

// Register makes a filter available to the config under name.
// Filters call it from init.
func Register(name string, factory func() Filter) {
	registry[name] = factory
}

// GetRegistered returns the factories of all config-enabled filters.
func GetRegistered() map[string]func() Filter {
	return registry
}

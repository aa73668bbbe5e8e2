package filter

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/solobox/internal/domain/track"
)

// CodeDurationLimitExceeded is returned for tracks outside the limits.
const CodeDurationLimitExceeded = "duration_limit_exceeded"

// DurationLimitConfig holds the bounds of DurationLimitFilter in minutes.
// A zero MaxMinutes leaves the upper bound open.
type DurationLimitConfig struct {
	MinMinutes float64 `yaml:"min_minutes" mapstructure:"min_minutes" default:"1" validate:"gte=1"`
	MaxMinutes float64 `yaml:"max_minutes" mapstructure:"max_minutes" validate:"gte=0"`
}

func (c DurationLimitConfig) bounds() (lower, upper time.Duration) {
	lower = time.Duration(c.MinMinutes * float64(time.Minute))
	upper = time.Duration(c.MaxMinutes * float64(time.Minute))
	return lower, upper
}

// DurationLimitFilter keeps tracks that are too short or too long out of the
// queue. Tracks whose length could not be read carry a fallback duration and
// are always let through.
type DurationLimitFilter struct {
	config *DurationLimitConfig
}

// NewDurationLimitFilter returns an unconfigured filter, which accepts
// everything.
func NewDurationLimitFilter() *DurationLimitFilter {
	return &DurationLimitFilter{}
}

func (f *DurationLimitFilter) Name() string {
	return "duration_limit_filter"
}

func (f *DurationLimitFilter) Description() string {
	return "Rejects tracks shorter or longer than the configured minutes; tracks of unknown length pass"
}

func (f *DurationLimitFilter) ReturnCodes() []string {
	return []string{CodeDurationLimitExceeded}
}

func (f *DurationLimitFilter) ValidateConfig(settings map[string]any) error {
	var config DurationLimitConfig

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &config,
		TagName: "mapstructure",
	})
	if err != nil {
		return errors.Wrap(err, "duration limit: build decoder")
	}
	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "duration limit: decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return errors.Wrap(err, "duration limit: apply defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return errors.Wrap(err, "duration limit: invalid settings")
	}

	if config.MaxMinutes > 0 && config.MinMinutes > config.MaxMinutes {
		return errors.Newf("duration limit: min_minutes %.1f exceeds max_minutes %.1f",
			config.MinMinutes, config.MaxMinutes)
	}

	f.config = &config
	zlog.Info().Msgf("filter: duration limit min=%.1fm max=%.1fm", config.MinMinutes, config.MaxMinutes)
	return nil
}

func (f *DurationLimitFilter) Check(_ context.Context, req TrackRequest, t track.Track) Result {
	if f.config == nil {
		return Accept()
	}
	if t.DurationUnknown {
		zlog.Debug().Msgf("filter: duration unknown, limit skipped track=%s", req.TrackID)
		return Accept()
	}

	lower, upper := f.config.bounds()
	switch {
	case t.Duration < lower:
		return Reject(CodeDurationLimitExceeded)
	case upper > 0 && t.Duration > upper:
		return Reject(CodeDurationLimitExceeded)
	}
	return Accept()
}

func init() {
	Register("duration_limit_filter", func() Filter {
		return NewDurationLimitFilter()
	})
}

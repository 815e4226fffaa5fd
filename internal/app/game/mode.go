package game

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// Mode is a named round-clock preset. Config ships two: normal
// (100 rounds, 60s) and test (20 rounds, 10s), but any positive pair
// is accepted.
type Mode struct {
	Rounds     int `mapstructure:"rounds" default:"100" validate:"gte=1,lte=100"`
	IntervalMs int `mapstructure:"interval_ms" default:"60000" validate:"gte=1"`
}

// DecodeMode decodes a mode settings map from config into a Mode,
// applying defaults and validation. Defaults fill the struct before
// decoding so they only cover keys the map leaves out; an explicit
// zero in the map survives the decode and fails validation instead of
// being silently replaced.
func DecodeMode(settings map[string]any) (Mode, error) {
	var mode Mode
	if err := defaults.Set(&mode); err != nil {
		return Mode{}, errors.Wrap(err, "failed to set defaults")
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &mode,
		TagName: "mapstructure",
	})
	if err != nil {
		return Mode{}, errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(settings); err != nil {
		return Mode{}, errors.Wrap(err, "failed to decode mode settings")
	}

	validate := validator.New()
	if err := validate.Struct(mode); err != nil {
		return Mode{}, errors.Wrap(err, "mode validation failed")
	}

	return mode, nil
}

// SchedulerConfig converts the mode into a scheduler Config.
func (m Mode) SchedulerConfig() Config {
	return Config{
		Rounds:   m.Rounds,
		Interval: time.Duration(m.IntervalMs) * time.Millisecond,
	}
}

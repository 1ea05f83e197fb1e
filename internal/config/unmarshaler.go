package config

import (
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-viper/mapstructure/v2"

	"github.com/smykla-skalski/desgate/pkg/config"
)

// decoderConfig returns the mapstructure settings for decoding the merged
// koanf tree into result.
func decoderConfig(result any) *mapstructure.DecoderConfig {
	return &mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			durationHook(),
			mapstructure.StringToTimeDurationHookFunc(),
		),
		WeaklyTypedInput: true,
		Result:           result,
	}
}

// durationHook decodes config.Duration from Go duration strings ("30s") or
// bare numbers, which count seconds (TOML `timeout = 30`,
// DESGATE_VALIDATOR_TIMEOUT=30).
//
//nolint:ireturn // mapstructure.DecodeHookFunc
func durationHook() mapstructure.DecodeHookFunc {
	return func(_, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeFor[config.Duration]() {
			return data, nil
		}

		var seconds float64

		switch v := data.(type) {
		case string:
			n, err := strconv.ParseFloat(v, 64)
			if err != nil {
				var d config.Duration
				if err := d.UnmarshalText([]byte(v)); err != nil {
					return nil, err
				}

				return d, nil
			}

			seconds = n
		case int:
			seconds = float64(v)
		case int64:
			seconds = float64(v)
		case float64:
			seconds = v
		default:
			return data, nil
		}

		if seconds < 0 || math.IsNaN(seconds) {
			return nil, errors.Wrapf(config.ErrNegativeDuration, "got %v", data)
		}

		return config.Duration(time.Duration(seconds * float64(time.Second))), nil
	}
}

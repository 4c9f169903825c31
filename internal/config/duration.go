package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration wraps time.Duration with support for a "d" (days) suffix, keeping
// week-scale settings like REFRESH_TOKEN_EXPIRY=7d readable.
type Duration struct {
	time.Duration
}

// EnvDecode implements envconfig.Decoder
func (d *Duration) EnvDecode(_ context.Context, raw string) error {
	if raw == "" {
		return nil
	}

	if days, ok := strings.CutSuffix(raw, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return fmt.Errorf("invalid days value %q: %w", raw, err)
		}
		d.Duration = time.Duration(n) * 24 * time.Hour
		return nil
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	return d.EnvDecode(context.Background(), string(text))
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func (d Duration) String() string {
	return d.Duration.String()
}

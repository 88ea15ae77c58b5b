package config

import (
	"fmt"
	"os"
	"testing"
	"time"

	"pgregory.net/rapid"
)

var validLogLevels = []string{"debug", "info", "warn", "error"}

var durationDefaults = map[string]time.Duration{
	"READ_TIMEOUT":     5 * time.Second,
	"WRITE_TIMEOUT":    10 * time.Second,
	"IDLE_TIMEOUT":     60 * time.Second,
	"SHUTDOWN_TIMEOUT": 10 * time.Second,
	"LOCK_TIMEOUT":     2 * time.Second,
	"WEBHOOK_TIMEOUT":  5 * time.Second,
	"PRICE_TIMEOUT":    2 * time.Second,
}

func unsetAllConfigEnv() {
	for _, key := range allEnvKeys {
		os.Unsetenv(key)
	}
}

// genDurationString generates a valid Go duration string (e.g. "3s", "500ms", "2m").
func genDurationString() *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		unit := rapid.SampledFrom([]string{"ms", "s", "m"}).Draw(t, "unit")
		val := rapid.IntRange(1, 600).Draw(t, "val")
		return fmt.Sprintf("%d%s", val, unit)
	})
}

func durationField(cfg *Config, key string) time.Duration {
	switch key {
	case "READ_TIMEOUT":
		return cfg.ReadTimeout
	case "WRITE_TIMEOUT":
		return cfg.WriteTimeout
	case "IDLE_TIMEOUT":
		return cfg.IdleTimeout
	case "SHUTDOWN_TIMEOUT":
		return cfg.ShutdownTimeout
	case "LOCK_TIMEOUT":
		return cfg.LockTimeout
	case "WEBHOOK_TIMEOUT":
		return cfg.WebhookTimeout
	case "PRICE_TIMEOUT":
		return cfg.PriceTimeout
	}
	panic("unknown duration key " + key)
}

func TestProperty_ValidConfigParsing(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		unsetAllConfigEnv()
		defer unsetAllConfigEnv()

		port := rapid.IntRange(1, 65535).Draw(t, "port")
		logLevel := rapid.SampledFrom(validLogLevels).Draw(t, "logLevel")
		maxLimit := rapid.IntRange(1, 500).Draw(t, "maxLimit")
		defLimit := rapid.IntRange(1, maxLimit).Draw(t, "defLimit")

		os.Setenv("PORT", fmt.Sprint(port))
		os.Setenv("LOG_LEVEL", logLevel)
		os.Setenv("HISTORY_MAX_LIMIT", fmt.Sprint(maxLimit))
		os.Setenv("HISTORY_DEFAULT_LIMIT", fmt.Sprint(defLimit))

		durStrs := make(map[string]string, len(durationDefaults))
		for key := range durationDefaults {
			durStrs[key] = rapid.OneOf(rapid.Just(""), genDurationString()).Draw(t, key)
			if durStrs[key] != "" {
				os.Setenv(key, durStrs[key])
			}
		}

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() returned error for valid inputs: %v", err)
		}

		if cfg.Port != port || cfg.LogLevel != logLevel {
			t.Fatalf("Port/LogLevel = %d/%q, want %d/%q", cfg.Port, cfg.LogLevel, port, logLevel)
		}
		if cfg.HistoryMaxLimit != maxLimit || cfg.HistoryDefaultLimit != defLimit {
			t.Fatalf("limits = %d/%d, want %d/%d", cfg.HistoryDefaultLimit, cfg.HistoryMaxLimit, defLimit, maxLimit)
		}
		for key, def := range durationDefaults {
			want := def
			if durStrs[key] != "" {
				want, _ = time.ParseDuration(durStrs[key])
			}
			if got := durationField(cfg, key); got != want {
				t.Fatalf("%s = %v, want %v (env=%q)", key, got, want, durStrs[key])
			}
		}
	})
}

func TestProperty_InvalidLogLevelReturnsError(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		unsetAllConfigEnv()
		defer unsetAllConfigEnv()

		invalidLevel := rapid.StringMatching(`[a-z]{1,20}`).Filter(func(s string) bool {
			for _, v := range validLogLevels {
				if s == v {
					return false
				}
			}
			return true
		}).Draw(t, "invalidLevel")

		os.Setenv("LOG_LEVEL", invalidLevel)

		if _, err := Load(); err == nil {
			t.Fatalf("Load() should return error for invalid LOG_LEVEL %q", invalidLevel)
		}
	})
}

func TestProperty_StaticPricesRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		unsetAllConfigEnv()
		defer unsetAllConfigEnv()

		syms := rapid.SliceOfNDistinct(rapid.StringMatching(`[A-Z]{1,5}`), 1, 6, rapid.ID[string]).Draw(t, "symbols")
		want := make(map[string]string, len(syms))
		raw := ""
		for i, s := range syms {
			price := fmt.Sprintf("%d.%02d", rapid.IntRange(1, 9999).Draw(t, "int"), rapid.IntRange(0, 99).Draw(t, "frac"))
			want[s] = price
			if i > 0 {
				raw += ","
			}
			raw += s + ":" + price
		}
		os.Setenv("STATIC_PRICES", raw)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load(): %v", err)
		}
		if len(cfg.StaticPrices) != len(want) {
			t.Fatalf("StaticPrices = %v, want %v", cfg.StaticPrices, want)
		}
		for s, p := range want {
			if cfg.StaticPrices[s] != p {
				t.Fatalf("StaticPrices[%s] = %q, want %q", s, cfg.StaticPrices[s], p)
			}
		}
	})
}

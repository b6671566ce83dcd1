package modconfig

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Settings are generator options sourced from the environment rather than the
// module list. A .env file in the working directory is overlaid first;
// existing process environment always wins.
type Settings struct {
	// WatchDebounce batches rapid filesystem events into one regeneration.
	WatchDebounce time.Duration
	// RebuildInterval triggers periodic regeneration in watch mode even
	// without filesystem events. Zero disables the schedule.
	RebuildInterval time.Duration
	// MetricsAddr is the listen address for the watch-mode metrics endpoint.
	// Empty disables the endpoint.
	MetricsAddr string
	// NATSURL enables publishing run summaries when non-empty.
	NATSURL string
	// NATSSubject is the subject run summaries are published on.
	NATSSubject string
	// HistoryDisabled skips the sqlite run-history store.
	HistoryDisabled bool
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() Settings {
	return Settings{
		WatchDebounce: 500 * time.Millisecond,
		NATSSubject:   "modkit.runs",
	}
}

// LoadSettings overlays .env and MODKIT_* environment variables onto the
// defaults. Malformed values are logged and ignored.
func LoadSettings() Settings {
	if err := godotenv.Load(); err == nil {
		slog.Debug("Loaded environment variables from .env")
	}

	s := DefaultSettings()
	if v := os.Getenv("MODKIT_WATCH_DEBOUNCE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			s.WatchDebounce = time.Duration(ms) * time.Millisecond
		} else {
			slog.Warn("Ignoring invalid MODKIT_WATCH_DEBOUNCE_MS", slog.String("value", v))
		}
	}
	if v := os.Getenv("MODKIT_REBUILD_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			s.RebuildInterval = d
		} else {
			slog.Warn("Ignoring invalid MODKIT_REBUILD_INTERVAL", slog.String("value", v))
		}
	}
	if v := os.Getenv("MODKIT_METRICS_ADDR"); v != "" {
		s.MetricsAddr = v
	}
	if v := os.Getenv("MODKIT_NATS_URL"); v != "" {
		s.NATSURL = v
	}
	if v := os.Getenv("MODKIT_NATS_SUBJECT"); v != "" {
		s.NATSSubject = v
	}
	if v := os.Getenv("MODKIT_NO_HISTORY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			s.HistoryDisabled = b
		}
	}
	return s
}

package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyModule     = "module"
	KeyPackage    = "package"
	KeyArtifact   = "artifact"
	KeyPath       = "path"
	KeyRunID      = "run_id"
	KeyTopology   = "topology"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Module(id string) slog.Attr      { return slog.String(KeyModule, id) }
func Package(name string) slog.Attr   { return slog.String(KeyPackage, name) }
func Artifact(name string) slog.Attr  { return slog.String(KeyArtifact, name) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Topology(t string) slog.Attr     { return slog.String(KeyTopology, t) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

package portal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"schulmanager-sync/internal/logger"
)

// Dumper persists sanitized request/response payloads to a local debug
// directory when diagnostics are enabled. Secrets are redacted before
// anything touches disk.
type Dumper struct {
	enabled bool
	dir     string
	log     zerolog.Logger
}

func NewDumper(enabled bool, dir string) *Dumper {
	if dir == "" {
		dir = "debug"
	}
	return &Dumper{
		enabled: enabled,
		dir:     dir,
		log:     logger.Component("dumper"),
	}
}

func (d *Dumper) Enabled() bool {
	return d != nil && d.enabled
}

// Dump writes one named payload as {"fetched_at": ..., "data": ...}.
// Failures are logged and swallowed: diagnostics must never break a fetch.
func (d *Dumper) Dump(name string, data any) {
	if !d.Enabled() {
		return
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		d.log.Debug().Err(err).Msg("Failed to create dump directory")
		return
	}
	payload := map[string]any{
		"fetched_at": time.Now().UTC().Format(time.RFC3339),
		"data":       Sanitize(data),
	}
	buf, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		d.log.Debug().Err(err).Str("name", name).Msg("Failed to marshal dump")
		return
	}
	path := filepath.Join(d.dir, name+".json")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		d.log.Debug().Err(err).Str("path", path).Msg("Failed to write dump")
	}
}

var secretKeys = map[string]bool{
	"password":      true,
	"jwt":           true,
	"authorization": true,
	"token":         true,
	"hash":          true,
}

// Sanitize recursively redacts secret-bearing values. Long secrets keep a
// ten-character prefix so dumps remain correlatable across requests.
func Sanitize(obj any) any {
	switch v := obj.(type) {
	case map[string]any:
		redacted := make(map[string]any, len(v))
		for k, val := range v {
			if secretKeys[strings.ToLower(k)] {
				redacted[k] = redactValue(val)
			} else {
				redacted[k] = Sanitize(val)
			}
		}
		return redacted
	case map[string]string:
		redacted := make(map[string]any, len(v))
		for k, val := range v {
			if secretKeys[strings.ToLower(k)] {
				redacted[k] = redactValue(val)
			} else {
				redacted[k] = val
			}
		}
		return redacted
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Sanitize(item)
		}
		return out
	default:
		return obj
	}
}

func redactValue(val any) string {
	if s, ok := val.(string); ok && len(s) > 12 {
		return s[:10] + "...(redacted)"
	}
	return "(redacted)"
}

package portal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeRedactsSecrets(t *testing.T) {
	input := map[string]any{
		"username": "parent@example.com",
		"password": "short",
		"jwt":      "eyJhbGciOiJIUzI1NiJ9.abcdefghijklmnop",
		"nested": map[string]any{
			"Token": "tok",
			"hash":  strings.Repeat("a", 40),
		},
		"list": []any{
			map[string]any{"authorization": "Bearer xyz", "other": "keep"},
		},
	}

	out := Sanitize(input).(map[string]any)

	if out["username"] != "parent@example.com" {
		t.Errorf("non-secret must pass through, got %v", out["username"])
	}
	if out["password"] != "(redacted)" {
		t.Errorf("short secret must be fully redacted, got %v", out["password"])
	}
	jwt := out["jwt"].(string)
	if !strings.HasSuffix(jwt, "...(redacted)") || !strings.HasPrefix(jwt, "eyJhbGciOi") {
		t.Errorf("long secret must keep a 10-char prefix, got %q", jwt)
	}

	nested := out["nested"].(map[string]any)
	if nested["Token"] != "(redacted)" {
		t.Errorf("key matching is case-insensitive, got %v", nested["Token"])
	}
	hash := nested["hash"].(string)
	if hash != strings.Repeat("a", 10)+"...(redacted)" {
		t.Errorf("unexpected hash redaction %q", hash)
	}

	item := out["list"].([]any)[0].(map[string]any)
	if item["authorization"] != "(redacted)" || item["other"] != "keep" {
		t.Errorf("list entries must be sanitized recursively: %v", item)
	}
}

func TestDumperDisabledWritesNothing(t *testing.T) {
	dir := t.TempDir()
	d := NewDumper(false, dir)
	d.Dump("probe", map[string]any{"x": 1})

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("disabled dumper must not write files, found %d", len(entries))
	}
}

func TestDumperWritesSanitizedPayload(t *testing.T) {
	dir := t.TempDir()
	d := NewDumper(true, dir)
	d.Dump("login_request", map[string]any{
		"username": "parent@example.com",
		"password": "geheim123geheim",
	})

	raw, err := os.ReadFile(filepath.Join(dir, "login_request.json"))
	if err != nil {
		t.Fatalf("dump file missing: %v", err)
	}
	if strings.Contains(string(raw), "geheim123geheim") {
		t.Error("plaintext password must never reach disk")
	}

	var payload struct {
		FetchedAt string         `json:"fetched_at"`
		Data      map[string]any `json:"data"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("dump is not valid JSON: %v", err)
	}
	if payload.FetchedAt == "" {
		t.Error("dump must carry a fetch timestamp")
	}
	if payload.Data["username"] != "parent@example.com" {
		t.Errorf("unexpected data %v", payload.Data)
	}
}

package portal

import (
	"encoding/hex"
	"strings"
	"testing"

	stderrors "errors"

	"schulmanager-sync/pkg/errors"
)

func TestHashPasswordProperties(t *testing.T) {
	hash, err := hashPassword("geheim123", "somesalt")
	if err != nil {
		t.Fatalf("hashPassword returned error: %v", err)
	}
	if len(hash) != 1024 {
		t.Errorf("expected 1024 hex characters, got %d", len(hash))
	}
	if _, err := hex.DecodeString(hash); err != nil {
		t.Errorf("hash is not valid hex: %v", err)
	}
	if hash != strings.ToLower(hash) {
		t.Error("hash must be lowercase hex")
	}

	again, err := hashPassword("geheim123", "somesalt")
	if err != nil {
		t.Fatalf("hashPassword returned error: %v", err)
	}
	if hash != again {
		t.Error("hashing is not deterministic")
	}

	other, err := hashPassword("geheim123", "othersalt")
	if err != nil {
		t.Fatalf("hashPassword returned error: %v", err)
	}
	if hash == other {
		t.Error("different salts must produce different hashes")
	}
}

func TestHashPasswordUmlauts(t *testing.T) {
	// Umlauts are inside Latin-1 and must hash.
	if _, err := hashPassword("pässwörtchenü", "salz"); err != nil {
		t.Fatalf("Latin-1 password rejected: %v", err)
	}
}

func TestHashPasswordOutsideLatin1(t *testing.T) {
	_, err := hashPassword("geheim€", "salz")
	if err == nil {
		t.Fatal("expected error for password outside Latin-1")
	}
	if !stderrors.Is(err, errors.ErrAuthenticationFailed) {
		t.Errorf("expected auth error, got %v", err)
	}
}

func TestEncodeLatin1(t *testing.T) {
	out, err := encodeLatin1("aä")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 || out[0] != 'a' || out[1] != 0xE4 {
		t.Errorf("unexpected encoding: %v", out)
	}
}

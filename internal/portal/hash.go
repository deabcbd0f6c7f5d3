package portal

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"schulmanager-sync/pkg/errors"
)

const (
	pbkdf2Iterations = 99999
	pbkdf2KeyLength  = 512
)

// hashPassword derives the login hash from the plaintext password and the
// per-attempt salt fetched from the server: PBKDF2-HMAC-SHA512, hex encoded.
// The portal hashes the Latin-1 bytes of the password, so passwords with
// characters outside that range cannot be encoded and login must abort.
func hashPassword(password, salt string) (string, error) {
	pw, err := encodeLatin1(password)
	if err != nil {
		return "", errors.NewAuthError("password not encodable as Latin-1", err)
	}
	key := pbkdf2.Key(pw, []byte(salt), pbkdf2Iterations, pbkdf2KeyLength, sha512.New)
	return hex.EncodeToString(key), nil
}

func encodeLatin1(s string) ([]byte, error) {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF {
			return nil, fmt.Errorf("character %q outside Latin-1 range", r)
		}
		out = append(out, byte(r))
	}
	return out, nil
}

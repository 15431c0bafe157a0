package fxa

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
)

// The onepw credential derivation: the password is quick-stretched with
// PBKDF2 and the stretched value is expanded with HKDF into the value sent
// to the server (authPW) and the local key-unwrapping key (unwrapBKey).
// The raw password never leaves the client.

const (
	quickStretchRounds = 1000
	derivedKeyLen      = 32
)

func kw(name string) []byte {
	return []byte("identity.mozilla.com/picl/v1/" + name)
}

func quickStretch(email, password string) []byte {
	salt := append(kw("quickStretch:"), []byte(email)...)
	return pbkdf2.Key([]byte(password), salt, quickStretchRounds, derivedKeyLen, sha256.New)
}

func hkdfExpand(secret, info []byte) ([]byte, error) {
	out := make([]byte, derivedKeyLen)
	r := hkdf.New(sha256.New, secret, nil, info)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("hkdf expand %q: %w", info, err)
	}
	return out, nil
}

// DeriveCredentials computes authPW and unwrapBKey for an email/password
// pair, hex encoded for the wire.
func DeriveCredentials(email, password string) (authPW, unwrapBKey string, err error) {
	stretched := quickStretch(email, password)

	auth, err := hkdfExpand(stretched, kw("authPW"))
	if err != nil {
		return "", "", err
	}
	unwrap, err := hkdfExpand(stretched, kw("unwrapBkey"))
	if err != nil {
		return "", "", err
	}
	return hex.EncodeToString(auth), hex.EncodeToString(unwrap), nil
}

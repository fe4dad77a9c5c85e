package secrets

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"golang.org/x/crypto/hkdf"
)

const macKeySize = 32

// Deriver produces the deterministic one-way hashes the broker hands out as
// credentials: rotating base keys on registration and api keys on token mint.
// The MAC key is expanded from the process-wide secret once at startup; the
// secret itself is never used directly.
type Deriver struct {
	macKey []byte
}

func NewDeriver(processSecret string) (*Deriver, error) {
	if processSecret == "" {
		return nil, errors.New("process secret must not be empty")
	}

	macKey := make([]byte, macKeySize)
	kdf := hkdf.New(sha256.New, []byte(processSecret), nil, []byte("key/credential-mac/v1"))
	if _, err := io.ReadFull(kdf, macKey); err != nil {
		return nil, fmt.Errorf("error while deriving mac key. Err: %w", err)
	}

	return &Deriver{macKey: macKey}, nil
}

// BaseKey derives the rotating secret returned by register.
// Same url at a different instant yields a different key, which is what
// makes re-registration a rotation.
func (d *Deriver) BaseKey(url string, at time.Time) string {
	return d.mac("base-key", url, strconv.FormatInt(at.UnixNano(), 10))
}

// APIKey derives the bearer token string minted by issue. It binds the
// target's base key as it was at mint time; later rotations of the target do
// not change tokens already derived from the previous key.
func (d *Deriver) APIKey(targetBaseKey string, requesterProject string, at time.Time) string {
	return d.mac("api-key", targetBaseKey, requesterProject, strconv.FormatInt(at.UnixNano(), 10))
}

func (d *Deriver) mac(parts ...string) string {
	m := hmac.New(sha256.New, d.macKey)
	for _, part := range parts {
		m.Write([]byte(part))
		m.Write([]byte{0}) // keeps adjacent parts from running together
	}
	return hex.EncodeToString(m.Sum(nil))
}

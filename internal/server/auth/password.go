// Package auth holds the credential primitives: argon2id password hashes
// and signed session tokens.
package auth

import (
	"crypto/subtle"
	"database/sql/driver"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/paleolab/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	argonTime    uint32 = 1
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 4
	argonKeyLen  uint32 = 32
	saltLen             = 16
)

var errMalformedHash = errors.New("malformed password hash")

var b64 = base64.RawStdEncoding

// PasswordHash is a write-only credential: it can be created from a
// plaintext and checked against a candidate, but never read back.
// The zero value matches no password.
type PasswordHash struct {
	encoded string
}

// HashPassword derives a salted argon2id hash of plaintext.
func HashPassword(plaintext string) (PasswordHash, error) {
	salt, err := common.GenerateRandByteArray(saltLen)
	if err != nil {
		return PasswordHash{}, fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(plaintext), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return PasswordHash{encoded: fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		b64.EncodeToString(salt), b64.EncodeToString(key))}, nil
}

// IsSet reports whether h holds a hash.
func (h PasswordHash) IsSet() bool {
	return h.encoded != ""
}

// Verify reports whether candidate hashes to h using h's own parameters
// and salt. The comparison is constant time.
func (h PasswordHash) Verify(candidate string) bool {
	p, err := decode(h.encoded)
	if err != nil {
		return false
	}

	key := argon2.IDKey([]byte(candidate), p.salt, p.time, p.memory, p.threads, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(key, p.key) == 1
}

// String never reveals the hash.
func (h PasswordHash) String() string {
	return "[redacted]"
}

// Value stores the encoded hash.
func (h PasswordHash) Value() (driver.Value, error) {
	if !h.IsSet() {
		return nil, errors.New("password hash is not set")
	}
	return h.encoded, nil
}

// Scan loads an encoded hash from the database.
func (h *PasswordHash) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case nil:
		h.encoded = ""
		return nil
	default:
		return fmt.Errorf("cannot scan %T into PasswordHash", src)
	}

	if _, err := decode(s); err != nil {
		return err
	}
	h.encoded = s
	return nil
}

type params struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

func decode(encoded string) (*params, error) {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, errMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, errMalformedHash
	}

	p := &params{}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return nil, errMalformedHash
	}

	var err error
	if p.salt, err = b64.DecodeString(parts[4]); err != nil || len(p.salt) == 0 {
		return nil, errMalformedHash
	}
	if p.key, err = b64.DecodeString(parts[5]); err != nil || len(p.key) == 0 {
		return nil, errMalformedHash
	}
	return p, nil
}

var dummyHash PasswordHash

func init() {
	h, err := HashPassword("paleolab-timing-equaliser")
	if err != nil {
		panic(err)
	}
	dummyHash = h
}

// VerifyDummy spends the same work as a real Verify. Login calls it for
// unknown accounts so response time does not reveal whether an email exists.
func VerifyDummy(candidate string) {
	_ = dummyHash.Verify(candidate)
}

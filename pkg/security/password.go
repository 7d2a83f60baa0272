// Package security hashes passwords with Argon2id in the PHC string format.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/angelmondragon/wishlist-backend/pkg/config"
)

// ErrInvalidHash signals a stored hash that is not a readable argon2id string.
var ErrInvalidHash = errors.New("invalid argon2id hash")

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

// cost is the tunable part of a hash. Salt and key lengths are read back from
// the encoded string itself.
type cost struct {
	memoryKB uint32
	passes   uint32
	lanes    uint8
	saltLen  int
	keyLen   int
}

func costFrom(cfg config.PasswordConfig) cost {
	return cost{
		memoryKB: uint32(bounded(cfg.ArgonMemoryKB, 8, 512*1024)),
		passes:   uint32(bounded(cfg.ArgonTime, 1, 10)),
		lanes:    uint8(bounded(cfg.ArgonParallelism, 1, 255)),
		saltLen:  bounded(cfg.ArgonSaltLen, 8, 64),
		keyLen:   bounded(cfg.ArgonKeyLen, 16, 64),
	}
}

// HashPassword derives a fresh-salted argon2id hash with the configured cost.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	c := costFrom(cfg)
	salt := make([]byte, c.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, c.passes, c.memoryKB, c.lanes, uint32(c.keyLen))

	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, c.memoryKB, c.passes, c.lanes, b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// VerifyPassword reports whether password produces encoded.
func VerifyPassword(password, encoded string) (bool, error) {
	c, salt, key, err := parseHash(encoded)
	if err != nil {
		return false, err
	}
	derived := argon2.IDKey([]byte(password), salt, c.passes, c.memoryKB, c.lanes, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, derived) == 1, nil
}

// NeedsRehash reports whether encoded was made with a cost other than cfg's.
// Unreadable hashes always need one.
func NeedsRehash(encoded string, cfg config.PasswordConfig) bool {
	stored, salt, key, err := parseHash(encoded)
	if err != nil {
		return true
	}
	want := costFrom(cfg)
	return stored.memoryKB != want.memoryKB ||
		stored.passes != want.passes ||
		stored.lanes != want.lanes ||
		len(salt) != want.saltLen ||
		len(key) != want.keyLen
}

func parseHash(encoded string) (cost, []byte, []byte, error) {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return cost{}, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return cost{}, nil, nil, ErrInvalidHash
	}

	var c cost
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &c.memoryKB, &c.passes, &c.lanes); err != nil {
		return cost{}, nil, nil, ErrInvalidHash
	}
	if c.memoryKB == 0 || c.passes == 0 || c.lanes == 0 {
		return cost{}, nil, nil, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(fields[4])
	if err != nil || len(salt) == 0 {
		return cost{}, nil, nil, ErrInvalidHash
	}
	key, err := base64.RawStdEncoding.DecodeString(fields[5])
	if err != nil || len(key) == 0 {
		return cost{}, nil, nil, ErrInvalidHash
	}
	return c, salt, key, nil
}

// CheckPasswordPolicy returns a user-facing reason when password is too weak.
func CheckPasswordPolicy(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	if strings.Trim(password, "0123456789") == "" {
		return errors.New("password cannot be entirely numeric")
	}
	return nil
}

func bounded(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id cost used for new account passwords (OWASP 2025 baseline).
// Stored hashes carry their own cost, so raising these only affects
// passwords hashed afterwards.
const (
	argonTime    = 3
	argonMemory  = 64 * 1024 // KiB
	argonThreads = 1
	argonKeyLen  = 32
	argonSaltLen = 16
)

// argonCost is the parameter block of a PHC string.
type argonCost struct {
	memory  uint32
	time    uint32
	threads uint8
}

// HashPassword hashes an account password with Argon2id and encodes it as
// a PHC string, $argon2id$v=19$m=65536,t=3,p=1$<salt>$<hash>, which is what
// the users.password_hash column stores.
func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return encodePHC(argonCost{memory: argonMemory, time: argonTime, threads: argonThreads}, salt, key), nil
}

// VerifyPassword reports whether password matches a stored PHC hash.
// A hash that cannot be parsed returns ErrMalformedHash.
func VerifyPassword(password, stored string) (bool, error) {
	cost, salt, key, err := decodePHC(stored)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey([]byte(password), salt, cost.time, cost.memory, cost.threads, uint32(len(key))) //nolint:gosec // G115: key length is bounded by the column
	return subtle.ConstantTimeCompare(key, candidate) == 1, nil
}

func encodePHC(c argonCost, salt, key []byte) string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, c.memory, c.time, c.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))
}

// decodePHC splits a stored hash into its cost, salt and key. Costs that
// would make argon2 panic (zero passes or threads, memory below 8 KiB per
// thread) are rejected rather than passed through.
func decodePHC(stored string) (argonCost, []byte, []byte, error) {
	var c argonCost

	fields := strings.Split(stored, "$")
	if len(fields) != 6 || fields[0] != "" {
		return c, nil, nil, fmt.Errorf("%w: expected 6 fields", ErrMalformedHash)
	}
	if fields[1] != "argon2id" {
		return c, nil, nil, fmt.Errorf("%w: algorithm %q", ErrMalformedHash, fields[1])
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return c, nil, nil, fmt.Errorf("%w: version %q", ErrMalformedHash, fields[2])
	}

	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &c.memory, &c.time, &c.threads); err != nil {
		return c, nil, nil, fmt.Errorf("%w: cost %q", ErrMalformedHash, fields[3])
	}
	if c.time == 0 || c.threads == 0 || c.memory < 8*uint32(c.threads) {
		return c, nil, nil, fmt.Errorf("%w: cost %q out of range", ErrMalformedHash, fields[3])
	}

	salt, err := base64.RawStdEncoding.DecodeString(fields[4])
	if err != nil || len(salt) == 0 {
		return c, nil, nil, fmt.Errorf("%w: salt", ErrMalformedHash)
	}
	key, err := base64.RawStdEncoding.DecodeString(fields[5])
	if err != nil || len(key) == 0 {
		return c, nil, nil, fmt.Errorf("%w: key", ErrMalformedHash)
	}

	return c, salt, key, nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bruth Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Hash algorithm names accepted by NewPasswordHasher.
const (
	AlgorithmArgon2id = "argon2id"
	AlgorithmBcrypt   = "bcrypt"
)

// OWASP-recommended argon2id parameters.
const (
	argon2Time    = 1         // iterations
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4         // parallelism
	argon2SaltLen = 16        // salt length in bytes
	argon2KeyLen  = 32        // output length in bytes
)

const (
	argon2Prefix    = "$argon2id$"
	maxArgon2Memory = 4 * 1024 * 1024 // 4 GiB
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a salted, encoded hash of the password.
	Hash(password string) (string, error)

	// Verify reports whether the password matches the encoded hash.
	// Malformed or unsupported hashes never match.
	Verify(password, hash string) bool

	// NeedsUpgrade returns true if the hash was produced by another algorithm
	// or with different parameters than the hasher is configured for.
	NeedsUpgrade(hash string) bool
}

// Argon2idParams controls the argon2id work factor.
type Argon2idParams struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

// DefaultArgon2idParams returns the OWASP-recommended parameters.
func DefaultArgon2idParams() Argon2idParams {
	return Argon2idParams{Time: argon2Time, Memory: argon2Memory, Threads: argon2Threads}
}

// MaxArgon2idTime is the largest argon2id iteration count accepted as a cost.
const MaxArgon2idTime = 100

// NewPasswordHasher builds the hasher for the named algorithm. A cost of zero
// selects the algorithm default; for argon2id cost is the iteration count.
func NewPasswordHasher(algorithm string, cost int) (PasswordHasher, error) {
	switch algorithm {
	case AlgorithmArgon2id, "":
		if cost < 0 || cost > MaxArgon2idTime {
			return nil, oops.Code("AUTH_INVALID_HASH_COST").
				With("cost", cost).
				Errorf("argon2id cost must be between 0 and %d", MaxArgon2idTime)
		}
		params := DefaultArgon2idParams()
		if cost > 0 {
			params.Time = uint32(cost) //nolint:gosec // bounded above
		}
		return NewArgon2idHasher(params), nil
	case AlgorithmBcrypt:
		if cost == 0 {
			cost = bcrypt.DefaultCost
		}
		return NewBcryptHasher(cost)
	default:
		return nil, oops.Code("AUTH_UNKNOWN_HASH_ALGORITHM").
			With("algorithm", algorithm).
			Errorf("unsupported hash algorithm %q", algorithm)
	}
}

// Argon2idHasher implements PasswordHasher using argon2id.
type Argon2idHasher struct {
	params Argon2idParams
}

// NewArgon2idHasher creates a new Argon2idHasher.
func NewArgon2idHasher(params Argon2idParams) *Argon2idHasher {
	return &Argon2idHasher{params: params}
}

// Hash produces an argon2id hash of the password.
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	hash := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Threads, argon2KeyLen)

	// Encode as PHC string format
	// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// Verify checks if the password matches the hash. Legacy bcrypt hashes are
// accepted so they can be upgraded on the next successful login.
func (h *Argon2idHasher) Verify(password, encodedHash string) bool {
	return verifyEncoded(password, encodedHash)
}

// NeedsUpgrade returns true if the hash is not argon2id or uses other parameters.
func (h *Argon2idHasher) NeedsUpgrade(encodedHash string) bool {
	phc, err := parseArgon2id(encodedHash)
	if err != nil {
		return true
	}
	return phc.memory != h.params.Memory || phc.time != h.params.Time || phc.threads != h.params.Threads
}

// BcryptHasher implements PasswordHasher using bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a BcryptHasher with the given cost.
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, oops.Code("AUTH_INVALID_HASH_COST").
			With("cost", cost).
			Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &BcryptHasher{cost: cost}, nil
}

// Hash produces a bcrypt hash of the password.
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", oops.Code("AUTH_HASH_FAILED").With("algorithm", AlgorithmBcrypt).Wrap(err)
	}
	return string(hashed), nil
}

// Verify checks if the password matches the hash. argon2id hashes are accepted
// as well so switching algorithms does not lock anyone out.
func (h *BcryptHasher) Verify(password, encodedHash string) bool {
	return verifyEncoded(password, encodedHash)
}

// NeedsUpgrade returns true if the hash is not bcrypt or uses another cost.
func (h *BcryptHasher) NeedsUpgrade(encodedHash string) bool {
	cost, err := bcrypt.Cost([]byte(encodedHash))
	if err != nil {
		return true
	}
	return cost != h.cost
}

// verifyEncoded dispatches on the hash prefix.
func verifyEncoded(password, encodedHash string) bool {
	if strings.HasPrefix(encodedHash, argon2Prefix) {
		ok, err := verifyArgon2id(password, encodedHash)
		return err == nil && ok
	}
	if strings.HasPrefix(encodedHash, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password)) == nil
	}
	return false
}

type argon2Hash struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

// parseArgon2id decodes a PHC-formatted argon2id hash.
func parseArgon2id(encodedHash string) (*argon2Hash, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash format")
	}

	if parts[1] != "argon2id" {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("unsupported hash algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if version != argon2.Version {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("unsupported argon2 version: %d", version)
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	// Validate threads fits in uint8 to prevent silent truncation
	if threads == 0 || threads > 255 {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("threads value %d out of range", threads)
	}
	// argon2.IDKey panics on zero iterations
	if time == 0 {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("iterations must be positive")
	}
	if memory > maxArgon2Memory {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("memory value %d exceeds %d KiB", memory, maxArgon2Memory)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	// Validate key length to prevent integer overflow in uint32 conversion
	if len(key) == 0 || len(key) > 1<<10 {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash key length: %d", len(key))
	}

	return &argon2Hash{
		memory:  memory,
		time:    time,
		threads: uint8(threads),
		salt:    salt,
		key:     key,
	}, nil
}

func verifyArgon2id(password, encodedHash string) (bool, error) {
	phc, err := parseArgon2id(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), phc.salt, phc.time, phc.memory, phc.threads, uint32(len(phc.key))) //nolint:gosec // bounded in parseArgon2id

	// Constant-time comparison
	return subtle.ConstantTimeCompare(computed, phc.key) == 1, nil
}

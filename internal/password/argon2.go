// Package password hashes and verifies link passwords with Argon2id,
// encoding them as PHC strings ($argon2id$v=19$m=...,t=...,p=...$salt$hash)
// so the stored value is self-describing and never plaintext.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	saltLen = 16
	keyLen  = 32
	time_   = 2
	memory  = 19 * 1024 // KiB
	threads = 1
)

// Hash produces a PHC-formatted Argon2id hash of the given plaintext.
func Hash(plaintext string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	sum := argon2.IDKey([]byte(plaintext), salt, time_, memory, threads, keyLen)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(sum)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, memory, time_, threads, b64Salt, b64Hash), nil
}

// Verify reports whether plaintext matches the given PHC-formatted hash.
func Verify(plaintext, phc string) (bool, error) {
	salt, want, m, t, p, err := decode(phc)
	if err != nil {
		return false, err
	}
	got := argon2.IDKey([]byte(plaintext), salt, t, m, p, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// IsHash reports whether s looks like an Argon2 PHC hash, as opposed to a
// plaintext password. Used at import/CRUD boundaries to decide whether an
// incoming value must still be hashed.
func IsHash(s string) bool {
	return strings.HasPrefix(s, "$argon2")
}

func decode(phc string) (salt, hash []byte, m uint32, t uint32, p uint8, err error) {
	parts := strings.Split(phc, "$")
	// parts[0] == "", parts[1] == "argon2id", parts[2] == "v=19",
	// parts[3] == "m=...,t=...,p=...", parts[4] == salt, parts[5] == hash
	if len(parts) != 6 {
		return nil, nil, 0, 0, 0, fmt.Errorf("malformed argon2 hash")
	}
	var mm, tt int
	var pp int
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mm, &tt, &pp); err != nil {
		return nil, nil, 0, 0, 0, fmt.Errorf("malformed argon2 params: %w", err)
	}
	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, 0, 0, 0, fmt.Errorf("malformed argon2 salt: %w", err)
	}
	hash, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, 0, 0, 0, fmt.Errorf("malformed argon2 hash digest: %w", err)
	}
	return salt, hash, uint32(mm), uint32(tt), uint8(pp), nil
}

// ProcessNew hashes a freshly supplied password, or returns "" if it is
// empty (no password).
func ProcessNew(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	return Hash(plaintext)
}

// ProcessUpdate decides the stored password value given an optional new
// password and the existing one: nil means "leave unchanged", empty string
// means "remove the password", anything else gets hashed.
func ProcessUpdate(newPassword *string, existing string) (string, error) {
	if newPassword == nil {
		return existing, nil
	}
	if *newPassword == "" {
		return "", nil
	}
	return Hash(*newPassword)
}

// ProcessImported accepts either a plaintext or an already-hashed password
// coming from a bulk CSV/JSON import, hashing it only if necessary.
func ProcessImported(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if IsHash(value) {
		return value, nil
	}
	return Hash(value)
}

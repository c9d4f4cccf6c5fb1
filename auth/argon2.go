package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2Params are the cost parameters encoded in a PHC string
type Argon2Params struct {
	Time        uint32
	MemoryKiB   uint32
	Parallelism uint8
	KeyLen      uint32
	SaltLen     uint32
}

func DefaultArgon2Params() Argon2Params {
	return Argon2Params{Time: 1, MemoryKiB: 64 * 1024, Parallelism: 4, KeyLen: 32, SaltLen: 16}
}

// HashPassword returns a PHC formatted argon2id hash:
// $argon2id$v=19$m=65536,t=1,p=4$<saltB64>$<hashB64>
func HashPassword(password string, p Argon2Params) (string, error) {
	if p.Time == 0 {
		p = DefaultArgon2Params()
	}
	if err := p.validate(); err != nil {
		return "", err
	}
	if p.KeyLen == 0 || p.SaltLen == 0 {
		return "", fmt.Errorf("argon2id key and salt lengths must not be zero")
	}
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	dk := argon2.IDKey([]byte(password), salt, p.Time, p.MemoryKiB, p.Parallelism, p.KeyLen)
	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		p.MemoryKiB, p.Time, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(dk)), nil
}

// argon2Hash is a parsed PHC string
type argon2Hash struct {
	params Argon2Params
	salt   []byte
	key    []byte
}

// Argon2Verifier checks passwords against argon2id hashes keyed by username. Entries that do not
// parse are kept out of the verifier and reported by Rejected.
type Argon2Verifier struct {
	hashes   map[string]argon2Hash
	rejected map[string]error
}

func NewArgon2Verifier(hashes map[string]string) *Argon2Verifier {
	v := &Argon2Verifier{
		hashes:   make(map[string]argon2Hash, len(hashes)),
		rejected: make(map[string]error),
	}
	for u, encoded := range hashes {
		params, salt, key, err := parseArgon2id(encoded)
		if err != nil {
			v.rejected[u] = err
			continue
		}
		v.hashes[u] = argon2Hash{params: params, salt: salt, key: key}
	}
	return v
}

// Rejected returns the users whose hash could not be used, with the reason
func (v *Argon2Verifier) Rejected() map[string]error {
	out := make(map[string]error, len(v.rejected))
	for u, err := range v.rejected {
		out[u] = err
	}
	return out
}

func (v *Argon2Verifier) Verify(_ context.Context, username, password string) bool {
	h, ok := v.hashes[username]
	if !ok {
		return false
	}
	dk := argon2.IDKey([]byte(password), h.salt, h.params.Time, h.params.MemoryKiB, h.params.Parallelism, uint32(len(h.key)))
	return subtle.ConstantTimeCompare(dk, h.key) == 1
}

// validate rejects the parameters argon2.IDKey panics on
func (p Argon2Params) validate() error {
	switch {
	case p.Time == 0:
		return fmt.Errorf("argon2id time must be at least 1")
	case p.Parallelism == 0:
		return fmt.Errorf("argon2id parallelism must be at least 1")
	case p.MemoryKiB < 8*uint32(p.Parallelism):
		return fmt.Errorf("argon2id memory must be at least 8 KiB per lane")
	}
	return nil
}

func parseArgon2id(encoded string) (Argon2Params, []byte, []byte, error) {
	var out Argon2Params
	if !strings.HasPrefix(encoded, "$argon2id$") {
		return out, nil, nil, fmt.Errorf("unsupported password hash format")
	}
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return out, nil, nil, fmt.Errorf("invalid argon2id hash format")
	}
	if parts[2] != "v=19" {
		return out, nil, nil, fmt.Errorf("unsupported argon2 version")
	}
	for _, kv := range strings.Split(parts[3], ",") {
		key, value, _ := strings.Cut(kv, "=")
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return out, nil, nil, fmt.Errorf("invalid argon2id parameter %q: %w", kv, err)
		}
		switch key {
		case "m":
			out.MemoryKiB = uint32(n)
		case "t":
			out.Time = uint32(n)
		case "p":
			if n > 255 {
				return out, nil, nil, fmt.Errorf("argon2id parallelism out of range")
			}
			out.Parallelism = uint8(n)
		}
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return out, nil, nil, err
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return out, nil, nil, err
	}
	if len(salt) == 0 || len(hash) == 0 {
		return out, nil, nil, fmt.Errorf("argon2id salt and hash must not be empty")
	}
	out.SaltLen = uint32(len(salt))
	out.KeyLen = uint32(len(hash))
	if err := out.validate(); err != nil {
		return out, nil, nil, err
	}
	return out, salt, hash, nil
}

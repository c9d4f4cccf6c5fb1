package auth

import (
	"context"
	"crypto/subtle"
	"sort"
)

// Verifier checks a username/password pair. It never returns an error: anything that prevents a
// positive answer is a failed login.
type Verifier interface {
	Verify(ctx context.Context, username, password string) bool
}

// DefaultUsers is the allow-list used when ADMIN_USERS is not configured
func DefaultUsers() map[string]string {
	return map[string]string{
		"brenno.om":  "Bre140903",
		"gabriel.an": "Gab123456",
	}
}

// StaticVerifier matches against a fixed allow-list of plaintext pairs
type StaticVerifier struct {
	users map[string]string
}

func NewStaticVerifier(users map[string]string) *StaticVerifier {
	copied := make(map[string]string, len(users))
	for u, p := range users {
		copied[u] = p
	}
	return &StaticVerifier{users: copied}
}

func (v *StaticVerifier) Verify(_ context.Context, username, password string) bool {
	expected, ok := v.users[username]
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(password)) == 1
}

// Usernames lists the configured users in sorted order
func (v *StaticVerifier) Usernames() []string {
	names := make([]string, 0, len(v.users))
	for u := range v.users {
		names = append(names, u)
	}
	sort.Strings(names)
	return names
}

// Multi accepts a pair when any of its verifiers does, trying them in order
type Multi []Verifier

func (m Multi) Verify(ctx context.Context, username, password string) bool {
	for _, v := range m {
		if v.Verify(ctx, username, password) {
			return true
		}
	}
	return false
}

package identity

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrNameRejected is returned when a display name is not on the allow-list.
var ErrNameRejected = errors.New("not a registered member")

// DefaultMembers holds the base64 (UTF-8) encoding of the six members.
var DefaultMembers = []string{
	"7KC07Iuc6riw",
	"7Jik7Iqk7Yu0",
	"7J207KeE64iE",
	"7ISx7JuQ7KCc",
	"66WY7Kex",
	"7ZmN67CV7IKs",
}

// AllowList is an immutable set of permitted display names, stored encoded.
// The encoding is reversible; it keeps names out of plain sight, nothing more.
type AllowList struct {
	encoded map[string]struct{}
}

// NewAllowList builds an allow-list from base64 encoded names.
// Every entry must decode to a non-empty name.
func NewAllowList(encoded []string) (*AllowList, error) {
	if len(encoded) == 0 {
		return nil, errors.New("allow-list is empty")
	}

	set := make(map[string]struct{}, len(encoded))
	for _, e := range encoded {
		e = strings.TrimSpace(e)
		raw, err := base64.StdEncoding.DecodeString(e)
		if err != nil {
			return nil, fmt.Errorf("allow-list entry %q: %w", e, err)
		}
		if strings.TrimSpace(string(raw)) == "" {
			return nil, fmt.Errorf("allow-list entry %q decodes to an empty name", e)
		}
		set[e] = struct{}{}
	}

	return &AllowList{encoded: set}, nil
}

// MustAllowList is like NewAllowList but panics on a malformed list.
func MustAllowList(encoded []string) *AllowList {
	a, err := NewAllowList(encoded)
	if err != nil {
		panic(err)
	}
	return a
}

// Encode returns the allow-list form of a display name.
func Encode(name string) string {
	return base64.StdEncoding.EncodeToString([]byte(strings.TrimSpace(name)))
}

// Normalize trims surrounding whitespace from a user-entered name.
func Normalize(name string) string {
	return strings.TrimSpace(name)
}

// Verify reports whether name, after trimming, is a permitted member.
// Matching is case-sensitive.
func (a *AllowList) Verify(name string) bool {
	if a == nil {
		return false
	}
	n := Normalize(name)
	if n == "" {
		return false
	}
	_, ok := a.encoded[Encode(n)]
	return ok
}

// Check is Verify returning ErrNameRejected on failure.
func (a *AllowList) Check(name string) error {
	if !a.Verify(name) {
		return ErrNameRejected
	}
	return nil
}

// Len returns the number of permitted names.
func (a *AllowList) Len() int {
	if a == nil {
		return 0
	}
	return len(a.encoded)
}

package domain

import (
	"math"
	"time"
)

const (
	// DefaultEmoji is assigned on a member's first write.
	DefaultEmoji = "🦊"
	// FallbackEmoji is drawn for records that carry no emoji at all.
	FallbackEmoji = "🙂"
	// DefaultStatus replaces an empty status message.
	DefaultStatus = "오늘도 좋은 하루! 🍀"
	// MaxStatusLength bounds the free-text status, in runes.
	MaxStatusLength = 140
)

// Palette lists the emoji avatars a member can pick from.
var Palette = []string{"🦊", "🐰", "🐸", "🐯", "🐶", "🐱", "🐼", "🐨", "🦄", "🐵", "🦁", "🐮", "🐷"}

// Record is one member's last published location, status and avatar.
// Latitude and Longitude are nil until a fix has been written.
type Record struct {
	UID           string     `json:"uid" firestore:"uid"`
	Latitude      *float64   `json:"latitude,omitempty" firestore:"latitude"`
	Longitude     *float64   `json:"longitude,omitempty" firestore:"longitude"`
	DisplayName   string     `json:"displayName" firestore:"displayName"`
	Emoji         string     `json:"emoji,omitempty" firestore:"emoji"`
	StatusMessage string     `json:"statusMessage,omitempty" firestore:"statusMessage"`
	Timestamp     *time.Time `json:"timestamp,omitempty" firestore:"timestamp"`
}

// Placeable reports whether both coordinates are present.
func (r Record) Placeable() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// WrittenAt returns the write timestamp in unix nanoseconds, zero when unset.
func (r Record) WrittenAt() int64 {
	if r.Timestamp == nil || r.Timestamp.IsZero() {
		return 0
	}
	return r.Timestamp.UnixNano()
}

// AvatarEmoji returns the emoji to draw for this record.
func (r Record) AvatarEmoji() string {
	if r.Emoji == "" {
		return FallbackEmoji
	}
	return r.Emoji
}

// Patch is a merge write: nil fields leave the stored value untouched.
// EmojiIfUnset is written only when the stored record has no emoji yet.
type Patch struct {
	Latitude      *float64
	Longitude     *float64
	DisplayName   *string
	Emoji         *string
	EmojiIfUnset  *string
	StatusMessage *string
}

// Apply merges p into r and returns the result. The timestamp is not touched.
func (p Patch) Apply(r Record) Record {
	if p.Latitude != nil {
		v := *p.Latitude
		r.Latitude = &v
	}
	if p.Longitude != nil {
		v := *p.Longitude
		r.Longitude = &v
	}
	if p.DisplayName != nil {
		r.DisplayName = *p.DisplayName
	}
	if p.Emoji != nil {
		r.Emoji = *p.Emoji
	}
	if p.EmojiIfUnset != nil && r.Emoji == "" {
		r.Emoji = *p.EmojiIfUnset
	}
	if p.StatusMessage != nil {
		r.StatusMessage = *p.StatusMessage
	}
	return r
}

// Fields returns the patch as a flat map keyed by wire field names.
// EmojiIfUnset depends on the stored record and is left to the store.
func (p Patch) Fields() map[string]interface{} {
	out := make(map[string]interface{}, 5)
	if p.Latitude != nil {
		out["latitude"] = *p.Latitude
	}
	if p.Longitude != nil {
		out["longitude"] = *p.Longitude
	}
	if p.DisplayName != nil {
		out["displayName"] = *p.DisplayName
	}
	if p.Emoji != nil {
		out["emoji"] = *p.Emoji
	}
	if p.StatusMessage != nil {
		out["statusMessage"] = *p.StatusMessage
	}
	return out
}

// Fix is a single device position.
type Fix struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks the fix is a real WGS84 position.
func (f Fix) Validate() error {
	if math.IsNaN(f.Latitude) || math.IsNaN(f.Longitude) {
		return ErrInvalidCoordinates
	}
	if f.Latitude < -90 || f.Latitude > 90 || f.Longitude < -180 || f.Longitude > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}

// InPalette reports whether emoji is a selectable avatar.
func InPalette(emoji string) bool {
	for _, e := range Palette {
		if e == emoji {
			return true
		}
	}
	return false
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }

// SnapshotHandler receives the complete collection after every change.
type SnapshotHandler func(records []Record)

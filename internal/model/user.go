// Package model defines the data structures exchanged with the blog backend.
//
// Everything in this package mirrors the backend's wire format. The app never
// owns these records; it holds transient, possibly-stale copies between
// fetches, so there are no db tags and no local identifiers.
package model

// User represents a registered account as the backend returns it.
//
// WHY int ID?
// The backend assigns numeric auto-incrementing user IDs. We keep them as int
// rather than re-keying on our own IDs because this app never stores users:
// every User value here came out of a backend response moments ago.
//
// Headline and AvatarURL are optional on the backend (null for users who never
// set them). We use empty-string zero values instead of pointers: simpler to
// work with, and "null avatar" and "empty avatar" mean the same thing to the UI.
type User struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Headline  string `json:"headline,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Initial returns the single-letter badge shown when a user has no avatar.
func (u User) Initial() string {
	for _, r := range u.Name {
		return string(r)
	}
	return "?"
}

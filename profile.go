package portalx

import "strings"

// UserProfile represents the portal account attached to a session. Storage
// holds only the raw profile; the name split is derived at read time.
type UserProfile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// FirstName returns the part of Name before the first whitespace, or the
// empty string when Name is empty.
func (p UserProfile) FirstName() string {
	first, _ := splitName(p.Name)
	return first
}

// LastName returns everything after the first whitespace, or the empty
// string when Name has a single word.
func (p UserProfile) LastName() string {
	_, last := splitName(p.Name)
	return last
}

func splitName(name string) (string, string) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ""
	}
	first, rest, found := strings.Cut(trimmed, " ")
	if !found {
		return first, ""
	}
	return first, strings.TrimSpace(rest)
}

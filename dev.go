package portalx

// DevSessionProfile holds attributes used when seeding a synthetic session
// in local development, bypassing the portal login.
type DevSessionProfile struct {
	Token string
	Name  string
	Email string
}

// Apply writes the synthetic session into the store as if a login had just
// completed. Never use outside local development.
func (d DevSessionProfile) Apply(store *SessionStore) error {
	return store.Save(d.Token, UserProfile{
		ID:    "dev-bypass",
		Name:  d.Name,
		Email: d.Email,
	})
}

// DefaultDevSessionProfile returns a baseline synthetic session suitable for
// local development.
func DefaultDevSessionProfile() DevSessionProfile {
	return DevSessionProfile{
		Token: "dev-token",
		Name:  "Dev Local",
		Email: "dev@portalx.local",
	}
}

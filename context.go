package portalx

import "context"

type sessionKey struct{}

// BindSession stores a session snapshot inside the context for downstream
// consumers that should not depend on the store directly.
func BindSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// SessionFromContext retrieves a session snapshot previously bound to the
// context.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	if ctx == nil {
		return nil, false
	}
	value := ctx.Value(sessionKey{})
	if value == nil {
		return nil, false
	}
	session, ok := value.(*Session)
	return session, ok
}

package identity

import "context"

// Verifier validates a bearer ID token and resolves it to a stable user id.
// The cart core consumes identities; it never mints or refreshes them.
type Verifier interface {
	Verify(ctx context.Context, idToken string) (uid string, err error)
}

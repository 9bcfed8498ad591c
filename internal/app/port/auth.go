package port

import "context"

// TokenSource supplies the bearer token attached to every backend request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

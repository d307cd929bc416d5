package ports

import "context"

// CredentialStore is the single durable slot holding the bearer credential.
// Load returns "" with a nil error when nothing is persisted.
type CredentialStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

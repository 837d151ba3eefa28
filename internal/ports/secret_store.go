package ports

import "context"

// SecretStore resolves credential references such as the document store token.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
}

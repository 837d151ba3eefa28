package ports

import "context"

// DocumentStore is the remote durable store. It holds named content blobs;
// Fetch returns all of them and Replace overwrites one. Both are atomic from
// the caller's point of view.
type DocumentStore interface {
	Fetch(ctx context.Context) (map[string]string, error)
	Replace(ctx context.Context, name string, content string) error
}

package ports

import "context"

// LiveStream yields raw pushed payloads until the connection ends.
type LiveStream interface {
	Next() ([]byte, error)
	Close() error
}

// LiveTransport opens one push connection authorized by token.
type LiveTransport interface {
	Name() string
	Connect(ctx context.Context, token string) (LiveStream, error)
}

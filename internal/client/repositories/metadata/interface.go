// Package metadata provides a small key/value store inside the client
// database. It holds session state that must survive restarts: the current
// user id and the token pair.
package metadata

import (
	"context"
)

// Repository is the metadata key/value contract. Get returns (nil, nil)
// when the key is absent.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}

// Keys used by the auth service.
const (
	KeyUserID       = "user_id"
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
)

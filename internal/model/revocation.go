package model

import (
	"context"
	"time"
)

// RevocationStore is the jti blacklist consulted on every authenticated
// request. It is a side channel, not the authority on validity: Add never
// propagates backend failures and Contains degrades per the configured fail
// policy.
type RevocationStore interface {
	Add(ctx context.Context, jti string, ttl time.Duration)
	Contains(ctx context.Context, jti string) bool
	Remove(ctx context.Context, jti string)
}

// Package session persists the portal session pair (bearer token +
// login identity) behind a narrow capability interface so the token
// manager stays storage-agnostic.
package session

import (
	"context"
	"errors"
)

// ErrNoSession is returned when no session pair is persisted.
var ErrNoSession = errors.New("no persisted session")

// Store holds exactly the token+identity pair for the current portal
// session. The secret is never stored here.
type Store interface {
	Get(ctx context.Context) (token, identity string, err error)
	Set(ctx context.Context, token, identity string) error
	Clear(ctx context.Context) error
}

package session

import (
	"context"

	"golang.org/x/oauth2"
)

type contextKey string

const storeKey contextKey = "session_store"

// NewContext attaches the request's Store so downstream calls can read
// the credential without passing it around.
func NewContext(ctx context.Context, store *Store) context.Context {
	return context.WithValue(ctx, storeKey, store)
}

func FromContext(ctx context.Context) (*Store, bool) {
	store, ok := ctx.Value(storeKey).(*Store)
	return store, ok && store != nil
}

// TokenFromContext is the credential lookup the API gateway uses.
func TokenFromContext(ctx context.Context) *oauth2.Token {
	store, ok := FromContext(ctx)
	if !ok {
		return nil
	}
	return store.Token()
}

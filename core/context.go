package core

import "context"

type ctxKey int

const (
	authTokenKey ctxKey = iota
	personKey
)

// WithAuthToken returns a copy of ctx carrying the caller's bearer token.
func WithAuthToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, authTokenKey, token)
}

// AuthToken returns the caller's bearer token, if any.
func AuthToken(ctx context.Context) string {
	token, _ := ctx.Value(authTokenKey).(string)
	return token
}

// WithPerson returns a copy of ctx carrying the caller's identity.
func WithPerson(ctx context.Context, p Person) context.Context {
	return context.WithValue(ctx, personKey, p)
}

// PersonFrom returns the caller's identity; the zero Person when anonymous.
func PersonFrom(ctx context.Context) Person {
	p, _ := ctx.Value(personKey).(Person)
	return p
}

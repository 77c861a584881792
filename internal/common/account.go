package common

import (
	"context"
	"strings"
)

// DefaultAccount is the partition used for unauthenticated callers.
const DefaultAccount = "default"

type accountKey struct{}

// WithAccount stores the tenancy partition (the authenticated user's email,
// lowercased) on the context.
func WithAccount(ctx context.Context, account string) context.Context {
	return context.WithValue(ctx, accountKey{}, NormalizeAccount(account))
}

// AccountFrom returns the partition for the request, falling back to the
// default sentinel so unauthenticated use still has a scope.
func AccountFrom(ctx context.Context) string {
	if v, ok := ctx.Value(accountKey{}).(string); ok && v != "" {
		return v
	}
	return DefaultAccount
}

// NormalizeAccount lowercases and trims an account identifier.
func NormalizeAccount(account string) string {
	a := strings.ToLower(strings.TrimSpace(account))
	if a == "" {
		return DefaultAccount
	}
	return a
}

package auth

import (
	"context"
	"errors"
)

type ctxKey int

const (
	ctxAccountID ctxKey = iota
	ctxEmail
)

var ErrNoIdentity = errors.New("account_id not in context")

func WithIdentity(ctx context.Context, accountID, email string) context.Context {
	ctx = context.WithValue(ctx, ctxAccountID, accountID)
	ctx = context.WithValue(ctx, ctxEmail, email)
	return ctx
}

func AccountID(ctx context.Context) (string, error) {
	if s, ok := ctx.Value(ctxAccountID).(string); ok && s != "" {
		return s, nil
	}
	return "", ErrNoIdentity
}

func Email(ctx context.Context) string {
	s, _ := ctx.Value(ctxEmail).(string)
	return s
}

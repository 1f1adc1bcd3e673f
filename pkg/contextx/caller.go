package contextx

import (
	"context"
	"fmt"
)

// Caller is the ledger address the current request acts on behalf of.
type Caller string

type contextKeyCaller struct{}

func (c Caller) String() string {
	return string(c)
}

func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, contextKeyCaller{}, caller)
}

func CallerFromContext(ctx context.Context) (Caller, error) {
	caller, ok := ctx.Value(contextKeyCaller{}).(Caller)
	if !ok {
		return "", fmt.Errorf("caller: %w", ErrNoValue)
	}

	return caller, nil
}

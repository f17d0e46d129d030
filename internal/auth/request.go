package auth

import "context"

type contextKey struct{}

// WithContext はリクエストコンテキストにAuth Contextを格納する。
func WithContext(ctx context.Context, c *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext はリクエストコンテキストからAuth Contextを取り出す。
func FromContext(ctx context.Context) (*Context, bool) {
	c, ok := ctx.Value(contextKey{}).(*Context)
	return c, ok && c != nil
}

// StateFromContext はリクエストのAuth Contextの状態を返す。
// Auth Contextがない場合は空の状態を返す。
func StateFromContext(ctx context.Context) State {
	if c, ok := FromContext(ctx); ok {
		return c.State()
	}
	return State{}
}

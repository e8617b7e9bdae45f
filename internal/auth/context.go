package auth

import "context"

type contextKey string

const (
	userIDKey    contextKey = "user_id"
	userNameKey  contextKey = "user_name"
	userEmailKey contextKey = "user_email"
)

// WithIdentity stores the authenticated identity (called by middleware).
func WithIdentity(ctx context.Context, clerkID, name, email string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, clerkID)
	ctx = context.WithValue(ctx, userNameKey, name)
	ctx = context.WithValue(ctx, userEmailKey, email)
	return ctx
}

// UserIDFromContext retrieves the external auth subject id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

func UserEmailFromContext(ctx context.Context) string {
	email, _ := ctx.Value(userEmailKey).(string)
	return email
}

func UserNameFromContext(ctx context.Context) string {
	name, _ := ctx.Value(userNameKey).(string)
	return name
}

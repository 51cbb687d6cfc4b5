package agent

import "context"

type contextKey string

const userIDKey contextKey = "agent_user_id"

// WithUserID attaches the calling user's ID to the context. Tools that
// keep per-user state (the memory tool) read it from here.
func WithUserID(ctx context.Context, userID string) context.Context {
	if userID == "" {
		return ctx
	}
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the user ID set by WithUserID, or "default"
// when none was set.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok && id != "" {
		return id
	}
	return "default"
}

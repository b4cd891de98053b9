package logger

import "context"

type contextKey string

const DiscussionIDKey contextKey = "discussion_id"

func WithDiscussionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, DiscussionIDKey, id)
}

func GetDiscussionID(ctx context.Context) string {
	if id, ok := ctx.Value(DiscussionIDKey).(string); ok {
		return id
	}
	return ""
}

package entity

import (
	"context"
	"io"
	"log/slog"
)

type (
	CtxKeyLogger    struct{}
	CtxKeyIP        struct{}
	CtxKeySessionID struct{}
)

func IPFromCtx(ctx context.Context) string {
	ip, ok := ctx.Value(CtxKeyIP{}).(string)
	if !ok {
		return ""
	}

	return ip
}

func LoggerFromContext(ctx context.Context) *slog.Logger {
	log, ok := ctx.Value(CtxKeyLogger{}).(*slog.Logger)
	if !ok {
		return slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	return log
}

func SessionIDFromCtx(ctx context.Context) string {
	sid, ok := ctx.Value(CtxKeySessionID{}).(string)
	if !ok {
		return ""
	}

	return sid
}

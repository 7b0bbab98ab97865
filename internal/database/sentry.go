package database

import (
	"context"

	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5"
)

// sentryQueryTracer reports failed queries to Sentry as breadcrumbs plus a
// captured exception. Successful queries are not recorded.
type sentryQueryTracer struct{}

func (t *sentryQueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, traceSQLKey{}, data.SQL)
}

func (t *sentryQueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	if data.Err == nil {
		return
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	if hub == nil {
		return
	}

	sql, _ := ctx.Value(traceSQLKey{}).(string)
	hub.AddBreadcrumb(&sentry.Breadcrumb{
		Category: "db.query",
		Message:  sql,
		Level:    sentry.LevelError,
	}, nil)
	hub.CaptureException(data.Err)
}

type traceSQLKey struct{}

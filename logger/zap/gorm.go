package zap

import (
	"context"
	"time"

	"github.com/forbearing/admincore/types"
	"github.com/forbearing/admincore/types/consts"
	gorml "gorm.io/gorm/logger"
)

// GormLogger implements gorm logger.Interface. Used only by perm's
// casbin gorm-adapter sqlite connection (spec's PermissionSubsystem),
// not by any generic database engine -- this core has none.
//
// Trimmed from forbearing-gst's GormLogger: dropped the OTEL
// span-context trace-id fallback and the config-driven slow-query
// threshold (both assume a host application's own request-tracing
// stack, which this embeddable core does not carry).
type GormLogger struct{ l types.Logger }

var _ gorml.Interface = (*GormLogger)(nil)

func (g *GormLogger) LogMode(gorml.LogLevel) gorml.Interface           { return g }
func (g *GormLogger) Info(_ context.Context, str string, args ...any)  { g.l.Infow(str, args) }
func (g *GormLogger) Warn(_ context.Context, str string, args ...any)  { g.l.Warnw(str, args) }
func (g *GormLogger) Error(_ context.Context, str string, args ...any) { g.l.Errorw(str, args) }

func (g *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	traceID, _ := ctx.Value(consts.CtxTraceID).(string)
	elapsed := time.Since(begin)
	sql, rows := fc()
	if err != nil {
		g.l.Errorw("sql failed", "sql", sql, "rows", rows, "elapsed", elapsed, "trace_id", traceID, "error", err)
		return
	}
	g.l.Debugw("sql executed", "sql", sql, "rows", rows, "elapsed", elapsed, "trace_id", traceID)
}

// Package consts holds the small set of string/context-key constants
// shared across the core: casbin policy effects, the log timestamp
// layout, and context-value keys used by the logger/perm packages.
//
// forbearing-gst's own types/consts package was not present in the
// retrieval pack (only referenced, never retrieved) -- this is a
// from-scratch reconstruction covering only what this core's adapted
// code actually uses, not the teacher's full ~30-file consts surface
// (HTTP verbs, phases, gin context keys, etc. belong to the gin/router
// layer this core does not carry).
package consts

// Effect is a casbin policy effect.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// LayoutTimeEncoder is the timestamp layout used by zap's JSON/console
// encoders.
const LayoutTimeEncoder = "2006-01-02 15:04:05.000"

// Context value keys, used to thread request-scoped metadata through
// context.Context (consumed by logger/zap's GormLogger and by
// types.RequestContext).
type CtxKey string

const (
	CtxUsername  CtxKey = "username"
	CtxUserID    CtxKey = "user_id"
	CtxRequestID CtxKey = "request_id"
	CtxTraceID   CtxKey = "trace_id"
)

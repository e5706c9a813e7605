// Package types holds the cross-cutting contracts shared by every core
// subsystem: the logger abstraction, the request-scoped Context, the
// Record/FieldSchema data model (spec §3), and the RBAC contract
// consumed by the perm package.
//
// Grounded on forbearing-gst's types package (Logger/RBAC interfaces
// kept and adapted; the gin-bound ControllerContext/ServiceContext are
// replaced by a single HTTP-framework-free Context, since this core has
// no HTTP dependency per spec §1).
package types

import (
	"context"

	"github.com/forbearing/admincore/types/consts"
)

// Record is a mapping from field name to value (spec §3 "Record").
type Record map[string]any

// Link identifies one node in a parent chain: {entity, id}.
type Link struct {
	Entity string
	ID     string
}

// ParentChain is an ordered ancestry, root first, direct parent last
// (spec §3 "Parent chain").
type ParentChain []Link

// RequestContext carries request-scoped metadata through manager
// operations: username/user id for permission checks, a correlation id
// for logging, and the parent chain used for multi-storage routing.
//
// Adapted from forbearing-gst's DatabaseContext, trimmed of the
// gin.Context dependency: this core takes a plain context.Context plus
// this struct instead of wrapping *gin.Context.
type RequestContext struct {
	Username    string
	UserID      string
	RequestID   string
	TraceID     string
	Scope       string
	ParentChain ParentChain

	// CacheSafe restricts a query's filter predicate to fields that are
	// safe to evaluate against the opportunistic cache (spec §4.6).
	CacheSafe bool

	ctx context.Context
}

// NewRequestContext wraps ctx (falling back to context.Background if
// nil) with no metadata set.
func NewRequestContext(ctx context.Context) *RequestContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &RequestContext{ctx: ctx}
}

// Context returns the underlying context.Context, injecting the
// request-scoped metadata as values keyed by the consts.Ctx* constants.
func (rc *RequestContext) Context() context.Context {
	if rc == nil || rc.ctx == nil {
		return context.Background()
	}
	c := rc.ctx
	if rc.Username != "" {
		c = context.WithValue(c, consts.CtxUsername, rc.Username)
	}
	if rc.UserID != "" {
		c = context.WithValue(c, consts.CtxUserID, rc.UserID)
	}
	if rc.RequestID != "" {
		c = context.WithValue(c, consts.CtxRequestID, rc.RequestID)
	}
	if rc.TraceID != "" {
		c = context.WithValue(c, consts.CtxTraceID, rc.TraceID)
	}
	return c
}

// IsDefaultRouting reports whether this request targets the default
// (context-free) storage -- i.e. has no parent chain -- which gates
// whether the opportunistic cache may be consulted (spec §4.6).
func (rc *RequestContext) IsDefaultRouting() bool {
	return rc == nil || len(rc.ParentChain) == 0
}

// RBAC is the role/permission mutation contract the perm package
// implements and the entity package's permission gate consumes.
//
// Kept verbatim in shape from forbearing-gst's types.RBAC.
type RBAC interface {
	AddRole(name string) error
	RemoveRole(name string) error

	GrantPermission(role string, resource string, action string) error
	RevokePermission(role string, resource string, action string) error

	AssignRole(subject string, role string) error
	UnassignRole(subject string, role string) error
}

// FieldSchema describes one entity field (spec §3 "fields schema").
type FieldSchema struct {
	Type      string
	Label     string
	Required  bool
	Default   any // scalar, or func(*RequestContext) any
	Editable  bool
	Listable  bool
	Reference string // referenced entity name, for weak links
	Options   []any
	Validate  func(value any) error
}

// ParentRelation declares a strong-hierarchy parent role (spec §3
// "parents").
type ParentRelation struct {
	Entity     string
	ForeignKey string
}

// ChildRelation declares the inverse of a ParentRelation, with an
// optional explicit nested-backend endpoint (spec §3 "children").
type ChildRelation struct {
	Entity   string
	Endpoint string
}

package policy

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Rule is an application-supplied veto consulted after the base grant and
// permission checks pass. Rules may perform I/O (e.g. read the resource's
// live state) and must honor ctx. A rule can veto but never grant: returning
// an allowing decision just passes control to the next rule.
type Rule func(ctx context.Context, req Request) (Decision, error)

// DecisionRecorder receives the outcome of each evaluation for metrics. The
// reason class is one of the Class constants, never the raw reason string.
type DecisionRecorder interface {
	RecordDecision(allowed bool, reasonClass string, elapsed time.Duration)
}

// Reason classes bucket deny reasons for metrics. Raw reasons embed scope and
// permission names and would blow up label cardinality.
const (
	ClassAllowed           = "allowed"
	ClassCancelled         = "cancelled"
	ClassNoRoles           = "no_roles"
	ClassScopeMismatch     = "scope_mismatch"
	ClassExpired           = "expired"
	ClassMissingPermission = "missing_permission"
	ClassPolicyError       = "policy_error"
	ClassPolicyVeto        = "policy_veto"
)

func classifyDecision(d Decision) string {
	switch {
	case d.Allowed:
		return ClassAllowed
	case d.Reason == "evaluation cancelled":
		return ClassCancelled
	case d.Reason == "User has no roles assigned":
		return ClassNoRoles
	case strings.HasPrefix(d.Reason, "User has no roles for "):
		return ClassScopeMismatch
	case d.Reason == "User role has expired":
		return ClassExpired
	case strings.HasPrefix(d.Reason, "User does not have "):
		return ClassMissingPermission
	case strings.HasPrefix(d.Reason, "Custom policy '") && strings.Contains(d.Reason, "' failed: "):
		return ClassPolicyError
	default:
		// Remaining denials come out of the custom chain, including rules
		// that supply their own reason text.
		return ClassPolicyVeto
	}
}

// Engine evaluates authorization requests against a role catalogue and an
// ordered chain of custom rules. Construct one per process and inject it;
// registration is expected at boot time but is safe concurrently with
// evaluation.
type Engine struct {
	catalogue *Catalogue

	mu    sync.RWMutex
	order []string
	rules map[string]Rule

	recorder DecisionRecorder
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder wires a metrics sink for decisions.
func WithRecorder(rec DecisionRecorder) Option {
	return func(e *Engine) { e.recorder = rec }
}

// WithClock overrides the evaluation clock. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine constructs an engine over the given catalogue.
func NewEngine(catalogue *Catalogue, opts ...Option) *Engine {
	e := &Engine{
		catalogue: catalogue,
		rules:     make(map[string]Rule),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterPolicy stores rule under name, preserving registration order for
// evaluation. Re-registering a name replaces the previous rule in place;
// duplicate registrations do not accumulate.
func (e *Engine) RegisterPolicy(name string, rule Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.rules[name]; !ok {
		e.order = append(e.order, name)
	}
	e.rules[name] = rule
}

// Evaluate runs the decision pipeline: no-roles check, scope relevance
// filter, expiry check, permission coverage, then the custom rule chain in
// registration order. The first failing check wins. The returned error is
// non-nil only for configuration faults (a grant referencing an undefined
// role); every ordinary negative outcome is a Decision, not an error.
func (e *Engine) Evaluate(ctx context.Context, req Request) (Decision, error) {
	start := e.now()
	decision, err := e.evaluate(ctx, req)
	if e.recorder != nil && err == nil {
		e.recorder.RecordDecision(decision.Allowed, classifyDecision(decision), e.now().Sub(start))
	}
	return decision, err
}

func (e *Engine) evaluate(ctx context.Context, req Request) (Decision, error) {
	if ctx.Err() != nil {
		return Deny("evaluation cancelled"), nil
	}
	if len(req.UserRoles) == 0 {
		return Deny("User has no roles assigned"), nil
	}

	var relevant []UserRole
	for _, grant := range req.UserRoles {
		if isRelevant(grant, req) {
			relevant = append(relevant, grant)
		}
	}
	if len(relevant) == 0 {
		return Deny(fmt.Sprintf("User has no roles for %s scope", req.Scope)), nil
	}

	// Any expired relevant grant denies, even when another relevant grant
	// would independently satisfy the permission check. Conservative on
	// purpose; see the expiry tests before changing this.
	now := e.now()
	for _, grant := range relevant {
		if grant.Expired(now) {
			return Deny("User role has expired"), nil
		}
	}

	covered := false
	for _, grant := range relevant {
		ok, err := e.catalogue.HasPermission(grant.Role, req.Action)
		if err != nil {
			return Decision{}, fmt.Errorf("policy: grant for user %s: %w", req.UserID, err)
		}
		if ok {
			covered = true
			break
		}
	}
	if !covered {
		return Deny(fmt.Sprintf("User does not have %s permission", req.Action)), nil
	}

	return e.runRules(ctx, req)
}

// runRules iterates the custom chain in registration order, awaiting each
// rule before the next. Authorization fails closed: cancellation and rule
// errors both deny.
func (e *Engine) runRules(ctx context.Context, req Request) (Decision, error) {
	e.mu.RLock()
	order := make([]string, len(e.order))
	copy(order, e.order)
	rules := make(map[string]Rule, len(e.rules))
	for name, rule := range e.rules {
		rules[name] = rule
	}
	e.mu.RUnlock()

	for _, name := range order {
		if ctx.Err() != nil {
			return Deny("evaluation cancelled"), nil
		}
		decision, err := rules[name](ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return Deny("evaluation cancelled"), nil
			}
			return Deny(fmt.Sprintf("Custom policy '%s' failed: %v", name, err)), nil
		}
		if !decision.Allowed {
			if decision.Reason == "" {
				decision.Reason = fmt.Sprintf("Custom policy '%s' denied access", name)
			}
			return decision, nil
		}
	}
	return Allow(), nil
}

// isRelevant reports whether a grant applies to the request's scope and
// resource. Global grants are always relevant. A same-scope grant matches
// when the request names no resource or the resource pins agree. A strictly
// broader grant covers down unconditionally, ignoring resource pinning.
// Narrower grants never project upward.
func isRelevant(grant UserRole, req Request) bool {
	if grant.Scope == ScopeGlobal {
		return true
	}
	if grant.Scope == req.Scope {
		return req.ResourceID == "" || grant.ResourceID == req.ResourceID
	}
	return grant.Scope.Covers(req.Scope)
}

// CanOptions carries the optional parameters of Can.
type CanOptions struct {
	Scope      Scope
	ResourceID string
	Resource   any
}

// Can is a boolean convenience over Evaluate for call sites that only need a
// yes/no gate. Scope defaults to Global when unset. Configuration faults
// deny.
func (e *Engine) Can(ctx context.Context, userID string, action Permission, userRoles []UserRole, opts CanOptions) bool {
	scope := opts.Scope
	if scope == 0 {
		scope = ScopeGlobal
	}
	decision, err := e.Evaluate(ctx, Request{
		UserID:     userID,
		UserRoles:  userRoles,
		Action:     action,
		Scope:      scope,
		ResourceID: opts.ResourceID,
		Resource:   opts.Resource,
	})
	if err != nil {
		return false
	}
	return decision.Allowed
}

// Catalogue exposes the engine's role catalogue for introspection handlers.
func (e *Engine) Catalogue() *Catalogue {
	return e.catalogue
}

package rbac

import (
	"fmt"
	"sync"
)

// EvaluatorOption configures the Evaluator.
type EvaluatorOption func(*Evaluator)

// WithRoleDefaults replaces the built-in per-role grant templates. Roles
// missing from defaults are denied everything.
func WithRoleDefaults(defaults map[Role]PermissionSet) EvaluatorOption {
	return func(e *Evaluator) {
		e.defaults = make(map[Role]PermissionSet, len(defaults))
		for r, ps := range defaults {
			e.defaults[r] = ps
		}
	}
}

// Evaluator decides access from a role and an optional explicit permission set.
type Evaluator struct {
	defaults map[Role]PermissionSet
	mu       sync.RWMutex
}

func NewEvaluator(opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{defaults: make(map[Role]PermissionSet, len(roles))}
	for _, r := range roles {
		ps, err := DefaultGrants(r)
		if err != nil {
			// the built-in table is static; a failure here is a programming error
			panic(fmt.Sprintf("rbac: invalid default grants for %s: %v", r, err))
		}
		e.defaults[r] = ps
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetRoleDefaults replaces the template for a single role.
func (e *Evaluator) SetRoleDefaults(role Role, ps PermissionSet) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.defaults[role] = ps
}

// RoleDefaults returns the template in effect for role.
func (e *Evaluator) RoleDefaults(role Role) (PermissionSet, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ps, ok := e.defaults[role]
	return ps, ok
}

// Decide checks whether role may perform action on resource.
// Evaluation order: unknown role -> unknown resource -> unsupported action ->
// explicit grants (when given) or role defaults. Every miss is a deny.
func (e *Evaluator) Decide(role Role, explicit *PermissionSet, resource Resource, action Action) Decision {
	if !role.Valid() {
		return Decision{Allowed: false, Reason: fmt.Sprintf("unknown role %q", role)}
	}

	allowed, err := AllowedActions(resource)
	if err != nil {
		return Decision{Allowed: false, Reason: fmt.Sprintf("unknown resource %q", resource)}
	}
	if !allowed.Has(action) {
		return Decision{Allowed: false, Reason: fmt.Sprintf("%s is not supported on %s", action, resource)}
	}

	var grants PermissionSet
	if explicit != nil {
		grants = *explicit
	} else {
		defaults, ok := e.RoleDefaults(role)
		if !ok {
			return Decision{Allowed: false, Reason: fmt.Sprintf("no defaults for role %s", role)}
		}
		grants = defaults
	}

	if !IsGranted(grants, resource, action) {
		return Decision{Allowed: false, Reason: fmt.Sprintf("no permission for %s:%s", resource, action)}
	}
	return Decision{Allowed: true}
}

var _ PolicyEngine = (*Evaluator)(nil)

package rbac

import (
	"errors"
	"fmt"
)

// Grant is the wire form of one resource's granted actions.
type Grant struct {
	Resource Resource `json:"resource"`
	Actions  []Action `json:"actions"`
}

// PermissionSet maps each Resource to its granted actions. The zero value is
// the empty set. A PermissionSet is never mutated after construction; every
// operation returns a new value.
type PermissionSet struct {
	grants map[Resource]ActionSet
}

// Lookup returns the granted actions for r and whether r has an entry at all.
// An entry may exist and still be empty after its last action is toggled off.
func (ps PermissionSet) Lookup(r Resource) (ActionSet, bool) {
	s, ok := ps.grants[r]
	return s, ok
}

// Len returns the number of resource entries, empty ones included.
func (ps PermissionSet) Len() int { return len(ps.grants) }

// Equal reports whether both sets hold the same entries.
func (ps PermissionSet) Equal(other PermissionSet) bool {
	if len(ps.grants) != len(other.grants) {
		return false
	}
	for r, s := range ps.grants {
		o, ok := other.grants[r]
		if !ok || o != s {
			return false
		}
	}
	return true
}

// Equivalent is Equal with empty entries treated as absent, which is how the
// backend sees a set once it has been through GrantList.
func (ps PermissionSet) Equivalent(other PermissionSet) bool {
	for _, r := range Resources() {
		if ps.grants[r] != other.grants[r] {
			return false
		}
	}
	return true
}

func (ps PermissionSet) with(r Resource, s ActionSet) PermissionSet {
	next := make(map[Resource]ActionSet, len(ps.grants)+1)
	for k, v := range ps.grants {
		next[k] = v
	}
	next[r] = s
	return PermissionSet{grants: next}
}

// Toggle adds action to resource's grants if absent and removes it if present.
// An action the resource does not support leaves ps unchanged and returns an
// error wrapping ErrActionNotAllowed (or ErrUnknownResource).
func Toggle(ps PermissionSet, resource Resource, action Action) (PermissionSet, error) {
	allowed, err := AllowedActions(resource)
	if err != nil {
		return ps, err
	}
	if !allowed.Has(action) {
		return ps, fmt.Errorf("%w: %s on %s", ErrActionNotAllowed, action, resource)
	}

	current := ps.grants[resource]
	if current.Has(action) {
		return ps.with(resource, current.Without(action)), nil
	}
	return ps.with(resource, current.With(action)), nil
}

// IsGranted reports whether action is granted on resource.
func IsGranted(ps PermissionSet, resource Resource, action Action) bool {
	current, ok := ps.grants[resource]
	if !ok {
		// default deny: no entry means nothing granted
		return false
	}
	return current.Has(action)
}

// GrantList serializes ps for the backend. Resources come out in declared
// order and entries with no granted actions are omitted.
func (ps PermissionSet) GrantList() []Grant {
	out := make([]Grant, 0, len(ps.grants))
	for _, r := range Resources() {
		s, ok := ps.grants[r]
		if !ok || s.Empty() {
			continue
		}
		out = append(out, Grant{Resource: r, Actions: s.Actions()})
	}
	return out
}

// FromGrantList rebuilds a PermissionSet from its wire form. Duplicate
// resource entries are merged. Unknown resources and actions outside a
// resource's allowed set are dropped; the returned error lists every dropped
// entry while the returned set stays usable.
func FromGrantList(grants []Grant) (PermissionSet, error) {
	next := make(map[Resource]ActionSet, len(grants))
	var errs []error
	for _, g := range grants {
		allowed, err := AllowedActions(g.Resource)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		s := next[g.Resource]
		for _, a := range g.Actions {
			if _, ok := ParseAction(string(a)); !ok {
				errs = append(errs, fmt.Errorf("%w: %q on %s", ErrUnknownAction, a, g.Resource))
				continue
			}
			if !allowed.Has(a) {
				errs = append(errs, fmt.Errorf("%w: %s on %s", ErrActionNotAllowed, a, g.Resource))
				continue
			}
			s = s.With(a)
		}
		next[g.Resource] = s
	}
	return PermissionSet{grants: next}, errors.Join(errs...)
}

// ParseGrantList is the strict form of FromGrantList: any invalid entry
// rejects the whole list.
func ParseGrantList(grants []Grant) (PermissionSet, error) {
	ps, err := FromGrantList(grants)
	if err != nil {
		return PermissionSet{}, err
	}
	return ps, nil
}

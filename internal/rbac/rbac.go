package rbac

import "errors"

var (
	ErrUnknownRole      = errors.New("unknown role")
	ErrUnknownResource  = errors.New("unknown resource")
	ErrUnknownAction    = errors.New("unknown action")
	ErrActionNotAllowed = errors.New("action not allowed for resource")
	ErrMenuItemNotFound = errors.New("menu item not found")
)

// Decision represents the result of an authorization check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// PolicyEngine defines the authorization interface.
type PolicyEngine interface {
	// Decide checks whether role may perform action on resource. explicit, when
	// non-nil, is the user's own permission set and replaces the role defaults.
	Decide(role Role, explicit *PermissionSet, resource Resource, action Action) Decision
}

// Role is the coarse-grained classification of a tenant user.
type Role string

const (
	RoleTenantAdmin Role = "tenant_admin"
	RoleManager     Role = "manager"
	RoleAgent       Role = "agent"
	RoleViewer      Role = "viewer"
)

var roles = []Role{RoleTenantAdmin, RoleManager, RoleAgent, RoleViewer}

// Roles returns every known role.
func Roles() []Role {
	return append([]Role(nil), roles...)
}

// ParseRole maps a wire value to a Role. Anything outside the four tenant
// roles, including the platform-level "super_admin", reports false.
func ParseRole(s string) (Role, bool) {
	for _, r := range roles {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// Label renders the role for display, e.g. "tenant admin".
func (r Role) Label() string {
	b := []byte(r)
	for i, c := range b {
		if c == '_' {
			b[i] = ' '
		}
	}
	return string(b)
}

// Resource names a protected capability area.
type Resource string

const (
	ResourceConversations Resource = "conversations"
	ResourceChatbots      Resource = "chatbots"
	ResourceContacts      Resource = "contacts"
	ResourceCampaigns     Resource = "campaigns"
	ResourceAnalytics     Resource = "analytics"
	ResourceUsers         Resource = "users"
	ResourceSettings      Resource = "settings"
	ResourceTemplates     Resource = "templates"
)

// ParseResource maps a wire value to a Resource.
func ParseResource(s string) (Resource, bool) {
	for _, d := range resourceTable {
		if string(d.resource) == s {
			return d.resource, true
		}
	}
	return "", false
}

// Action is an operation applicable to a Resource.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionSend   Action = "send"
)

// canonical order; an Action's index is its bit in ActionSet
var actions = []Action{ActionRead, ActionCreate, ActionUpdate, ActionDelete, ActionSend}

// Actions returns every known action in canonical order.
func Actions() []Action {
	return append([]Action(nil), actions...)
}

// ParseAction maps a wire value to an Action.
func ParseAction(s string) (Action, bool) {
	for _, a := range actions {
		if string(a) == s {
			return a, true
		}
	}
	return "", false
}

func (a Action) bit() (ActionSet, bool) {
	for i, known := range actions {
		if known == a {
			return ActionSet(1) << i, true
		}
	}
	return 0, false
}

// ActionSet is an immutable set of Actions.
type ActionSet uint8

// NewActionSet builds a set from the given actions, ignoring unknown ones.
func NewActionSet(as ...Action) ActionSet {
	var s ActionSet
	for _, a := range as {
		s = s.With(a)
	}
	return s
}

func (s ActionSet) Has(a Action) bool {
	b, ok := a.bit()
	return ok && s&b != 0
}

func (s ActionSet) With(a Action) ActionSet {
	b, ok := a.bit()
	if !ok {
		return s
	}
	return s | b
}

func (s ActionSet) Without(a Action) ActionSet {
	b, ok := a.bit()
	if !ok {
		return s
	}
	return s &^ b
}

func (s ActionSet) Empty() bool { return s == 0 }

func (s ActionSet) Len() int {
	n := 0
	for v := s; v != 0; v &= v - 1 {
		n++
	}
	return n
}

// SubsetOf reports whether every action in s is also in other.
func (s ActionSet) SubsetOf(other ActionSet) bool {
	return s&^other == 0
}

// Actions lists the members in canonical order.
func (s ActionSet) Actions() []Action {
	out := make([]Action, 0, s.Len())
	for _, a := range actions {
		if s.Has(a) {
			out = append(out, a)
		}
	}
	return out
}

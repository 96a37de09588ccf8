package rbac

import "fmt"

type resourceDef struct {
	resource Resource
	label    string
	allowed  ActionSet
}

// resourceTable is the static allowed-action configuration, in declared order.
var resourceTable = []resourceDef{
	{ResourceConversations, "Conversations", NewActionSet(ActionRead, ActionCreate, ActionUpdate, ActionDelete, ActionSend)},
	{ResourceChatbots, "AI Chatbots", NewActionSet(ActionRead, ActionCreate, ActionUpdate, ActionDelete)},
	{ResourceContacts, "Contacts", NewActionSet(ActionRead, ActionCreate, ActionUpdate, ActionDelete)},
	{ResourceCampaigns, "Campaigns", NewActionSet(ActionRead, ActionCreate, ActionUpdate, ActionDelete, ActionSend)},
	{ResourceAnalytics, "Analytics", NewActionSet(ActionRead)},
	{ResourceUsers, "Users", NewActionSet(ActionRead, ActionCreate, ActionUpdate, ActionDelete)},
	{ResourceSettings, "Settings", NewActionSet(ActionRead, ActionUpdate)},
	{ResourceTemplates, "Templates", NewActionSet(ActionRead, ActionCreate, ActionUpdate, ActionDelete)},
}

// Resources returns every known resource in declared order.
func Resources() []Resource {
	out := make([]Resource, len(resourceTable))
	for i, d := range resourceTable {
		out[i] = d.resource
	}
	return out
}

func lookupResource(r Resource) (resourceDef, error) {
	for _, d := range resourceTable {
		if d.resource == r {
			return d, nil
		}
	}
	return resourceDef{}, fmt.Errorf("%w: %q", ErrUnknownResource, r)
}

// AllowedActions returns the actions that are meaningful for r.
func AllowedActions(r Resource) (ActionSet, error) {
	d, err := lookupResource(r)
	if err != nil {
		return 0, err
	}
	return d.allowed, nil
}

// ResourceLabel returns the display label for r.
func ResourceLabel(r Resource) (string, error) {
	d, err := lookupResource(r)
	if err != nil {
		return "", err
	}
	return d.label, nil
}

// MenuItem describes one entry of the dashboard navigation.
type MenuItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Icon  string `json:"icon"`
	Roles []Role `json:"-"`
}

// VisibleTo reports whether role sees this item by default.
func (m MenuItem) VisibleTo(role Role) bool {
	for _, r := range m.Roles {
		if r == role {
			return true
		}
	}
	return false
}

var defaultMenu = []MenuItem{
	{ID: "conversations", Label: "Conversations", Icon: "message-square", Roles: []Role{RoleTenantAdmin, RoleAgent, RoleManager}},
	{ID: "chatbots", Label: "AI Chatbots", Icon: "bot", Roles: []Role{RoleTenantAdmin, RoleManager}},
	{ID: "contacts", Label: "Contacts", Icon: "users", Roles: []Role{RoleTenantAdmin, RoleManager}},
	{ID: "campaigns", Label: "Campaigns", Icon: "send", Roles: []Role{RoleTenantAdmin, RoleManager}},
	{ID: "templates", Label: "Templates", Icon: "send", Roles: []Role{RoleTenantAdmin, RoleManager}},
	{ID: "analytics", Label: "Analytics", Icon: "bar-chart-3", Roles: []Role{RoleTenantAdmin, RoleManager}},
	{ID: "users", Label: "Users", Icon: "users", Roles: []Role{RoleTenantAdmin}},
	{ID: "settings", Label: "Settings", Icon: "settings", Roles: []Role{RoleTenantAdmin}},
}

// DefaultMenu returns a copy of the application's navigation items.
func DefaultMenu() []MenuItem {
	out := make([]MenuItem, len(defaultMenu))
	for i, m := range defaultMenu {
		m.Roles = append([]Role(nil), m.Roles...)
		out[i] = m
	}
	return out
}

// LookupMenuItem finds a default menu item by id.
func LookupMenuItem(id string) (MenuItem, error) {
	for _, m := range DefaultMenu() {
		if m.ID == id {
			return m, nil
		}
	}
	return MenuItem{}, fmt.Errorf("%w: %q", ErrMenuItemNotFound, id)
}

// defaultGrants mirrors the backend's per-role templates applied at invite time.
var defaultGrants = map[Role][]Grant{
	RoleTenantAdmin: {
		{ResourceConversations, []Action{ActionRead, ActionCreate, ActionUpdate, ActionDelete, ActionSend}},
		{ResourceChatbots, []Action{ActionRead, ActionCreate, ActionUpdate, ActionDelete}},
		{ResourceContacts, []Action{ActionRead, ActionCreate, ActionUpdate, ActionDelete}},
		{ResourceCampaigns, []Action{ActionRead, ActionCreate, ActionUpdate, ActionDelete, ActionSend}},
		{ResourceAnalytics, []Action{ActionRead}},
		{ResourceUsers, []Action{ActionRead, ActionCreate, ActionUpdate, ActionDelete}},
		{ResourceSettings, []Action{ActionRead, ActionUpdate}},
		{ResourceTemplates, []Action{ActionRead, ActionCreate, ActionUpdate, ActionDelete}},
	},
	RoleManager: {
		{ResourceConversations, []Action{ActionRead, ActionCreate, ActionSend}},
		{ResourceChatbots, []Action{ActionRead, ActionUpdate}},
		{ResourceContacts, []Action{ActionRead, ActionCreate, ActionUpdate}},
		{ResourceCampaigns, []Action{ActionRead, ActionCreate, ActionSend}},
		{ResourceAnalytics, []Action{ActionRead}},
		{ResourceUsers, []Action{ActionRead}},
		{ResourceTemplates, []Action{ActionRead}},
	},
	RoleAgent: {
		{ResourceConversations, []Action{ActionRead, ActionSend}},
		{ResourceContacts, []Action{ActionRead}},
	},
	RoleViewer: {
		{ResourceConversations, []Action{ActionRead}},
		{ResourceAnalytics, []Action{ActionRead}},
	},
}

// DefaultGrants returns the permission template a new user of role receives.
func DefaultGrants(role Role) (PermissionSet, error) {
	grants, ok := defaultGrants[role]
	if !ok {
		return PermissionSet{}, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	return ParseGrantList(grants)
}

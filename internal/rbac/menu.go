package rbac

// VisibleMenu filters menu down to the items role sees, keeping their order.
func VisibleMenu(role Role, menu []MenuItem) []MenuItem {
	out := make([]MenuItem, 0, len(menu))
	if !role.Valid() {
		// default deny: stale or malformed roles get an empty sidebar
		return out
	}
	for _, item := range menu {
		if item.VisibleTo(role) {
			out = append(out, item)
		}
	}
	return out
}

// ActiveLabel returns the label of the item with the given id, used as the
// dashboard header title.
func ActiveLabel(menu []MenuItem, id string) (string, bool) {
	for _, item := range menu {
		if item.ID == id {
			return item.Label, true
		}
	}
	return "", false
}

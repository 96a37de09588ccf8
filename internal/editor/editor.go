// Package editor holds the per-user permission grid that an administrator
// edits before saving it back to the backend.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chatpilot-hq/console/internal/auth"
	"github.com/chatpilot-hq/console/internal/rbac"
)

var (
	ErrNotOpen     = errors.New("editor is not open")
	ErrAlreadyOpen = errors.New("editor is already open")
	ErrSaving      = errors.New("save in progress")
	ErrForbidden   = errors.New("not allowed to edit permissions")
)

// State is the editor lifecycle position.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateSaving
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateSaving:
		return "saving"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// PermissionsClient is the slice of the backend API the editor needs.
type PermissionsClient interface {
	UserPermissions(ctx context.Context, userID string) ([]rbac.Grant, error)
	SetUserPermissions(ctx context.Context, userID string, grants []rbac.Grant) error
}

// Cell is one checkbox of the grid.
type Cell struct {
	Action  rbac.Action `json:"action"`
	Granted bool        `json:"granted"`
}

// Row is one resource of the grid with a cell per allowed action.
type Row struct {
	Resource rbac.Resource `json:"resource"`
	Label    string        `json:"label"`
	Cells    []Cell        `json:"cells"`
}

// Editor edits one user's permissions at a time. Saves are last writer wins;
// nothing detects a concurrent change made between Open and Save.
type Editor struct {
	client PermissionsClient
	engine rbac.PolicyEngine

	mu       sync.Mutex
	state    State
	userID   string
	original rbac.PermissionSet
	current  rbac.PermissionSet
}

func New(client PermissionsClient, engine rbac.PolicyEngine) *Editor {
	return &Editor{client: client, engine: engine}
}

// Open loads userID's grants for editing. actor must hold users:update.
// Grants are fetched on every Open; entries the local registry does not know
// are dropped and logged.
func (e *Editor) Open(ctx context.Context, actor *auth.Identity, userID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateClosed {
		return ErrAlreadyOpen
	}
	if actor == nil {
		return fmt.Errorf("%w: no identity", ErrForbidden)
	}
	if d := e.engine.Decide(rbac.Role(actor.Role), nil, rbac.ResourceUsers, rbac.ActionUpdate); !d.Allowed {
		return fmt.Errorf("%w: %s", ErrForbidden, d.Reason)
	}

	grants, err := e.client.UserPermissions(ctx, userID)
	if err != nil {
		return fmt.Errorf("loading permissions: %w", err)
	}
	ps, err := rbac.FromGrantList(grants)
	if err != nil {
		slog.Warn("dropping unrecognised grants", "user_id", userID, "error", err)
	}

	e.userID = userID
	e.original = ps
	e.current = ps
	e.state = StateOpen
	return nil
}

// Toggle flips one checkbox.
func (e *Editor) Toggle(resource rbac.Resource, action rbac.Action) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.editableLocked(); err != nil {
		return err
	}
	next, err := rbac.Toggle(e.current, resource, action)
	if err != nil {
		return err
	}
	e.current = next
	return nil
}

// Granted reports the current checkbox value. A closed editor grants nothing.
func (e *Editor) Granted(resource rbac.Resource, action rbac.Action) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateClosed {
		return false
	}
	return rbac.IsGranted(e.current, resource, action)
}

// Rows renders the grid in declared resource order.
func (e *Editor) Rows() []Row {
	e.mu.Lock()
	current := e.current
	closed := e.state == StateClosed
	e.mu.Unlock()

	if closed {
		return nil
	}
	return BuildRows(current)
}

// BuildRows renders ps as grid rows, one cell per allowed action.
func BuildRows(ps rbac.PermissionSet) []Row {
	resources := rbac.Resources()
	rows := make([]Row, 0, len(resources))
	for _, r := range resources {
		allowed, _ := rbac.AllowedActions(r)
		label, _ := rbac.ResourceLabel(r)
		row := Row{Resource: r, Label: label, Cells: make([]Cell, 0, allowed.Len())}
		for _, a := range allowed.Actions() {
			row.Cells = append(row.Cells, Cell{Action: a, Granted: rbac.IsGranted(ps, r, a)})
		}
		rows = append(rows, row)
	}
	return rows
}

// Dirty reports whether the grid differs from what was loaded.
func (e *Editor) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state != StateClosed && !e.current.Equivalent(e.original)
}

// Grants returns the wire form of the current grid.
func (e *Editor) Grants() []rbac.Grant {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current.GrantList()
}

func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Editor) UserID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.userID
}

// Save sends the grid to the backend. On success the editor closes; on
// failure it returns to Open with the edits intact.
func (e *Editor) Save(ctx context.Context) error {
	e.mu.Lock()
	if err := e.editableLocked(); err != nil {
		e.mu.Unlock()
		return err
	}
	e.state = StateSaving
	userID := e.userID
	grants := e.current.GrantList()
	e.mu.Unlock()

	err := e.client.SetUserPermissions(ctx, userID, grants)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.state = StateOpen
		return fmt.Errorf("saving permissions: %w", err)
	}
	e.resetLocked()
	return nil
}

// Discard closes the editor without contacting the backend.
func (e *Editor) Discard() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.editableLocked(); err != nil {
		return err
	}
	e.resetLocked()
	return nil
}

func (e *Editor) editableLocked() error {
	switch e.state {
	case StateOpen:
		return nil
	case StateSaving:
		return ErrSaving
	default:
		return ErrNotOpen
	}
}

func (e *Editor) resetLocked() {
	e.state = StateClosed
	e.userID = ""
	e.original = rbac.PermissionSet{}
	e.current = rbac.PermissionSet{}
}

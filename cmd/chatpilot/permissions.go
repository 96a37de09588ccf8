package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chatpilot-hq/console/internal/editor"
	"github.com/chatpilot-hq/console/internal/rbac"
)

func newPermissionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "permissions",
		Aliases: []string{"perms"},
		Short:   "Inspect and edit a user's permissions",
	}
	cmd.AddCommand(newPermissionsShowCmd(a), newPermissionsEditCmd(a))
	return cmd
}

func newPermissionsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <user-id>",
		Short: "Print a user's permission grid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := a.signedIn()
			if err != nil {
				return err
			}
			grants, err := client.UserPermissions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			ps, err := rbac.FromGrantList(grants)
			if err != nil {
				slog.Warn("ignoring unrecognised grants", "error", err)
			}
			printGrid(a.out, editor.BuildRows(ps))
			return nil
		},
	}
}

func newPermissionsEditCmd(a *app) *cobra.Command {
	var (
		toggles []string
		dryRun  bool
	)
	cmd := &cobra.Command{
		Use:   "edit <user-id>",
		Short: "Toggle permissions and save them",
		Example: "  chatpilot permissions edit 42 --toggle contacts:read --toggle campaigns:send\n" +
			"  chatpilot permissions edit 42 --toggle users:delete --dry-run",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(toggles) == 0 {
				return fmt.Errorf("at least one --toggle is required")
			}
			type toggle struct {
				resource rbac.Resource
				action   rbac.Action
			}
			parsed := make([]toggle, 0, len(toggles))
			for _, t := range toggles {
				res, act, err := parseToggle(t)
				if err != nil {
					return err
				}
				parsed = append(parsed, toggle{res, act})
			}

			s, client, err := a.signedIn()
			if err != nil {
				return err
			}

			ed := editor.New(client, rbac.NewEvaluator())
			if err := ed.Open(cmd.Context(), s.Identity(), args[0]); err != nil {
				return err
			}
			for _, t := range parsed {
				if err := ed.Toggle(t.resource, t.action); err != nil {
					_ = ed.Discard()
					return err
				}
			}

			printGrid(a.out, ed.Rows())

			switch {
			case dryRun:
				fmt.Fprintln(a.out, "Dry run: nothing saved")
				return ed.Discard()
			case !ed.Dirty():
				fmt.Fprintln(a.out, "No changes")
				return ed.Discard()
			}
			if err := ed.Save(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, ok("Permissions saved"))
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&toggles, "toggle", nil, "resource:action to flip (repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the result without saving")
	return cmd
}

// parseToggle reads "resource:action" and checks the pair is one the
// registry allows.
func parseToggle(s string) (rbac.Resource, rbac.Action, error) {
	res, act, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found || res == "" || act == "" {
		return "", "", fmt.Errorf("invalid toggle %q: want resource:action", s)
	}
	resource, known := rbac.ParseResource(res)
	if !known {
		return "", "", fmt.Errorf("%w: %q", rbac.ErrUnknownResource, res)
	}
	action, known := rbac.ParseAction(act)
	if !known {
		return "", "", fmt.Errorf("%w: %q", rbac.ErrUnknownAction, act)
	}
	allowed, err := rbac.AllowedActions(resource)
	if err != nil {
		return "", "", err
	}
	if !allowed.Has(action) {
		return "", "", fmt.Errorf("%w: %s on %s", rbac.ErrActionNotAllowed, action, resource)
	}
	return resource, action, nil
}

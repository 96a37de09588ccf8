package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/chatpilot-hq/console/internal/backend"
	"github.com/chatpilot-hq/console/internal/rbac"
)

func newUsersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage the users of your tenant",
	}
	cmd.AddCommand(newUsersListCmd(a), newUsersInviteCmd(a), newUsersDeleteCmd(a))
	return cmd
}

func newUsersListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tenant users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, client, err := a.signedIn()
			if err != nil {
				return err
			}
			users, err := client.ListTenantUsers(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE")
			for _, u := range users {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, rbac.Role(u.Role).Label())
			}
			return tw.Flush()
		},
	}
}

func newUsersInviteCmd(a *app) *cobra.Command {
	var (
		req     backend.InviteRequest
		toggles []string
	)
	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Invite a user into your tenant",
		Long: "Invite a user into your tenant. Each --grant adds one resource:action to\n" +
			"the new user's permissions; without any the role's default grants are used.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ps, err := rbac.DefaultGrants(rbac.Role(req.Role))
			if err != nil {
				return err
			}
			if len(toggles) > 0 {
				ps = rbac.PermissionSet{}
			}
			for _, t := range toggles {
				res, act, err := parseToggle(t)
				if err != nil {
					return err
				}
				if rbac.IsGranted(ps, res, act) {
					continue
				}
				if ps, err = rbac.Toggle(ps, res, act); err != nil {
					return err
				}
			}
			req.Permissions = ps.GrantList()

			_, client, err := a.signedIn()
			if err != nil {
				return err
			}
			inv, err := client.InviteUser(cmd.Context(), req)
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "Invited %s <%s> as %s\n", bold(inv.User.Name), inv.User.Email, rbac.Role(inv.User.Role).Label())
			fmt.Fprintf(a.out, "Temporary password: %s\n", warn(inv.TemporaryPassword))
			fmt.Fprintln(a.out, "Share it now; it is not stored and cannot be shown again.")
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "display name")
	cmd.Flags().StringVar(&req.Email, "email", "", "email address")
	cmd.Flags().StringVar(&req.Role, "role", string(rbac.RoleAgent), "tenant_admin, manager, agent or viewer")
	cmd.Flags().StringArrayVar(&toggles, "grant", nil, "resource:action to grant (repeatable)")
	return cmd
}

func newUsersDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Remove a user from your tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, client, err := a.signedIn()
			if err != nil {
				return err
			}
			if args[0] == s.User.ID {
				return fmt.Errorf("refusing to delete the signed-in user")
			}
			if err := client.DeleteUser(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted user %s\n", args[0])
			return nil
		},
	}
}

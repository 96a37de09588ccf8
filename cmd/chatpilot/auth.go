package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chatpilot-hq/console/internal/backend"
	"github.com/chatpilot-hq/console/internal/rbac"
	"github.com/chatpilot-hq/console/internal/session"
)

func newLoginCmd(a *app) *cobra.Command {
	var req backend.LoginRequest
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.client().Login(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.begin(res)
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "account email")
	cmd.Flags().StringVar(&req.Password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newSignupCmd(a *app) *cobra.Command {
	var req backend.SignupRequest
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account (and a tenant) and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.client().Signup(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.begin(res)
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "account email")
	cmd.Flags().StringVar(&req.Password, "password", "", "account password")
	cmd.Flags().StringVar(&req.Name, "name", "", "display name")
	cmd.Flags().StringVar(&req.TenantName, "tenant", "", "name of the tenant to create")
	return cmd
}

func (a *app) begin(res *backend.AuthResult) error {
	if _, err := a.tokens().ValidateToken(res.Token); err != nil {
		return fmt.Errorf("backend issued an unusable token: %w", err)
	}
	if _, err := session.Begin(a.store, res.Token, res.User); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed in as %s (%s)\n", bold(res.User.Name), rbac.Role(res.User.Role).Label())
	return nil
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := session.End(a.store); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Signed out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := session.Init(a.store, a.tokens())
			if err != nil {
				return err
			}
			id := s.Identity()
			fmt.Fprintf(a.out, "%s <%s>\n", bold(id.Name), id.Email)
			fmt.Fprintf(a.out, "role:   %s\n", rbac.Role(id.Role).Label())
			if id.TenantID != "" {
				fmt.Fprintf(a.out, "tenant: %s\n", id.TenantID)
			}
			return nil
		},
	}
}

func newMenuCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "List the dashboard sections available to the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := session.Init(a.store, a.tokens())
			if err != nil {
				return err
			}
			printMenu(a.out, rbac.VisibleMenu(rbac.Role(s.User.Role), rbac.DefaultMenu()))
			return nil
		},
	}
}

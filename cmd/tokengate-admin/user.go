package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/tokengate/internal/infrastructure/persistence/postgres"
	"github.com/turtacn/tokengate/pkg/logger"
)

func newUserCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage registered accounts",
	}

	var email, role string
	grantCmd := &cobra.Command{
		Use:   "grant-role",
		Short: "Grant a role to a registered user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withUsers(cmd, func(users *postgres.UserRepository) error {
				if err := users.AssignRole(cmd.Context(), email, role); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "granted %s to %s\n", role, email)
				return nil
			})
		},
	}
	grantCmd.Flags().StringVar(&email, "email", "", "email of the user")
	grantCmd.Flags().StringVar(&role, "role", "", "role name, e.g. ROLE_ADMIN")
	_ = grantCmd.MarkFlagRequired("email")
	_ = grantCmd.MarkFlagRequired("role")

	var statusEmail string
	var enabled, locked bool
	statusCmd := &cobra.Command{
		Use:   "set-status",
		Short: "Enable, disable, lock or unlock an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withUsers(cmd, func(users *postgres.UserRepository) error {
				if err := users.SetAccountStatus(cmd.Context(), statusEmail, enabled, locked); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: enabled=%t locked=%t\n", statusEmail, enabled, locked)
				return nil
			})
		},
	}
	statusCmd.Flags().StringVar(&statusEmail, "email", "", "email of the user")
	statusCmd.Flags().BoolVar(&enabled, "enabled", true, "whether the account may log in")
	statusCmd.Flags().BoolVar(&locked, "locked", false, "whether the account is locked")
	_ = statusCmd.MarkFlagRequired("email")

	cmd.AddCommand(grantCmd, statusCmd)
	return cmd
}

// withUsers opens the configured database for the duration of fn.
func (o *rootOptions) withUsers(cmd *cobra.Command, fn func(*postgres.UserRepository) error) error {
	cfg, err := o.load()
	if err != nil {
		return err
	}
	log := logger.NewNoopLogger()
	conn, err := postgres.NewDBConnection(cmd.Context(), cfg.Database, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	if cfg.Database.AutoMigrate {
		if err := conn.Migrate(cmd.Context()); err != nil {
			return err
		}
	}
	return fn(postgres.NewUserRepository(conn.DB(), log))
}

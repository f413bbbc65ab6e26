package main

import (
	"fmt"

	"github.com/adrianoneco/app-chatapp/internal/repository"
	"github.com/adrianoneco/app-chatapp/internal/service"

	"github.com/spf13/cobra"
)

func newSetPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-password <email> <password>",
		Short: "Reset a user's password and revoke their sessions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := connect(ctx)
			if err != nil {
				return err
			}
			defer e.pool.Close()

			users := service.NewUserService(
				repository.NewUserRepository(e.pool),
				repository.NewSessionRepository(e.pool),
				nil,
			)
			if err := users.SetPassword(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "password updated for %s\n", args[0])
			return nil
		},
	}
}

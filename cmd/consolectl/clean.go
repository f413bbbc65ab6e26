package main

import (
	"fmt"

	"github.com/adrianoneco/app-chatapp/internal/repository"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newCleanDataCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clean-data",
		Short: "Delete every conversation with its messages and expired refresh tokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete data without --yes")
			}
			ctx := cmd.Context()
			e, err := connect(ctx)
			if err != nil {
				return err
			}
			defer e.pool.Close()

			convs, err := repository.NewConversationRepository(e.pool).DeleteAll(ctx)
			if err != nil {
				return err
			}
			tokens, err := repository.NewSessionRepository(e.pool).CleanupExpired(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "removed %s %s\n", humanize.Comma(convs), plural(convs, "conversation"))
			fmt.Fprintf(out, "removed %s expired %s\n", humanize.Comma(tokens), plural(tokens, "refresh token"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the deletion")
	return cmd
}

func plural(n int64, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

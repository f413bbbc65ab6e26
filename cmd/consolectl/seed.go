package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/adrianoneco/app-chatapp/internal/database"
	"github.com/adrianoneco/app-chatapp/internal/model"
	"github.com/adrianoneco/app-chatapp/internal/repository"
	"github.com/adrianoneco/app-chatapp/internal/service"

	"github.com/spf13/cobra"
)

type seedOptions struct {
	adminEmail    string
	adminPassword string
	clientEmail   string
	clientPass    string
}

func newSeedCmd() *cobra.Command {
	opts := &seedOptions{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a demo admin, client, channel and conversation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := connect(ctx)
			if err != nil {
				return err
			}
			defer e.pool.Close()

			if err := database.RunMigrations(ctx, e.pool); err != nil {
				return err
			}
			return seed(ctx, e, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.adminEmail, "admin-email", "admin@example.com", "admin account email")
	cmd.Flags().StringVar(&opts.adminPassword, "admin-password", "admin123", "admin account password")
	cmd.Flags().StringVar(&opts.clientEmail, "client-email", "client@example.com", "client account email")
	cmd.Flags().StringVar(&opts.clientPass, "client-password", "client123", "client account password")
	return cmd
}

func seed(ctx context.Context, e *env, opts *seedOptions, out io.Writer) error {
	userRepo := repository.NewUserRepository(e.pool)
	users := service.NewUserService(userRepo, repository.NewSessionRepository(e.pool), nil)
	channels := service.NewChannelService(repository.NewChannelRepository(e.pool))
	conversations := service.NewConversationService(
		repository.NewConversationRepository(e.pool),
		repository.NewMessageRepository(e.pool),
		userRepo, nil, nil,
	)

	admin, err := ensureUser(ctx, users, userRepo, &model.CreateUserRequest{
		Email: opts.adminEmail, Password: opts.adminPassword, Name: "Administrator", Role: model.RoleAdmin,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "admin   %s (%s)\n", admin.Email, admin.ID)

	client, err := ensureUser(ctx, users, userRepo, &model.CreateUserRequest{
		Email: opts.clientEmail, Password: opts.clientPass, Name: "Demo Client", Role: model.RoleClient,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "client  %s (%s)\n", client.Email, client.ID)

	principal := &model.Principal{UserID: admin.ID, Name: admin.Name, Role: model.RoleAdmin}

	name, typ := "Website", model.ChannelWeb
	channel, err := channels.Create(ctx, principal, &model.ChannelRequest{Name: &name, Type: &typ})
	if err != nil {
		return fmt.Errorf("create channel: %w", err)
	}
	fmt.Fprintf(out, "channel %s (%s)\n", channel.Slug, channel.ID)

	subject := "Welcome"
	conv, err := conversations.Create(ctx, principal, &model.CreateConversationRequest{
		ClientID:  client.ID,
		ChannelID: &channel.ID,
		Subject:   &subject,
	})
	if err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	fmt.Fprintf(out, "conversation %s (%s)\n", conv.Protocol, conv.ID)
	return nil
}

// ensureUser returns the existing user with the request's email or provisions it.
func ensureUser(ctx context.Context, users *service.UserService, repo *repository.UserRepository, req *model.CreateUserRequest) (*model.User, error) {
	existing, err := repo.GetByEmail(ctx, req.Email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	u, err := users.Provision(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", req.Email, err)
	}
	return u, nil
}

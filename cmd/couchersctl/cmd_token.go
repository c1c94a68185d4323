package main

import (
	"fmt"
	"time"

	"github.com/couchers-org/couchers-backend/internal/services"
	"github.com/couchers-org/couchers-backend/internal/token"
	"github.com/spf13/cobra"
)

func (c *cli) tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint API access tokens",
	}

	var (
		username string
		ttl      time.Duration
	)
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue a signed access token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := services.NewUserService(c.db).GetByUsername(username)
			if err != nil {
				return fmt.Errorf("user %q: %w", username, err)
			}
			if ttl <= 0 {
				ttl = c.cfg.JWTTokenExpiry
			}

			signed, err := token.Issue(c.cfg.JWTSecret, user.ID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(out(cmd), signed)
			return nil
		},
	}
	issue.Flags().StringVar(&username, "user", "", "username the token is issued for")
	issue.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to JWT_TOKEN_EXPIRY)")
	_ = issue.MarkFlagRequired("user")

	cmd.AddCommand(issue)
	return cmd
}

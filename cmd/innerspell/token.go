package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hopetreehub/innerspell/internal/auth"
)

var tokenCmd = &cobra.Command{
	Use:   "token <user_id>",
	Short: "Issue a bearer token signed with JWT_SECRET",
	Long: `Token signs an HS256 bearer token for a user id. It is meant for local
development and scripted tests against the API.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := os.Getenv("JWT_SECRET")
		if secret == "" {
			return errors.New("JWT_SECRET is not set")
		}
		email, _ := cmd.Flags().GetString("email")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		tok, err := auth.Issue([]byte(secret), args[0], email, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().String("email", "", "Email claim")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
}

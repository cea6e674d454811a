package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/garyjia/coselection/internal/domain/permission"
	"github.com/garyjia/coselection/internal/infrastructure/auth"
)

var (
	tokenActorID string
	tokenRole    string
	tokenName    string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for an actor",
	Example: `  lifecyclectl token --id u-42 --role reviewer --name "Riley"
  lifecyclectl token --id system --role system --ttl 1h`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ttl := cfg.Auth.TokenTTL
		if tokenTTL > 0 {
			ttl = tokenTTL
		}
		tokens, err := auth.NewTokenService(cfg.Auth.Secret, cfg.Auth.Issuer, ttl)
		if err != nil {
			return err
		}

		role := permission.Role(tokenRole)
		if !role.IsValid() {
			return fmt.Errorf("unknown role %q, expected one of %v", tokenRole, permission.Roles())
		}

		token, err := tokens.Issue(permission.Actor{ID: tokenActorID, Role: role, DisplayName: tokenName})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenActorID, "id", "", "actor id (required)")
	tokenCmd.Flags().StringVar(&tokenRole, "role", "", "submitter, reviewer, finance or system (required)")
	tokenCmd.Flags().StringVar(&tokenName, "name", "", "display name")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime, defaults to auth.token_ttl")
	_ = tokenCmd.MarkFlagRequired("id")
	_ = tokenCmd.MarkFlagRequired("role")
}

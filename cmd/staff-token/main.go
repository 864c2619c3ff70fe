// Command staff-token issues a bearer token for the staff-only ticket routes.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/spec-kit/ticket-intake/internal/auth"
	"github.com/spec-kit/ticket-intake/internal/config"
	"github.com/spec-kit/ticket-intake/internal/domain"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "staff-token:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var (
		id   string
		name string
		role string
		ttl  int
	)
	flagSet := pflag.NewFlagSet("staff-token", pflag.ContinueOnError)
	flagSet.StringVar(&id, "id", "", "staff member id (required)")
	flagSet.StringVar(&name, "name", "", "display name")
	flagSet.StringVar(&role, "role", string(domain.StaffRoleAgent), "AGENT, TEAM_LEAD or ADMIN")
	flagSet.IntVar(&ttl, "ttl-minutes", cfg.Auth.AccessTokenTTLMinutes, "token lifetime")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	if cfg.Auth.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET is not set")
	}
	if id == "" {
		return errors.New("--id is required")
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, ttl)
	token, expiresAt, err := tokens.GenerateToken(domain.Staff{ID: id, Name: name, Role: domain.StaffRole(role)})
	if err != nil {
		return err
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires %s\n", expiresAt.UTC().Format(time.RFC3339))
	return nil
}

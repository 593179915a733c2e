// Command token mints a signed bearer token for local development and smoke tests.
// Production tokens come from the identity provider; this tool refuses to run when
// GO_ENV is production.
//
//	go run ./cmd/token -user alice -email alice@example.com -admin -ttl 2h
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"ticketinventory/config"
	"ticketinventory/internal/adapters/auth"
	"ticketinventory/internal/domain"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	if err := run(cfg, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func run(cfg *config.Config, args []string, out io.Writer) error {
	if cfg.Environment == "production" {
		return fmt.Errorf("token minting is disabled in production")
	}

	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(out)
	userID := fs.String("user", "", "subject (user id) of the token")
	email := fs.String("email", "", "email claim")
	admin := fs.Bool("admin", false, "grant the admin role")
	roles := fs.String("roles", "", "extra comma-separated roles")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == "" {
		return fmt.Errorf("-user is required")
	}
	if *ttl <= 0 {
		return fmt.Errorf("-ttl must be positive")
	}

	var claims []string
	for _, r := range strings.Split(*roles, ",") {
		if r = strings.TrimSpace(r); r != "" {
			claims = append(claims, r)
		}
	}
	if *admin {
		claims = append(claims, domain.RoleAdmin)
	}

	token, err := auth.NewJWTIssuer(cfg.JWTSecret).Issue(*userID, *email, claims, *ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}

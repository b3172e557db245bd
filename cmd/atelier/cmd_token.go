package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/HerbHall/atelier/internal/auth"
	"github.com/HerbHall/atelier/internal/config"
)

// runToken prints a signed access token for local development and scripts.
func runToken(args []string) {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	subject := fs.String("subject", "", "user id placed in the sub claim (required)")
	email := fs.String("email", "", "email claim")
	role := fs.String("role", auth.RoleAdmin, "app_metadata.role claim")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *subject == "" {
		fmt.Fprintln(os.Stderr, "error: --subject is required")
		fs.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "token failed: %v\n", err)
		os.Exit(1)
	}
	var opts []auth.VerifierOption
	if iss := cfg.GetString("auth.issuer"); iss != "" {
		opts = append(opts, auth.WithIssuer(iss))
	}
	v, err := auth.NewVerifier(cfg.GetString("auth.jwt_secret"), opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "token failed: %v\n", err)
		os.Exit(1)
	}
	tok, err := v.Sign(auth.Principal{Subject: *subject, Email: *email, Role: *role}, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "token failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}

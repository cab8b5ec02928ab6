package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"classplanner/internal/config"
	"classplanner/internal/security"
)

// tokengen prints a bearer token for the /api routes
func main() {
	subject := flag.String("subject", "teacher", "Token subject")
	role := flag.String("role", "teacher", "Role claim")
	ttl := flag.Duration("ttl", 30*24*time.Hour, "Token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.APITokenSecret == "" {
		fmt.Fprintln(os.Stderr, "API_TOKEN_SECRET is not set")
		os.Exit(1)
	}

	token, err := security.NewTokenManager(cfg.APITokenSecret).Issue(*subject, *role, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to issue token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

// scrcr-admin is the operator CLI for account maintenance: bootstrapping
// the first admin, unlocking accounts, and disabling them. It talks to
// the database directly and never goes through the HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/scrcr/scrcr-server/pkg/auth"
	"github.com/scrcr/scrcr-server/pkg/config"
	"github.com/scrcr/scrcr-server/pkg/db"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	conn, err := db.Connect(cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store := auth.NewPostgresStore(conn)

	switch os.Args[1] {
	case "bootstrap-admin":
		err = bootstrapAdmin(ctx, log, store, os.Args[2:])
	case "unlock":
		err = unlock(ctx, log, store, os.Args[2:])
	case "disable":
		err = setStatus(ctx, log, store, os.Args[2:], auth.StatusInactive, "disabled")
	case "enable":
		err = setStatus(ctx, log, store, os.Args[2:], auth.StatusActive, "enabled")
	case "list":
		err = list(ctx, store)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.WithError(err).Fatal("command failed")
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: scrcr-admin <command> [args]

commands:
  bootstrap-admin <username>   create the initial admin account (prompts for password)
  unlock <username>            clear a lockout
  disable <username>           set an account inactive
  enable <username>            set an account active
  list                         list all accounts`)
}

func requireUsername(args []string) (string, error) {
	if len(args) != 1 || args[0] == "" {
		return "", fmt.Errorf("expected exactly one argument: the username")
	}
	return args[0], nil
}

func bootstrapAdmin(ctx context.Context, log *logrus.Logger, store *auth.PostgresStore, args []string) error {
	username, err := requireUsername(args)
	if err != nil {
		return err
	}

	// Refuse to bootstrap when an admin already exists.
	accounts, err := store.List(ctx)
	if err != nil {
		return err
	}
	for _, a := range accounts {
		if a.Role == auth.RoleAdmin {
			return fmt.Errorf("an admin account already exists (%s); use the API to create more", a.Username)
		}
	}

	password, err := promptPassword()
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	account := &auth.Account{
		Username:     username,
		Email:        username + "@localhost",
		FullName:     "Administrator",
		PasswordHash: hash,
		Role:         auth.RoleAdmin,
		Status:       auth.StatusActive,
	}
	if err := store.Create(ctx, account); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"id":       account.ID,
		"username": account.Username,
	}).Info("admin account created")
	return nil
}

func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	fmt.Fprint(os.Stderr, "Confirm password: ")
	confirm, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	if string(password) != string(confirm) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(password), nil
}

func unlock(ctx context.Context, log *logrus.Logger, store *auth.PostgresStore, args []string) error {
	username, err := requireUsername(args)
	if err != nil {
		return err
	}
	account, err := store.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	if err := store.Unlock(ctx, account.ID); err != nil {
		return err
	}
	log.WithField("username", username).Info("account unlocked")
	return nil
}

func setStatus(ctx context.Context, log *logrus.Logger, store *auth.PostgresStore, args []string, status auth.Status, verb string) error {
	username, err := requireUsername(args)
	if err != nil {
		return err
	}
	account, err := store.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	if _, err := store.Update(ctx, account.ID, auth.AccountUpdate{Status: &status}); err != nil {
		return err
	}
	log.WithField("username", username).Infof("account %s", verb)
	return nil
}

func list(ctx context.Context, store *auth.PostgresStore) error {
	accounts, err := store.List(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%-6s %-20s %-16s %-10s %s\n", "ID", "USERNAME", "ROLE", "STATUS", "FAILED")
	for _, a := range accounts {
		fmt.Printf("%-6d %-20s %-16s %-10s %d\n",
			a.ID, a.Username, a.Role, a.Status, a.FailedAttempts)
	}
	return nil
}

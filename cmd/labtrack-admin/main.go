package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mspacademy/labtrack/pkg/auth"
	"github.com/mspacademy/labtrack/pkg/config"
	"github.com/mspacademy/labtrack/pkg/progress"
	"github.com/mspacademy/labtrack/pkg/storage"
)

const usage = `labtrack-admin - operational tooling for the labtrack service

Usage:
  labtrack-admin create-admin -name NAME -email EMAIL -password PASSWORD
  labtrack-admin purge-sessions [-user USER_ID]
  labtrack-admin stats

Configuration is read from the same LABTRACK_* environment variables as the
server; LABTRACK_REDIS_URL selects the store.
`

func main() {
	logger := setupLogger(os.Getenv("LABTRACK_LOG_LEVEL"))

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	store, err := storage.NewRedisStore(cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to connect to redis: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch os.Args[1] {
	case "create-admin":
		createAdmin(ctx, logger, store, cfg, os.Args[2:])
	case "purge-sessions":
		purgeSessions(ctx, logger, store, cfg, os.Args[2:])
	case "stats":
		stats(ctx, logger, store, cfg)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
}

// createAdmin provisions an admin account directly in the store, bypassing
// the public registration flow and its role restriction.
func createAdmin(ctx context.Context, logger *logrus.Logger, store storage.Store, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("create-admin", flag.ExitOnError)
	name := fs.String("name", "", "Display name for the admin account")
	email := fs.String("email", "", "Email address for the admin account")
	password := fs.String("password", "", "Initial password")
	fs.Parse(args)

	if *name == "" || *email == "" || *password == "" {
		logger.Fatal("create-admin requires -name, -email and -password")
	}
	if len(*password) < cfg.Auth.MinPasswordLength {
		logger.Fatalf("Password must be at least %d characters", cfg.Auth.MinPasswordLength)
	}

	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	hash, err := hasher.Hash(*password)
	if err != nil {
		logger.Fatalf("Failed to hash password: %v", err)
	}

	users := auth.NewUserStore(store)
	user, err := users.Create(ctx, *name, *email, hash, auth.RoleAdmin)
	if err != nil {
		logger.Fatalf("Failed to create admin: %v", err)
	}

	logger.WithFields(logrus.Fields{
		"id":    user.ID,
		"email": user.Email,
	}).Info("Admin account created")
}

// purgeSessions destroys sessions: all of one user's with -user, or every
// live session otherwise (forcing a fleet-wide re-login).
func purgeSessions(ctx context.Context, logger *logrus.Logger, store storage.Store, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("purge-sessions", flag.ExitOnError)
	userID := fs.String("user", "", "Only purge sessions belonging to this user ID")
	fs.Parse(args)

	users := auth.NewUserStore(store)
	sessions := auth.NewSessionStore(store, users, cfg.Auth.SessionTTL, cfg.Auth.RememberMeTTL)

	if *userID != "" {
		deleted, err := sessions.DestroyAllForUser(ctx, *userID)
		if err != nil {
			logger.Fatalf("Failed to purge sessions: %v", err)
		}
		logger.WithFields(logrus.Fields{
			"user_id": *userID,
			"deleted": deleted,
		}).Info("Sessions purged")
		return
	}

	keys, err := store.List(ctx, "session:")
	if err != nil {
		logger.Fatalf("Failed to list sessions: %v", err)
	}
	deleted := 0
	for _, key := range keys {
		if err := store.Delete(ctx, key); err == nil {
			deleted++
		}
	}
	logger.WithField("deleted", deleted).Info("All sessions purged")
}

// stats prints a JSON summary of the deployment: user count, live sessions
// and aggregate lab completion.
func stats(ctx context.Context, logger *logrus.Logger, store storage.Store, cfg *config.Config) {
	users := auth.NewUserStore(store)
	sessions := auth.NewSessionStore(store, users, cfg.Auth.SessionTTL, cfg.Auth.RememberMeTTL)
	progressStore := progress.NewStore(store)

	allUsers, err := users.List(ctx)
	if err != nil {
		logger.Fatalf("Failed to list users: %v", err)
	}

	sessionCount, err := sessions.Count(ctx)
	if err != nil {
		logger.Fatalf("Failed to count sessions: %v", err)
	}

	rows, err := progressStore.Export(ctx)
	if err != nil {
		logger.Fatalf("Failed to export progress: %v", err)
	}

	admins := 0
	for _, u := range allUsers {
		if u.Role == auth.RoleAdmin {
			admins++
		}
	}

	tracked, completed := 0, 0
	for _, row := range rows {
		tracked += row.LabsTracked
		completed += row.LabsCompleted
	}

	out := map[string]interface{}{
		"users":                  len(allUsers),
		"admins":                 admins,
		"active_sessions":        sessionCount,
		"trainees_with_progress": len(rows),
		"labs_tracked":           tracked,
		"labs_completed":         completed,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Fatalf("Failed to encode stats: %v", err)
	}
}

func setupLogger(logLevel string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}

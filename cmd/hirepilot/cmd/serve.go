package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hirepilot/hirepilot/internal/core/api"
	"github.com/hirepilot/hirepilot/internal/core/auth"
	"github.com/hirepilot/hirepilot/internal/core/config"
	"github.com/hirepilot/hirepilot/internal/core/db"
	"github.com/hirepilot/hirepilot/internal/core/server"
	"github.com/hirepilot/hirepilot/internal/engine"
	"github.com/hirepilot/hirepilot/internal/types"
)

const Version = "0.1.0"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP decision API service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "HTTP server host")
	serveCmd.Flags().Int("port", 8080, "HTTP server port")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("host") {
		host, _ := cmd.Flags().GetString("host")
		cfg.Host = host
	}
	if cmd.Flags().Changed("port") {
		port, _ := cmd.Flags().GetInt("port")
		cfg.Port = port
	}

	if dbURL == "" {
		return fmt.Errorf("--db-url required")
	}
	database, err := db.Open(dbURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	var migrationID string
	checkQuery := `SELECT migration_id FROM migrations WHERE migration_id = '001_initial_schema.sql'`
	err = database.Get(&migrationID, database.Rebind(checkQuery))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("migration 001_initial_schema not applied - run 'hirepilot migrate' first")
		}
		return fmt.Errorf("failed to check migrations: %w", err)
	}

	queries, err := db.LoadQueries(database)
	if err != nil {
		return fmt.Errorf("failed to load queries: %w", err)
	}
	repo := db.NewRepository(queries)

	secrets, err := config.HMACSecrets()
	if err != nil {
		return fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	if len(secrets) == 0 {
		return fmt.Errorf("no HMAC secrets configured (set HP_HMAC_SECRET environment variable)")
	}

	authenticator := auth.NewAuthenticator(secrets, queries)

	eng := engine.New(engine.Options{
		DefaultAutonomyLevel: types.AutonomyLevel(cfg.DefaultAutonomyLevel),
		MaxActionsPerHour:    cfg.MaxActionsPerHour,
		ApprovalExpiration:   time.Duration(cfg.ApprovalExpirationMinutes) * time.Minute,
		UndoWindow:           time.Duration(cfg.UndoWindowMinutes) * time.Minute,
		SweepInterval:        cfg.SweepInterval,
		EnableLogging:        cfg.EnableLogging,
	})
	defer eng.Close()

	// Hydrate the engine from storage so rules survive restarts.
	rules, err := repo.LoadRules()
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}
	for _, rule := range rules {
		if err := eng.AddRule(rule); err != nil {
			return fmt.Errorf("failed to restore rule %s: %w", rule.ID, err)
		}
	}
	log.Printf("Restored %d rules from storage", len(rules))

	service, err := api.NewService(eng, repo, cfg, log.Default())
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	httpServer, err := server.NewHTTPServer(cfg, service, authenticator)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	log.Printf("Starting HirePilot decision API v%s on %s:%d", Version, cfg.Host, cfg.Port)
	errChan := make(chan error, 1)
	go func() {
		errChan <- httpServer.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-sigChan:
		log.Println("Shutting down gracefully...")
		return httpServer.Shutdown(ctx)
	}
}

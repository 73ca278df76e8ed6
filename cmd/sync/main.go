// Package main provides the offline sync CLI that reconciles document
// metadata records with the files present in storage.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"docvault/internal/config"
	"docvault/internal/database"
	"docvault/internal/database/migration"
	"docvault/internal/repository"
	"docvault/internal/repository/jsonfile"
	"docvault/internal/repository/memory"
	"docvault/internal/repository/postgres"
	"docvault/internal/service"
	"docvault/internal/storage"
)

var directories []string

var rootCmd = &cobra.Command{
	Use:   "docvault-sync",
	Short: "DocVault storage reconciliation tool",
	Long:  "CLI tool for reconciling document metadata with files on disk",
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile metadata records with storage contents",
	Long: `Scans the configured storage directories and reconciles them with
the metadata repository:

1. Files with no matching record get a new metadata record
2. Records whose file vanished are soft-deleted
3. Matched pairs are left untouched

Running sync twice in a row is a no-op.

Environment variables:
  DB_TYPE        metadata backend: memory | file | postgres (default: memory)
  DB_FILE_PATH   JSON database location for the file backend
  STORAGE_PATH   filesystem root scanned by default`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringSliceVarP(&directories, "dir", "d", nil, "directory to scan (repeatable; defaults to STORAGE_PATH)")
	rootCmd.AddCommand(syncCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	start := time.Now()

	cfg := config.Load()

	fmt.Printf("Opening %s repository...\n", cfg.Database.Type)
	repo, db, err := newRepository(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open repository: %w", err)
	}
	if db != nil {
		defer db.Close()
	}

	store, err := storage.NewFilesystem(cfg.Storage.Path, cfg.Storage.ServePrefix)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}

	docSvc := service.NewDocumentService(store, repo, cfg.Storage.Path, cfg.Storage.MaxUploadSize)

	fmt.Println("Scanning...")
	result, err := docSvc.Sync(ctx, directories)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Println()
	fmt.Println("Sync complete!")
	fmt.Printf("  Added:   %d\n", result.Added)
	fmt.Printf("  Removed: %d\n", result.Removed)
	for _, dir := range result.Directories {
		fmt.Printf("  Scanned: %s\n", dir)
	}
	fmt.Printf("  Duration: %s\n", time.Since(start).Round(time.Millisecond))

	return nil
}

func newRepository(ctx context.Context, cfg *config.AppConfig) (repository.DocumentRepository, *sql.DB, error) {
	switch cfg.Database.Type {
	case config.DatabasePostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if err := migration.EnsureMigrated(ctx, db, time.UTC, cfg.Database.Host); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return postgres.NewDocumentPostgres(db), db, nil
	case config.DatabaseFile:
		repo, err := jsonfile.NewDocumentJSONFile(cfg.Database.FilePath)
		if err != nil {
			return nil, nil, err
		}
		return repo, nil, nil
	default:
		return memory.NewDocumentMemory(), nil, nil
	}
}

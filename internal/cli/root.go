// Package cli provides the command-line interface for contractmeta.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/tatradocs/contractmeta/internal/config"
	"github.com/tatradocs/contractmeta/internal/listing"
	"github.com/tatradocs/contractmeta/internal/storage"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose    bool
	configFile string

	// Global config
	cfg        config.Config
	logCleanup func() error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "contractmeta",
	Short: "Contract metadata extraction pipeline",
	Long: `Contractmeta extracts structured metadata (contracting party, validity
date, signed date, signatory) from PDF contract documents using a remote
document-analysis model, and maintains a CSV metadata artifact in object
storage. Already-processed documents are skipped, so repeated runs only
analyze new files.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		if configFile != "" {
			if err := cfg.ApplyFile(configFile); err != nil {
				return err
			}
		}
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}

		var logger *slog.Logger
		logger, logCleanup = config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCleanup != nil {
			if err := logCleanup(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// newObjectStore builds the configured storage collaborator and a
// human-readable description of the upload destination.
func newObjectStore(ctx context.Context) (storage.ObjectStore, string, error) {
	switch cfg.StorageBackend {
	case config.StorageMinio:
		store, err := storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return nil, "", err
		}
		return store, fmt.Sprintf("bucket %s at %s", cfg.MinioBucket, cfg.MinioEndpoint), nil
	case config.StorageLocal:
		store, err := storage.NewLocalStore(cfg.DataDir)
		if err != nil {
			return nil, "", err
		}
		return store, cfg.DataDir, nil
	default:
		return nil, "", fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// newLister builds the file-listing collaborator matching the storage backend.
func newLister(store storage.ObjectStore) listing.Lister {
	if cfg.StorageBackend == config.StorageLocal {
		return listing.NewLocalLister(cfg.DataDir)
	}
	return listing.NewObjectLister(store, "")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to a YAML config file")

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(exportCmd)
}

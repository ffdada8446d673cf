package main

import (
	"context"
	"fmt"

	"github.com/at-ishikawa/abbrgen/internal/bootstrap"
	"github.com/at-ishikawa/abbrgen/internal/config"
	"github.com/at-ishikawa/abbrgen/internal/database"
	"github.com/at-ishikawa/abbrgen/internal/datasync"
	"github.com/at-ishikawa/abbrgen/internal/dictionary"
	"github.com/at-ishikawa/abbrgen/internal/index"
	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migration commands",
	}

	migrateCmd.AddCommand(newMigrateSeedCommand())

	return migrateCmd
}

func newMigrateSeedCommand() *cobra.Command {
	var (
		dryRun   bool
		force    bool
		seedFile string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import the seed dictionary into the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := bootstrap.New()
			return app.Run(cmd.Context(), func(ctx context.Context) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				if seedFile != "" {
					cfg.Seed.Path = seedFile
				}
				if cfg.Seed.Path == "" {
					return fmt.Errorf("no seed file configured; pass --file")
				}

				db, err := database.Open(cfg.Database)
				if err != nil {
					return fmt.Errorf("database.Open() > %w", err)
				}
				app.AddCloser("database", db)
				if err := database.Migrate(ctx, db); err != nil {
					return fmt.Errorf("database.Migrate() > %w", err)
				}

				result, err := importSeed(ctx, dictionary.NewDBRepository(db), cfg.Seed.Path, cmd.OutOrStdout(), datasync.ImportOptions{
					DryRun: dryRun,
					Force:  force,
				})
				if err != nil {
					return err
				}

				if !dryRun && result.New > 0 {
					if err := invalidateIndex(app, cfg); err != nil {
						return err
					}
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Similarity index invalidated; it is rebuilt on the next suggestion.")
				}

				prefix := ""
				if dryRun {
					prefix = "[DRY RUN] "
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%sImported %d records, skipped %d.\n", prefix, result.New, result.Skipped)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be imported without writing")
	cmd.Flags().BoolVar(&force, "force", false, "Import even when the database already has records")
	cmd.Flags().StringVar(&seedFile, "file", "", "Seed file to import instead of seed.path")
	return cmd
}

// invalidateIndex drops the persisted index so that records imported into a populated store get embedded.
func invalidateIndex(app *bootstrap.App, cfg *config.Config) error {
	embedder := newRemoteClient(cfg, cfg.Embedding.Provider)
	app.AddCloser("embedding client", embedder)

	idx, err := index.Open(cfg.Index.Directory, embedder)
	if err != nil {
		return fmt.Errorf("index.Open(%s) > %w", cfg.Index.Directory, err)
	}
	if err := idx.Invalidate(); err != nil {
		return fmt.Errorf("index.Invalidate() > %w", err)
	}
	return nil
}

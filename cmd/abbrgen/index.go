package main

import (
	"context"
	"fmt"
	"time"

	"github.com/at-ishikawa/abbrgen/internal/bootstrap"
	"github.com/spf13/cobra"
)

func newIndexCommand() *cobra.Command {
	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the similarity index",
	}

	indexCmd.AddCommand(newIndexRebuildCommand())
	indexCmd.AddCommand(newIndexStatusCommand())

	return indexCmd
}

func newIndexRebuildCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Embed every stored record again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := bootstrap.New()
			return app.Run(cmd.Context(), func(ctx context.Context) error {
				env, err := setup(ctx, app, cmd.OutOrStdout(), setupOptions{requireModel: true})
				if err != nil {
					return err
				}

				records, err := env.repo.FindAll(ctx)
				if err != nil {
					return fmt.Errorf("repo.FindAll() > %w", err)
				}
				if err := env.index.Rebuild(ctx, records); err != nil {
					return fmt.Errorf("index.Rebuild() > %w", err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d records with %s.\n", len(records), env.cfg.Embedding.Model)
				return nil
			})
		},
	}
}

func newIndexStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which model built the index and whether it is stale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := bootstrap.New()
			return app.Run(cmd.Context(), func(ctx context.Context) error {
				env, err := setup(ctx, app, cmd.OutOrStdout(), setupOptions{})
				if err != nil {
					return err
				}
				count, err := env.repo.Count(ctx)
				if err != nil {
					return fmt.Errorf("repo.Count() > %w", err)
				}

				info := env.index.Info()
				w := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(w, "Path:            %s\n", info.Path)
				_, _ = fmt.Fprintf(w, "Embedding model: %s\n", info.EmbeddingModel)
				_, _ = fmt.Fprintf(w, "Dimension:       %d\n", info.Dimension)
				_, _ = fmt.Fprintf(w, "Entries:         %d (store: %d)\n", info.Entries, count)
				if !info.UpdatedAt.IsZero() {
					_, _ = fmt.Fprintf(w, "Updated at:      %s\n", info.UpdatedAt.Format(time.RFC3339))
				}
				_, _ = fmt.Fprintf(w, "Stale:           %t\n", info.Stale)
				return nil
			})
		},
	}
}

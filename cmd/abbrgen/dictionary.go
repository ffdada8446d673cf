package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/at-ishikawa/abbrgen/internal/bootstrap"
	"github.com/at-ishikawa/abbrgen/internal/suggestion"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	formatTable = "table"
	formatYAML  = "yaml"
)

func newDictionaryCommand() *cobra.Command {
	dictionaryCmd := &cobra.Command{
		Use:   "dictionary",
		Short: "Inspect and edit the stored abbreviations",
	}

	dictionaryCmd.AddCommand(newDictionaryLookupCommand())
	dictionaryCmd.AddCommand(newDictionaryListCommand())
	dictionaryCmd.AddCommand(newDictionaryAddCommand())

	return dictionaryCmd
}

func newDictionaryLookupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <keyword>",
		Short: "Show the abbreviation stored for a keyword",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := bootstrap.New()
			return app.Run(cmd.Context(), func(ctx context.Context) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				repo, err := openStore(ctx, app, cfg, cmd.OutOrStdout())
				if err != nil {
					return err
				}

				record, err := repo.FindByKeyword(ctx, args[0])
				if err != nil {
					return fmt.Errorf("repo.FindByKeyword(%s) > %w", args[0], err)
				}
				if record == nil {
					return fmt.Errorf("keyword %q is not in the dictionary", args[0])
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", record.Keyword, record.Abbreviation, record.Description)
				return nil
			})
		},
	}
}

func newDictionaryListCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every stored abbreviation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatTable && format != formatYAML {
				return fmt.Errorf("--format must be %s or %s", formatTable, formatYAML)
			}

			app := bootstrap.New()
			return app.Run(cmd.Context(), func(ctx context.Context) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				repo, err := openStore(ctx, app, cfg, cmd.OutOrStdout())
				if err != nil {
					return err
				}

				records, err := repo.FindAll(ctx)
				if err != nil {
					return fmt.Errorf("repo.FindAll() > %w", err)
				}

				if format == formatYAML {
					encoder := yaml.NewEncoder(cmd.OutOrStdout())
					encoder.SetIndent(2)
					if err := encoder.Encode(records); err != nil {
						return fmt.Errorf("yaml.Encode() > %w", err)
					}
					return encoder.Close()
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintln(w, "KEYWORD\tABBREVIATION\tDESCRIPTION")
				for _, record := range records {
					_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", record.Keyword, record.Abbreviation, record.Description)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table or yaml")
	return cmd
}

func newDictionaryAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <keyword> <abbreviation> [description]",
		Short: "Store an abbreviation without generating it",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := bootstrap.New()
			return app.Run(cmd.Context(), func(ctx context.Context) error {
				env, err := setup(ctx, app, cmd.OutOrStdout(), setupOptions{syncIndex: true})
				if err != nil {
					return err
				}

				result := &suggestion.Suggestion{
					Keyword:      args[0],
					Abbreviation: args[1],
				}
				if len(args) == 3 {
					result.Description = args[2]
				}
				if err := env.newService().Save(ctx, result); err != nil {
					return fmt.Errorf("service.Save(%s) > %w", result.Keyword, err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved %q as %q.\n", result.Keyword, result.Abbreviation)
				return nil
			})
		},
	}
}

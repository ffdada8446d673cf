package main

import (
	"context"
	"strings"

	"github.com/at-ishikawa/abbrgen/internal/bootstrap"
	"github.com/at-ishikawa/abbrgen/internal/cli"
	"github.com/spf13/cobra"
)

func newSuggestCommand() *cobra.Command {
	var autoSave bool

	cmd := &cobra.Command{
		Use:   "suggest [keyword]",
		Short: "Generate a unique abbreviation for a keyword",
		Long: `Generate a unique abbreviation for a keyword.
Without an argument, keywords are read from standard input until 'exit'.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := bootstrap.New()
			return app.Run(cmd.Context(), func(ctx context.Context) error {
				env, err := setup(ctx, app, cmd.OutOrStdout(), setupOptions{
					syncIndex:    true,
					requireModel: true,
				})
				if err != nil {
					return err
				}

				suggestCLI := cli.NewSuggestCLI(env.newService(), cli.SuggestOptions{
					AutoSave:        autoSave,
					UnavailableHint: unavailableHint(env.cfg),
				}, cmd.InOrStdin(), cmd.OutOrStdout())

				if len(args) == 1 {
					return suggestCLI.RunOnce(ctx, strings.TrimSpace(args[0]))
				}
				return suggestCLI.Run(ctx, suggestCLI)
			})
		},
	}
	cmd.Flags().BoolVarP(&autoSave, "yes", "y", false, "Save the suggestion without asking")
	return cmd
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/at-ishikawa/abbrgen/internal/bootstrap"
	"github.com/at-ishikawa/abbrgen/internal/config"
	"github.com/at-ishikawa/abbrgen/internal/database"
	"github.com/at-ishikawa/abbrgen/internal/datasync"
	"github.com/at-ishikawa/abbrgen/internal/dictionary"
	"github.com/at-ishikawa/abbrgen/internal/index"
	"github.com/at-ishikawa/abbrgen/internal/inference"
	"github.com/at-ishikawa/abbrgen/internal/inference/ollama"
	"github.com/at-ishikawa/abbrgen/internal/inference/openai"
	"github.com/at-ishikawa/abbrgen/internal/suggestion"
)

func loadConfig() (*config.Config, error) {
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create config loader: %w", err)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	generationProvider.apply(&cfg.Generation.Provider)
	embeddingProvider.apply(&cfg.Embedding.Provider)
	if err := loader.Validate(*cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// remoteClient is what both providers implement
type remoteClient interface {
	inference.Client
	inference.Embedder
	io.Closer
}

func newRemoteClient(cfg *config.Config, provider string) remoteClient {
	if provider == config.ProviderOpenAI {
		return openai.NewClient(
			cfg.OpenAI.BaseURL,
			cfg.OpenAI.APIKey,
			cfg.Generation.Model,
			cfg.Embedding.Model,
			float32(cfg.Generation.Temperature),
			cfg.Generation.MaxRetryAttempts,
		)
	}
	return ollama.NewClient(
		cfg.Ollama.Endpoint,
		cfg.Generation.Model,
		cfg.Embedding.Model,
		cfg.Generation.Temperature,
		cfg.Generation.MaxRetryAttempts,
	)
}

// unavailableHint tells the user what the generation side tried to reach.
func unavailableHint(cfg *config.Config) string {
	if cfg.Generation.Provider == config.ProviderOpenAI {
		return fmt.Sprintf("Check that %s is reachable and OPENAI_API_KEY is set for model %s.", cfg.OpenAI.BaseURL, cfg.Generation.Model)
	}
	return fmt.Sprintf("Is Ollama running at %s with model %s pulled? Try `ollama pull %s`.",
		cfg.Ollama.Endpoint, cfg.Generation.Model, cfg.Generation.Model)
}

// environment holds everything a command opened; closing is left to the bootstrap.App it was built with.
type environment struct {
	cfg       *config.Config
	repo      *dictionary.DBRepository
	index     *index.Index
	generator inference.Client
}

type setupOptions struct {
	// syncIndex rebuilds a stale index before returning
	syncIndex bool
	// requireModel checks that an Ollama server answers before anything is sent to it
	requireModel bool
}

func setup(ctx context.Context, app *bootstrap.App, output io.Writer, opts setupOptions) (*environment, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	repo, err := openStore(ctx, app, cfg, output)
	if err != nil {
		return nil, err
	}

	generator := newRemoteClient(cfg, cfg.Generation.Provider)
	app.AddCloser("generation client", generator)
	embedder := remoteClient(generator)
	if cfg.Embedding.Provider != cfg.Generation.Provider {
		embedder = newRemoteClient(cfg, cfg.Embedding.Provider)
		app.AddCloser("embedding client", embedder)
	}

	if opts.requireModel {
		for _, client := range []remoteClient{generator, embedder} {
			if err := checkAvailable(ctx, cfg, client); err != nil {
				return nil, err
			}
		}
	}

	idx, err := index.Open(cfg.Index.Directory, embedder)
	if err != nil {
		return nil, fmt.Errorf("index.Open(%s) > %w", cfg.Index.Directory, err)
	}
	if opts.syncIndex {
		rebuilt, err := idx.Sync(ctx, repo)
		if err != nil {
			return nil, fmt.Errorf("index.Sync() > %w", err)
		}
		if rebuilt {
			_, _ = fmt.Fprintf(output, "Indexed %d records with %s.\n", idx.Info().Entries, cfg.Embedding.Model)
		}
	}

	return &environment{
		cfg:       cfg,
		repo:      repo,
		index:     idx,
		generator: generator,
	}, nil
}

func checkAvailable(ctx context.Context, cfg *config.Config, client remoteClient) error {
	ollamaClient, ok := client.(*ollama.Client)
	if !ok {
		return nil
	}
	if !ollamaClient.Available(ctx) {
		return fmt.Errorf("%w at %s. %s", ollama.ErrUnavailable, cfg.Ollama.Endpoint, unavailableHint(cfg))
	}
	return nil
}

// openStore opens and migrates the database, then seeds it when it is empty.
func openStore(ctx context.Context, app *bootstrap.App, cfg *config.Config, output io.Writer) (*dictionary.DBRepository, error) {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database.Open() > %w", err)
	}
	app.AddCloser("database", db)

	if err := database.Migrate(ctx, db); err != nil {
		return nil, fmt.Errorf("database.Migrate() > %w", err)
	}
	repo := dictionary.NewDBRepository(db)

	count, err := repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("repo.Count() > %w", err)
	}
	if count > 0 || cfg.Seed.Path == "" {
		return repo, nil
	}

	if _, err := os.Stat(cfg.Seed.Path); errors.Is(err, fs.ErrNotExist) {
		slog.Default().Warn("Seed file not found, starting with an empty dictionary", "path", cfg.Seed.Path)
		return repo, nil
	}
	if _, err := importSeed(ctx, repo, cfg.Seed.Path, output, datasync.ImportOptions{}); err != nil {
		return nil, err
	}
	return repo, nil
}

func importSeed(ctx context.Context, repo dictionary.Repository, path string, output io.Writer, opts datasync.ImportOptions) (*datasync.ImportResult, error) {
	records, err := dictionary.ReadSeedFile(path)
	if err != nil {
		return nil, fmt.Errorf("dictionary.ReadSeedFile() > %w", err)
	}
	result, err := datasync.NewImporter(repo, output).ImportDictionary(ctx, records, opts)
	if err != nil {
		return nil, fmt.Errorf("importer.ImportDictionary() > %w", err)
	}
	return result, nil
}

func (env *environment) newService() *suggestion.Service {
	return suggestion.NewService(env.repo, env.index, env.generator, suggestion.Options{
		SimilarCount: env.cfg.Index.SimilarCount,
		MaxAttempts:  env.cfg.Generation.MaxAttempts,
	})
}

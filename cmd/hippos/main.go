// cmd/hippos is a thin composition root: it wires configuration through to
// a storage backend, the retrieval indices, and the engine, then exposes a
// minimal CLI for local smoke-testing (ingest/recall/integrate/pattern/
// profile). It holds no business logic of its own.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hippos-ai/hippos/internal/config"
	"github.com/hippos-ai/hippos/internal/engine"
	"github.com/hippos-ai/hippos/internal/events"
	"github.com/hippos-ai/hippos/internal/index"
	"github.com/hippos-ai/hippos/internal/llm"
	"github.com/hippos-ai/hippos/internal/storage"
	"github.com/hippos-ai/hippos/internal/storage/memstore"
	"github.com/hippos-ai/hippos/internal/storage/postgres"
	"github.com/hippos-ai/hippos/internal/storage/sqlite"
	"github.com/hippos-ai/hippos/pkg/types"
)

// repositories bundles the five tenant-scoped stores a backend provides,
// regardless of which concrete engine it is backed by.
type repositories struct {
	memories      storage.MemoryRepository
	profiles      storage.ProfileRepository
	patterns      storage.PatternRepository
	entities      storage.EntityRepository
	relationships storage.RelationshipRepository
	closer        func() error
}

func openRepositories(cfg *config.Config) (*repositories, error) {
	switch cfg.Storage.Engine {
	case "postgres":
		store, err := postgres.Open(cfg.Storage.DSN)
		if err != nil {
			return nil, err
		}
		return &repositories{
			memories:      store,
			profiles:      postgres.ProfileAdapter{S: store},
			patterns:      postgres.PatternAdapter{S: store},
			entities:      postgres.EntityAdapter{S: store},
			relationships: postgres.RelationshipAdapter{S: store},
			closer:        store.Close,
		}, nil
	case "memstore":
		store := memstore.New()
		return &repositories{
			memories:      store,
			profiles:      memstore.ProfileAdapter{S: store},
			patterns:      memstore.PatternAdapter{S: store},
			entities:      memstore.EntityAdapter{S: store},
			relationships: memstore.RelationshipAdapter{S: store},
			closer:        func() error { return nil },
		}, nil
	default:
		if dir := filepath.Dir(cfg.Storage.DSN); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("creating data directory %q: %w", dir, err)
			}
		}
		store, err := sqlite.Open(cfg.Storage.DSN)
		if err != nil {
			return nil, err
		}
		return &repositories{
			memories:      store,
			profiles:      sqlite.ProfileAdapter{S: store},
			patterns:      sqlite.PatternAdapter{S: store},
			entities:      sqlite.EntityAdapter{S: store},
			relationships: sqlite.RelationshipAdapter{S: store},
			closer:        store.Close,
		}, nil
	}
}

// busAdapter bridges events.Bus to engine.EventPublisher: the engine
// package deliberately does not import events (see memory_builder.go) to
// avoid tying the business logic to one notification transport.
type busAdapter struct{ bus *events.Bus }

func (a busAdapter) Publish(evt engine.Event) {
	a.bus.Publish(events.Event{Kind: events.Kind(evt.Kind), TenantID: evt.TenantID, Payload: evt.Payload})
}

// app holds every wired collaborator the CLI subcommands operate on.
type app struct {
	cfg      *config.Config
	repos    *repositories
	builder  *engine.MemoryBuilder
	recall   *engine.MemoryRecall
	integr   *engine.MemoryIntegrator
	entities *engine.EntityManager
	patterns *engine.PatternManager
	profiles *engine.ProfileManager
	bus      *events.Bus
}

func build(cfg *config.Config) (*app, error) {
	repos, err := openRepositories(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	var vectorIndex index.VectorIndex = index.NewBruteForceIndex()
	lexicalIndex := index.NewInvertedIndex()
	if pgStore, ok := repos.memories.(*postgres.Store); ok && pgStore.PgvectorAvailable() {
		vectorIndex = postgres.NewPgvectorIndex(pgStore, "memories")
		log.Printf("hippos: pgvector available, using native vector index for memories")
	}

	embedCache, err := index.NewEmbeddingCache(cfg.Embedding.MaxCacheSize)
	if err != nil {
		return nil, err
	}
	embedder := llm.NewCircuitBreakingEmbedder(llm.NewHashingEmbedder(cfg.Embedding.Dimension))

	bus := events.New()
	dehydrator := engine.NewDehydrator(200, 5, 8)

	builder := engine.NewMemoryBuilder(
		repos.memories, vectorIndex, lexicalIndex, embedder, dehydrator, embedCache,
		busAdapter{bus}, cfg.Pattern.CandidateImportanceThreshold,
	)
	recall := engine.NewMemoryRecall(repos.memories, vectorIndex, lexicalIndex, embedder, engine.DecayConfig{
		Window:           hoursToDuration(cfg.Decay.WindowHours),
		Factor:           cfg.Decay.Factor,
		ArchiveThreshold: cfg.Decay.ArchiveThreshold,
	})
	integrator := engine.NewMemoryIntegrator(repos.memories, repos.relationships, repos.entities, engine.IntegrationConfig{
		DecayWindow:               hoursToDuration(cfg.Decay.WindowHours),
		DecayFactor:               cfg.Decay.Factor,
		ArchiveThreshold:          cfg.Decay.ArchiveThreshold,
		MergeSimilarityThreshold:  cfg.Decay.MergeSimilarityThreshold,
		RelationshipRefreshWindow: daysToDuration(cfg.Decay.RelationshipRefreshDays),
		RelationshipDecayFactor:   cfg.Decay.RelationshipDecayFactor,
		StrengthPruneThreshold:    cfg.Decay.StrengthPruneThreshold,
		PurgeWindow:               daysToDuration(cfg.Decay.PurgeWindowDays),
		BatchSize:                 500,
	})
	entityManager := engine.NewEntityManager(repos.entities, repos.relationships)
	patternManager, err := engine.NewPatternManager(repos.patterns, repos.memories)
	if err != nil {
		return nil, fmt.Errorf("wiring pattern manager: %w", err)
	}
	profileManager := engine.NewProfileManager(repos.profiles, cfg.Profile.FactVerificationThreshold)

	return &app{
		cfg: cfg, repos: repos, builder: builder, recall: recall, integr: integrator,
		entities: entityManager, patterns: patternManager, profiles: profileManager, bus: bus,
	}, nil
}

func main() {
	log.SetPrefix("hippos: ")

	cfg := config.Load()
	if path := os.Getenv("HIPPOS_CONFIG_FILE"); path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			log.Fatalf("loading config file: %v", err)
		}
	}

	a, err := build(cfg)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer func() {
		if err := a.repos.closer(); err != nil {
			log.Printf("closing storage: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("received shutdown signal")
		cancel()
	}()

	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: hippos <ingest|recall|integrate|pattern|profile> [args]")
		os.Exit(2)
	}

	var cmdErr error
	switch args[0] {
	case "ingest":
		cmdErr = a.runIngest(ctx, args[1:])
	case "recall":
		cmdErr = a.runRecall(ctx, args[1:])
	case "integrate":
		cmdErr = a.runIntegrate(ctx, args[1:])
	case "pattern":
		cmdErr = a.runPattern(ctx, args[1:])
	case "profile":
		cmdErr = a.runProfile(ctx, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		os.Exit(2)
	}
	if cmdErr != nil {
		log.Fatalf("%v", cmdErr)
	}
}

func (a *app) runIngest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	tenantID := fs.String("tenant", "default", "tenant id")
	userID := fs.String("user", "default", "user id")
	kind := fs.String("kind", string(types.KindEpisodic), "memory kind")
	content := fs.String("content", "", "memory content")
	sourceID := fs.String("source-id", "", "idempotence key")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *content == "" {
		return fmt.Errorf("--content is required")
	}

	mem, err := a.builder.Build(ctx, engine.IngestRequest{
		TenantID:         *tenantID,
		UserID:           *userID,
		Kind:             types.MemoryKind(*kind),
		Source:           types.SourceConversation,
		SourceID:         *sourceID,
		Content:          *content,
		MaxContentLength: a.cfg.Embedding.MaxContentLen,
	})
	if err != nil {
		return err
	}

	if _, err := a.entities.DiscoverFromContent(ctx, *tenantID, mem.ID, mem.Content); err != nil {
		log.Printf("entity discovery failed for memory %s: %v", mem.ID, err)
	}

	return printJSON(mem)
}

func (a *app) runRecall(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("recall", flag.ExitOnError)
	tenantID := fs.String("tenant", "default", "tenant id")
	userID := fs.String("user", "default", "user id")
	query := fs.String("query", "", "recall query")
	limit := fs.Int("limit", 10, "max results")
	mode := fs.String("mode", string(types.RecallHybrid), "semantic|lexical|hybrid|temporal")
	threshold := fs.Float64("threshold", 0, "minimum fused score (0 disables)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	results, err := a.recall.Recall(ctx, engine.RecallOptions{
		TenantID:  *tenantID,
		UserID:    *userID,
		Query:     *query,
		Limit:     *limit,
		Mode:      types.RecallMode(*mode),
		Threshold: *threshold,
	})
	if err != nil {
		return err
	}
	return printJSON(results)
}

func (a *app) runIntegrate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("integrate", flag.ExitOnError)
	tenantID := fs.String("tenant", "default", "tenant id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	stats, err := a.integr.Run(ctx, *tenantID)
	if err != nil {
		return err
	}
	return printJSON(stats)
}

func (a *app) runPattern(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: hippos pattern <create|match> [args]")
	}
	switch args[0] {
	case "create":
		fs := flag.NewFlagSet("pattern create", flag.ExitOnError)
		tenantID := fs.String("tenant", "default", "tenant id")
		kind := fs.String("kind", string(types.PatternProblemSolution), "pattern kind")
		name := fs.String("name", "", "pattern name")
		trigger := fs.String("trigger", "", "trigger keywords, or re:<regex>")
		solution := fs.String("solution", "", "pattern solution")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		pat := &types.Pattern{
			TenantID: *tenantID,
			Kind:     types.PatternKind(*kind),
			Name:     *name,
			Trigger:  *trigger,
			Solution: *solution,
		}
		if err := a.patterns.Create(ctx, pat); err != nil {
			return err
		}
		return printJSON(pat)
	case "match":
		fs := flag.NewFlagSet("pattern match", flag.ExitOnError)
		tenantID := fs.String("tenant", "default", "tenant id")
		context_ := fs.String("context", "", "free-form context to match against")
		limit := fs.Int("limit", 5, "max matches")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		matches, err := a.patterns.Match(ctx, *tenantID, *context_, *limit)
		if err != nil {
			return err
		}
		return printJSON(matches)
	default:
		return fmt.Errorf("unknown pattern subcommand %q", args[0])
	}
}

func (a *app) runProfile(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: hippos profile <get|add-fact|verify-fact|add-preference> [args]")
	}
	switch args[0] {
	case "get":
		fs := flag.NewFlagSet("profile get", flag.ExitOnError)
		tenantID := fs.String("tenant", "default", "tenant id")
		userID := fs.String("user", "default", "user id")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		p, err := a.profiles.GetOrCreate(ctx, *tenantID, *userID)
		if err != nil {
			return err
		}
		return printJSON(p)
	case "add-fact":
		fs := flag.NewFlagSet("profile add-fact", flag.ExitOnError)
		tenantID := fs.String("tenant", "default", "tenant id")
		userID := fs.String("user", "default", "user id")
		text := fs.String("text", "", "fact text")
		category := fs.String("category", "other", "fact category")
		sourceMemoryID := fs.String("source-memory-id", "", "originating memory id")
		confidence := fs.Float64("confidence", 0, "fact confidence in [0,1]; 0 uses the default")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if _, err := a.profiles.GetOrCreate(ctx, *tenantID, *userID); err != nil {
			return err
		}
		fact, err := a.profiles.AddFact(ctx, *tenantID, *userID, *text, *category, *sourceMemoryID, *confidence)
		if err != nil {
			return err
		}
		return printJSON(fact)
	case "verify-fact":
		fs := flag.NewFlagSet("profile verify-fact", flag.ExitOnError)
		tenantID := fs.String("tenant", "default", "tenant id")
		userID := fs.String("user", "default", "user id")
		factID := fs.String("fact-id", "", "fact id to verify")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if err := a.profiles.VerifyFact(ctx, *tenantID, *userID, *factID); err != nil {
			return err
		}
		return nil
	case "add-preference":
		fs := flag.NewFlagSet("profile add-preference", flag.ExitOnError)
		tenantID := fs.String("tenant", "default", "tenant id")
		userID := fs.String("user", "default", "user id")
		key := fs.String("key", "", "preference key")
		value := fs.String("value", "", "preference value")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if _, err := a.profiles.GetOrCreate(ctx, *tenantID, *userID); err != nil {
			return err
		}
		return a.profiles.AddPreference(ctx, *tenantID, *userID, *key, *value)
	default:
		return fmt.Errorf("unknown profile subcommand %q", args[0])
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func hoursToDuration(h int) (d time.Duration) {
	return time.Duration(h) * time.Hour
}

func daysToDuration(d int) time.Duration {
	return time.Duration(d) * 24 * time.Hour
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Gobusters/ectologger"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/opencookbook/mortar/config"
	"github.com/opencookbook/mortar/internal/repositories/ingredient"
	"github.com/opencookbook/mortar/internal/repositories/ingredientalias"
	"github.com/opencookbook/mortar/internal/repositories/metrics"
	"github.com/opencookbook/mortar/internal/repositories/recipe"
	"github.com/opencookbook/mortar/internal/repositories/recipeingredient"
	"github.com/opencookbook/mortar/internal/repositories/staging"
	"github.com/opencookbook/mortar/pkg/backfill"
	"github.com/opencookbook/mortar/pkg/collision"
	"github.com/opencookbook/mortar/pkg/database"
	"github.com/opencookbook/mortar/pkg/events"
	"github.com/opencookbook/mortar/pkg/ingparse"
	"github.com/opencookbook/mortar/pkg/kafka"
	"github.com/opencookbook/mortar/pkg/logging"
	"github.com/opencookbook/mortar/pkg/matching"
	"github.com/opencookbook/mortar/pkg/merging"
	"github.com/opencookbook/mortar/pkg/monitor"
	"github.com/opencookbook/mortar/pkg/pipeline"
	"github.com/opencookbook/mortar/pkg/review"
	"github.com/opencookbook/mortar/pkg/routes/catalog"
	"github.com/opencookbook/mortar/pkg/routes/health"
	"github.com/opencookbook/mortar/pkg/server"
	"github.com/opencookbook/mortar/pkg/tracing"
)

const version = "1.0.0"

// app bundles the pieces every command needs.
type app struct {
	cfg     *config.Config
	logger  ectologger.Logger
	cleanup []func()
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, flush, err := logging.New(cfg.AppName, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	shutdownTracing := tracing.Init(cfg.AppName)

	a := &app{cfg: cfg, logger: logger}
	a.cleanup = append(a.cleanup, func() {
		_ = shutdownTracing(context.Background())
		flush()
	})
	return a, nil
}

func (a *app) close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
}

func (a *app) connectProduct(ctx context.Context) (database.DB, error) {
	db, err := database.Connect(ctx, a.cfg.ProductDSN(), database.ConnectOptions{
		MaxOpenConns:    a.cfg.DBMaxOpenConns,
		MaxIdleConns:    a.cfg.DBMaxIdleConns,
		ConnMaxLifetime: a.cfg.DBConnMaxLifetime,
	}, a.logger)
	if err != nil {
		return nil, err
	}
	a.cleanup = append(a.cleanup, func() { _ = db.Close() })
	return db, nil
}

func (a *app) connectStaging(ctx context.Context) (database.DB, error) {
	dsn := a.cfg.StagingDSN()
	if dsn == "" {
		return nil, fmt.Errorf("staging database is not configured, set STAGING_DB_HOST")
	}
	db, err := database.Connect(ctx, dsn, database.ConnectOptions{
		MaxOpenConns:    a.cfg.DBMaxOpenConns,
		MaxIdleConns:    a.cfg.DBMaxIdleConns,
		ConnMaxLifetime: a.cfg.DBConnMaxLifetime,
	}, a.logger)
	if err != nil {
		return nil, err
	}
	a.cleanup = append(a.cleanup, func() { _ = db.Close() })
	return db, nil
}

// emitter returns a Kafka-backed emitter, or a disabled one when Kafka is off.
func (a *app) emitter() *events.Emitter {
	if !a.cfg.KafkaEnabled {
		return events.NewEmitter(nil, a.logger)
	}

	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:    strings.Split(a.cfg.KafkaBrokers, ","),
		Topic:      a.cfg.KafkaTopic,
		ClientID:   a.cfg.KafkaClientID,
		BatchBytes: a.cfg.KafkaBatchBytes,
	}, a.logger)
	a.cleanup = append(a.cleanup, func() { _ = producer.Close() })

	return events.NewEmitter(producer, a.logger)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	root := &cobra.Command{
		Use:           "mortar",
		Short:         "Recipe ingredient identity pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		migrateCmd(),
		promoteCmd(),
		suggestCmd(),
		applyCmd(),
		resolveCollisionsCmd(),
		backfillCmd(),
		monitorCmd(),
		serveCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			db, err := sql.Open("postgres", a.cfg.ProductDSN())
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			driver, err := migratepg.WithInstance(db, &migratepg.Config{
				MigrationsTable: a.cfg.MigrationsTable,
			})
			if err != nil {
				return fmt.Errorf("failed to create migration driver: %w", err)
			}

			svc := database.NewMigrationService(a.logger, a.cfg.MigrationsPath)
			return svc.Migrate(a.cfg.DBName, driver)
		},
	}
}

func promoteCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Promote recent staging recipes into the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if limit > 0 {
				a.cfg.PromoteBatchLimit = limit
			}

			ctx, cancel := signalContext()
			defer cancel()

			productDB, err := a.connectProduct(ctx)
			if err != nil {
				return err
			}
			stagingDB, err := a.connectStaging(ctx)
			if err != nil {
				return err
			}

			promoter := pipeline.NewPromoter(
				pipeline.PromoterConfig{
					NamespaceUUID: uuid.MustParse(a.cfg.RecipeNamespaceUUID),
					BatchLimit:    a.cfg.PromoteBatchLimit,
					RetryAttempts: 1,
				},
				a.logger,
				ingparse.NewParser(ingparse.DefaultVocabulary()),
				staging.NewRepository(stagingDB, a.logger),
				recipe.NewRepository(productDB, a.logger),
				recipeingredient.NewRepository(productDB, a.logger),
				ingredient.NewRepository(productDB, a.logger),
			)

			summary, err := promoter.PromoteRecent(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("promoted ok=%d skip=%d fail=%d\n", summary.OK, summary.Skip, summary.Fail)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "batch size override")
	return cmd
}

func suggestCmd() *cobra.Command {
	var (
		outPath          string
		minScore         float64
		maxPairs         int
		exportLimit      int
		approvePackaging bool
	)

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Generate merge suggestions for human review",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if cmd.Flags().Changed("min-score") {
				a.cfg.SuggestMinScore = minScore
			}
			if cmd.Flags().Changed("max-pairs") {
				a.cfg.SuggestMaxPairs = maxPairs
			}
			if cmd.Flags().Changed("limit") {
				a.cfg.SuggestExportLimit = exportLimit
			}
			if cmd.Flags().Changed("approve-packaging") {
				a.cfg.ApprovePackagingSuffix = approvePackaging
			}

			ctx, cancel := signalContext()
			defer cancel()

			db, err := a.connectProduct(ctx)
			if err != nil {
				return err
			}

			usage, err := ingredient.NewRepository(db, a.logger).ListWithUsage(ctx)
			if err != nil {
				return err
			}

			generator := matching.NewGenerator(matching.GeneratorConfig{
				MinScore:      a.cfg.SuggestMinScore,
				MaxPairs:      a.cfg.SuggestMaxPairs,
				MaxLengthDiff: a.cfg.SuggestMaxLengthDiff,
			}, a.logger)
			suggestions := generator.Generate(ctx, usage)

			classifier := matching.NewClassifier(matching.DefaultClassifierVocabulary(), a.cfg.ApprovePackagingSuffix)
			for i := range suggestions {
				suggestions[i].Decision = classifier.Classify(suggestions[i])
			}

			out, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", outPath, err)
			}
			defer out.Close()

			if err := review.WriteSuggestions(out, suggestions, a.cfg.SuggestExportLimit); err != nil {
				return err
			}

			fmt.Printf("wrote %s (%d suggestions generated)\n", outPath, len(suggestions))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "suggestions.csv", "output CSV path")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "minimum similarity score override")
	cmd.Flags().IntVar(&maxPairs, "max-pairs", 0, "pair comparison cap override")
	cmd.Flags().IntVar(&exportLimit, "limit", 0, "export row limit override")
	cmd.Flags().BoolVar(&approvePackaging, "approve-packaging", false, "auto-approve packaging-suffix pairs")
	return cmd
}

func applyCmd() *cobra.Command {
	var (
		csvPath string
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply approved merge suggestions from a reviewed CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := signalContext()
			defer cancel()

			f, err := os.Open(csvPath)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", csvPath, err)
			}
			defer f.Close()

			approved, err := review.ReadApproved(f)
			if err != nil {
				return err
			}

			if dryRun {
				for _, s := range approved {
					fmt.Printf("would merge %d (%s) into %d (%s)\n", s.AliasID, s.AliasKey, s.CanonicalID, s.CanonicalKey)
				}
				fmt.Printf("dry run: %d approved pairs\n", len(approved))
				return nil
			}

			db, err := a.connectProduct(ctx)
			if err != nil {
				return err
			}

			engine := merging.NewEngine(
				a.logger,
				ingredient.NewRepository(db, a.logger),
				ingredientalias.NewRepository(db, a.logger),
				recipeingredient.NewRepository(db, a.logger),
				a.emitter(),
				1,
			)

			summary := engine.ApplyApproved(ctx, approved)
			fmt.Printf("applied ok=%d skip=%d fail=%d\n", summary.OK, summary.Skip, summary.Fail)
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "suggestions.csv", "reviewed CSV path")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list approved pairs without applying")
	return cmd
}

func resolveCollisionsCmd() *cobra.Command {
	var (
		csvPath string
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "resolve-collisions",
		Short: "Consolidate ingredients sharing a normalized alias form",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := signalContext()
			defer cancel()

			f, err := os.Open(csvPath)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", csvPath, err)
			}
			defer f.Close()

			directives, err := review.ReadCollisionDirectives(f)
			if err != nil {
				return err
			}

			if dryRun {
				auto := 0
				for _, d := range directives {
					if d.Decision == "auto" {
						auto++
						fmt.Printf("would resolve %q onto %d (%s)\n", d.AliasNorm, d.CanonicalID, d.CanonicalKey)
					}
				}
				fmt.Printf("dry run: %d auto of %d directives\n", auto, len(directives))
				return nil
			}

			db, err := a.connectProduct(ctx)
			if err != nil {
				return err
			}

			resolver := collision.NewResolver(
				a.logger,
				ingredient.NewRepository(db, a.logger),
				ingredientalias.NewRepository(db, a.logger),
				recipeingredient.NewRepository(db, a.logger),
				a.emitter(),
				a.cfg.CollisionRetryAttempts,
			)

			stats, err := resolver.Resolve(ctx, directives)
			if err != nil {
				return err
			}

			fmt.Printf(
				"resolved alias_norms=%d skipped=%d failed=%d aliases=%d conflicts_deleted=%d repointed=%d ingredients_deleted=%d\n",
				stats.AliasNorms, stats.SkippedManual, stats.FailedGroups, stats.AliasesMoved,
				stats.ConflictRowsDeleted, stats.RowsRepointed, stats.IngredientsDeleted,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "collisions.csv", "reviewed collision CSV path")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list auto directives without applying")
	return cmd
}

func backfillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backfill",
		Short: "Backfill normalized keys on legacy ingredient rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := signalContext()
			defer cancel()

			db, err := a.connectProduct(ctx)
			if err != nil {
				return err
			}

			runner := backfill.NewRunner(a.logger, ingredient.NewRepository(db, a.logger))
			updated, err := runner.Run(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("backfilled %d ingredients\n", updated)
			return nil
		},
	}
}

func monitorCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Periodically log catalog health counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := signalContext()
			defer cancel()

			db, err := a.connectProduct(ctx)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("interval") {
				a.cfg.MonitorInterval = interval
			}

			m := monitor.NewMonitor(a.logger, metrics.NewRepository(db, a.logger), a.cfg.MonitorInterval)
			if err := m.Run(ctx); err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 10*time.Second, "sampling interval")
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only catalog API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := signalContext()
			defer cancel()

			db, err := a.connectProduct(ctx)
			if err != nil {
				return err
			}

			checker := health.NewChecker(db, version)
			handler := catalog.NewHandler(
				metrics.NewRepository(db, a.logger),
				ingredient.NewRepository(db, a.logger),
				ingredientalias.NewRepository(db, a.logger),
			)

			srv := server.New(a.cfg.AppName, a.cfg.HTTPHost, a.cfg.HTTPPort, a.logger, checker, handler)

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				return srv.Shutdown(context.Background())
			}
		},
	}
}

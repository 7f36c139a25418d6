package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/segmatch/internal/app"
	"github.com/kailas-cloud/segmatch/internal/config"
	dbRedis "github.com/kailas-cloud/segmatch/internal/db/redis"
	"github.com/kailas-cloud/segmatch/internal/domain/result"
	domseg "github.com/kailas-cloud/segmatch/internal/domain/segment"
	logpkg "github.com/kailas-cloud/segmatch/internal/logger"
	segmentrepo "github.com/kailas-cloud/segmatch/internal/repository/segment"
	searchuc "github.com/kailas-cloud/segmatch/internal/usecase/search"
	"github.com/kailas-cloud/segmatch/internal/version"
)

// pipeline is the subset of the search service the CLI drives.
type pipeline interface {
	Search(ctx context.Context, req searchuc.Request) (result.Set, error)
	GetSegmentDetails(ctx context.Context, id string) (result.Card, error)
	PurgeCache(ctx context.Context) (int, error)
}

// catalogWriter writes segments into the key-value catalog.
type catalogWriter interface {
	Upsert(ctx context.Context, segments []domseg.Segment) error
	Replace(ctx context.Context, segments []domseg.Segment) (int, error)
}

// backend is what a command needs; only the requested half is populated.
type backend struct {
	pipeline pipeline
	catalog  catalogWriter
	logger   *zap.Logger
	close    func()
}

type backendKind int

const (
	needPipeline backendKind = iota
	needCatalog
)

type options struct {
	env        string
	configPath string
	asJSON     bool
	timeout    time.Duration
}

// opener builds a backend from the resolved options.
type opener func(ctx context.Context, o *options, kind backendKind) (*backend, error)

func newRootCmd(open opener) *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:           "segmatchctl",
		Short:         "Operate the segmatch relevance pipeline",
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&o.env, "env", config.GetEnv(), "config environment (config/<env>.yaml)")
	root.PersistentFlags().StringVarP(&o.configPath, "config", "c", "", "explicit config file, overrides --env")
	root.PersistentFlags().BoolVar(&o.asJSON, "json", false, "print results as JSON")
	root.PersistentFlags().DurationVar(&o.timeout, "timeout", 2*time.Minute, "overall command timeout")

	root.AddCommand(
		newImportCmd(o, open),
		newSearchCmd(o, open),
		newSegmentCmd(o, open),
		newCacheCmd(o, open),
	)
	return root
}

// withBackend opens a backend, tags the context with a request id and runs fn.
func withBackend(
	cmd *cobra.Command, o *options, open opener, kind backendKind,
	fn func(ctx context.Context, b *backend) error,
) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
	defer cancel()

	b, err := open(ctx, o, kind)
	if err != nil {
		return err
	}
	defer b.close()

	requestID := uuid.NewString()
	ctx = logpkg.ContextWithLogger(ctx, b.logger.With(zap.String("request_id", requestID)))
	return fn(ctx, b)
}

func loadConfig(o *options) (config.Config, error) {
	if o.configPath != "" {
		return config.LoadFile(o.configPath)
	}
	return config.Load(o.env)
}

// openBackend connects to real infrastructure.
func openBackend(ctx context.Context, o *options, kind backendKind) (*backend, error) {
	cfg, err := loadConfig(o)
	if err != nil {
		return nil, err
	}
	logger, err := logpkg.NewLogger(o.env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	if kind == needCatalog {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Username: cfg.Database.Username,
			Password: cfg.Database.Password,
			DB:       cfg.Database.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("create database store: %w", err)
		}
		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			store.Close()
			return nil, fmt.Errorf("database not ready: %w", err)
		}
		return &backend{
			catalog: segmentrepo.New(store),
			logger:  logger,
			close: func() {
				store.Close()
				_ = logger.Sync()
			},
		}, nil
	}

	a, err := app.Build(ctx, &cfg, logger)
	if err != nil {
		return nil, err
	}
	return &backend{
		pipeline: a.Search,
		logger:   logger,
		close: func() {
			a.Close()
			_ = logger.Sync()
		},
	}, nil
}

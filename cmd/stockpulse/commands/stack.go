package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/groww"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/pipeline"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/store"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/pkg/config"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/pkg/database"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/pkg/logger"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/pkg/metrics"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/pkg/redis"
)

// stack is the fully wired application graph shared by the commands.
type stack struct {
	cfg     *config.Config
	log     *logger.Logger
	db      *database.DB
	redis   *redis.Client
	mongo   *mongo.Client
	metrics *metrics.PipelineMetrics

	session    *groww.Session
	client     *groww.Client
	timeseries *store.TimeseriesStore
	cache      *store.CacheStore
	audit      *store.AuditStore
	universe   *pipeline.Universe
	orch       *pipeline.Orchestrator
}

// buildStack wires every component from configuration. withDB controls
// whether the persistence tiers are attached; diagnostics commands that only
// talk upstream can skip them.
func buildStack(ctx context.Context, withDB bool) (*stack, error) {
	if envFile != "" {
		if err := godotenv.Overload(envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	s := &stack{
		cfg:     cfg,
		log:     logger.New(cfg),
		metrics: metrics.New(),
	}

	s.session = groww.NewSession(cfg.Groww, s.log)
	s.client = groww.NewClient(cfg.Groww, s.session, s.log, s.metrics)
	s.universe = pipeline.NewUniverse()

	if !withDB {
		return s, nil
	}

	s.db, err = database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	s.timeseries = store.NewTimeseriesStore(s.db.Pool)

	s.redis, err = redis.New(cfg)
	if err != nil {
		s.log.WithError(err).Warn("Redis unavailable, cache tier disabled")
		s.redis = &redis.Client{}
	}
	s.cache = store.NewCacheStore(s.redis)

	if cfg.Mongo.Enabled {
		mctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		s.mongo, err = mongo.Connect(mctx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			s.log.WithError(err).Warn("Document store unavailable, audit tier disabled")
		} else {
			s.audit = store.NewAuditStore(s.mongo, cfg.Mongo.Database)
		}
	}

	fanout := store.NewFanout(s.log, s.metrics,
		&store.TimeseriesSink{Store: s.timeseries},
		&store.CacheSink{Store: s.cache},
		&store.AuditSink{Store: s.audit},
	)

	var auditor pipeline.JobAuditor
	if s.audit != nil {
		auditor = s.audit
	}
	s.orch = pipeline.NewOrchestrator(
		cfg.Pipeline, s.universe, s.client, fanout, s.session,
		auditor, s.cache, s.log, s.metrics,
	)
	return s, nil
}

// close releases every connection the stack holds.
func (s *stack) close(ctx context.Context) {
	if s.db != nil {
		s.db.Close()
	}
	if s.redis != nil {
		s.redis.Close()
	}
	if s.mongo != nil {
		if err := s.mongo.Disconnect(ctx); err != nil {
			s.log.WithError(err).Warn("Document store disconnect failed")
		}
	}
}

// Package backend opens the configured persistence stack and hands out the
// adapters the core services depend on.
package backend

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fusepoint/dashboard-service/internal/core/ports"
	mongostore "github.com/fusepoint/dashboard-service/internal/infrastructure/db/mongo"
	pgstore "github.com/fusepoint/dashboard-service/internal/infrastructure/db/postgres"
	redisstore "github.com/fusepoint/dashboard-service/internal/infrastructure/db/redis"
	"github.com/fusepoint/dashboard-service/internal/infrastructure/http/handlers"
	"github.com/fusepoint/dashboard-service/internal/pkg/config"
)

// Backend groups the adapters of one store driver plus the optional cache.
type Backend struct {
	Driver        string
	Dashboards    ports.DashboardRepository
	Projects      ports.ProjectLookup
	Relationships ports.RelationshipLookup
	// Memberships are listed in lookup priority order.
	Memberships []ports.MembershipSource
	// Cache is nil when Redis is not configured.
	Cache  ports.VersionCache
	Probes []handlers.Probe

	prepare func(context.Context) error
	closers []func(context.Context)
}

// Open connects to the store selected by cfg.StoreDriver and, when
// configured, to Redis. On error everything opened so far is closed.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (_ *Backend, err error) {
	b := &Backend{Driver: cfg.StoreDriver}
	defer func() {
		if err != nil {
			b.Close(context.Background())
		}
	}()

	switch cfg.StoreDriver {
	case config.DriverPostgres:
		err = b.openPostgres(ctx, cfg)
	case config.DriverMongo:
		err = b.openMongo(ctx, cfg)
	default:
		err = fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Redis.Addr != "" {
		rdb, err := redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func(context.Context) { _ = rdb.Close() })
		b.Cache = redisstore.NewVersionCache(rdb, cfg.VersionCacheTTL)
		b.Probes = append(b.Probes, handlers.RedisProbe(rdb))
	} else {
		log.Info().Msg("redis not configured, dashboard version cache disabled")
	}

	log.Info().Str("driver", b.Driver).Msg("store connected")
	return b, nil
}

func (b *Backend) openPostgres(ctx context.Context, cfg *config.Config) error {
	pool, err := pgstore.Open(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	b.closers = append(b.closers, func(context.Context) { pool.Close() })

	b.Dashboards = pgstore.NewDashboardRepository(pool)
	b.Projects = pgstore.NewProjectRepository(pool)
	b.Relationships = pgstore.NewRelationshipRepository(pool)
	b.Memberships = []ports.MembershipSource{
		pgstore.NewProjectMemberSource(pool),
		pgstore.NewTeamMemberSource(pool),
	}
	b.Probes = append(b.Probes, handlers.PostgresProbe(pool))
	b.prepare = func(ctx context.Context) error { return pgstore.VerifySchema(ctx, pool) }
	return nil
}

func (b *Backend) openMongo(ctx context.Context, cfg *config.Config) error {
	client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	b.closers = append(b.closers, func(ctx context.Context) { _ = client.Disconnect(ctx) })

	b.Dashboards = mongostore.NewDashboardRepository(db)
	b.Projects = mongostore.NewProjectRepository(db)
	b.Relationships = mongostore.NewRelationshipRepository(db)
	b.Memberships = []ports.MembershipSource{
		mongostore.NewProjectMemberSource(db),
		mongostore.NewTeamMemberSource(db),
	}
	b.Probes = append(b.Probes, handlers.MongoProbe(db))
	b.prepare = func(ctx context.Context) error { return mongostore.EnsureIndexes(ctx, db) }
	return nil
}

// Prepare readies the store for dashboard traffic: it creates the Mongo
// indexes, or verifies the Postgres table shape.
func (b *Backend) Prepare(ctx context.Context) error {
	if b.prepare == nil {
		return nil
	}
	if err := b.prepare(ctx); err != nil {
		return fmt.Errorf("%s schema setup: %w", b.Driver, err)
	}
	return nil
}

// Close releases connections in reverse order of opening.
func (b *Backend) Close(ctx context.Context) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i](ctx)
	}
	b.closers = nil
}

package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/manyblack/studio/internal/adapters/file"
	"github.com/manyblack/studio/internal/config"
	studiohttp "github.com/manyblack/studio/pkg/adapters/http"
	"github.com/manyblack/studio/pkg/adapters/memory"
	"github.com/manyblack/studio/pkg/adapters/redis"
	"github.com/manyblack/studio/pkg/catalog"
	"github.com/manyblack/studio/pkg/client"
	"github.com/manyblack/studio/pkg/domain"
	"github.com/manyblack/studio/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// Studio holds the catalogs opened for one command.
type Studio struct {
	Catalogs *catalog.Catalogs
	closers  []func() error
}

// Close releases store connections.
func (s *Studio) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// OpenCatalogs builds both catalogs on the store named by cfg.Store.
func OpenCatalogs(cfg *config.Config, logger *slog.Logger, opts ...catalog.Option) (*Studio, error) {
	s := &Studio{}
	var autos ports.Catalog[domain.Automation]
	var procs ports.Catalog[domain.Procedure]

	switch cfg.Store {
	case config.StoreMemory:
		logger.Warn("using the memory store: catalog changes are lost when this process exits")
		autos = memory.NewStore[domain.Automation](domain.Automations)
		procs = memory.NewStore[domain.Procedure](domain.Procedures)
	case config.StoreFile:
		autos = file.New[domain.Automation](domain.Automations, cfg.PoliciesDir, cfg.BackupDir)
		procs = file.New[domain.Procedure](domain.Procedures, cfg.PoliciesDir, cfg.BackupDir)
	case config.StoreRedis:
		rdb := backend.NewClient(&backend.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		s.closers = append(s.closers, rdb.Close)
		autos = redis.NewFromClient[domain.Automation](rdb, domain.Automations,
			redis.WithPrefix(cfg.Redis.Prefix+string(domain.Automations)+":"))
		procs = redis.NewFromClient[domain.Procedure](rdb, domain.Procedures,
			redis.WithPrefix(cfg.Redis.Prefix+string(domain.Procedures)+":"))
		// Replicas share the store, so resets and restores are serialised across them
		opts = append(opts, catalog.WithLocker(redis.NewLocker(rdb, cfg.Redis.Prefix), cfg.Lock.TTL))
	case config.StoreRemote:
		c, err := client.New(cfg.StudioURL, client.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		autos = studiohttp.NewRemoteCatalog[domain.Automation](c, domain.Automations)
		procs = studiohttp.NewRemoteCatalog[domain.Procedure](c, domain.Procedures)
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	opts = append([]catalog.Option{catalog.WithLogger(logger)}, opts...)
	s.Catalogs = catalog.New(
		catalog.NewAutomations(autos, opts...),
		catalog.NewProcedures(procs, autos, opts...),
	)
	logger.Debug("catalogs opened", "store", cfg.Store)
	return s, nil
}

package commands

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/simonhull/firebird-suite/nest"
	"github.com/simonhull/firebird-suite/nest/internal/audit"
	"github.com/simonhull/firebird-suite/nest/internal/catalog"
	"github.com/simonhull/firebird-suite/nest/internal/config"
	"github.com/simonhull/firebird-suite/nest/internal/jobs"
	"github.com/simonhull/firebird-suite/nest/internal/logger"
	"github.com/simonhull/firebird-suite/nest/internal/metrics"
	"github.com/simonhull/firebird-suite/nest/internal/orchestrator"
	"github.com/simonhull/firebird-suite/nest/internal/server"
)

// ServeCmd creates and returns the 'serve' command
func ServeCmd() *cobra.Command {
	var catalogPath, addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the generation HTTP API",
		Long: `Serve exposes generation over HTTP:

  POST /api/v1/generations           submit a request (202 + task id)
  GET  /api/v1/generations/:id       poll a task
  POST /api/v1/generations/validate  validate without generating
  POST /api/v1/generations/compare   compare two requests
  POST /api/v1/diff                  analyze two texts
  GET  /health, /metrics

Task status lives in memory or redis (jobs.backend in nest.yaml).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			log := newLogger(cmd, cfg)

			cat, err := catalog.Load(catalogPath)
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			svc, err := newService(ctx, cfg, cat, log)
			if err != nil {
				return err
			}
			defer svc.Close()

			return svc.server.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&catalogPath, "catalog", "c", "catalog.yaml", "Project catalog file")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from settings)")
	return cmd
}

// service is the API server with the stores it owns.
type service struct {
	server *server.Server
	orch   *orchestrator.Orchestrator
	store  jobs.Store
	audit  *audit.Recorder
}

func newService(ctx context.Context, cfg *config.Config, meta catalog.MetadataSource, log logger.Logger) (*service, error) {
	store, err := jobs.Open(ctx, cfg.Jobs, log)
	if err != nil {
		return nil, err
	}
	svc := &service{store: store}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	opts := []orchestrator.Option{
		orchestrator.WithLogger(log),
		orchestrator.WithJobStore(store),
		orchestrator.WithMetrics(m),
	}
	if cfg.Audit.Enabled {
		rec, err := audit.Open(cfg.Audit.Path)
		if err != nil {
			store.Close()
			return nil, err
		}
		svc.audit = rec
		opts = append(opts, orchestrator.WithAuditor(rec))
	}

	svc.orch = orchestrator.New(cfg, meta, opts...)
	svc.server = server.New(cfg, svc.orch,
		server.WithLogger(log),
		server.WithMetrics(m, reg),
		server.WithVersion(nest.Version))
	return svc, nil
}

// Close waits for submitted generations and releases the stores.
func (s *service) Close() error {
	s.orch.Wait()
	err := s.store.Close()
	if s.audit != nil {
		err = errors.Join(err, s.audit.Close())
	}
	return err
}

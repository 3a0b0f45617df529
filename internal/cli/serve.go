package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	handler "WooWithBizimHesap/internal/handlers/http"
	"WooWithBizimHesap/internal/sync"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func (r *root) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and the periodic sync passes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, r.serve)
		},
	}
}

func (r *root) serve(ctx context.Context, a *app) error {
	log := r.logger
	log.Info("Start serve")
	defer log.Info("End serve")

	cfg := r.cfg
	service := sync.NewService(a.products, a.orders, a.jobs, a.notifier, sync.Schedule{
		ProductInterval: time.Duration(cfg.PRODUCTSYNC.Interval) * time.Minute,
		OrderInterval:   time.Duration(cfg.ORDERSYNC.Interval) * time.Minute,
		OrderPages:      cfg.ORDERSYNC.MaxPages,
		PruneInterval:   time.Duration(cfg.JOBS.PruneInterval) * time.Hour,
		Retention:       cfg.Retention(),
	}, log)

	h := handler.NewHandler(a.products, a.orders, a.catalog, a.jobs, a.pool, a.notifier, handler.Options{
		WebhookSecret: cfg.WEBHOOK.Secret,
		OrderPages:    cfg.ORDERSYNC.MaxPages,
	}, log)
	if cfg.WEBHOOK.Secret == "" {
		log.Warn("WEBHOOK.Secret is empty, webhook deliveries will be refused")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.SERVICE.PORT),
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return service.Run(ctx)
	})
	g.Go(func() error {
		log.Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "failed ListenAndServe")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	})
	return g.Wait()
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"economy-server/internal/infrastructure/scheduler"
	grpcserver "economy-server/internal/presentation/grpc"
	"economy-server/internal/presentation/rest"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("memory", false, "Use in-memory storage instead of MySQL")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST API, the bot gRPC service and scheduled jobs",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	inMemory, _ := cmd.Flags().GetBool("memory")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, inMemory)
	if err != nil {
		return err
	}
	defer a.close()

	router, err := rest.NewRouter(a.cfg, a.logger, a.metrics, a.registry, rest.Services{
		Auth:     a.services.auth,
		Wallet:   a.services.wallet,
		Transfer: a.services.transfer,
		Shop:     a.services.shop,
		Ticket:   a.services.ticket,
		Treasury: a.services.treasury,
		Earn:     a.services.earn,
		History:  a.services.history,
		Settings: a.services.settings,
	})
	if err != nil {
		return fmt.Errorf("failed to create router: %w", err)
	}

	var grpcSrv *grpcserver.Server
	if a.cfg.Server.GRPCPort > 0 {
		grpcSrv, err = grpcserver.NewServer(a.cfg, a.logger, a.metrics, grpcserver.Services{
			Earn:     a.services.earn,
			Wallet:   a.services.wallet,
			Transfer: a.services.transfer,
			Ticket:   a.services.ticket,
		})
		if err != nil {
			return fmt.Errorf("failed to create gRPC server: %w", err)
		}
	}

	var sched *scheduler.Scheduler
	if a.cfg.Scheduler.Enabled {
		sched, err = newScheduler(a)
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info(gctx, "REST API server starting", map[string]interface{}{
			"port": a.cfg.Server.Port,
		})
		return router.Start()
	})

	if grpcSrv != nil {
		g.Go(grpcSrv.Start)
	}

	if sched != nil {
		g.Go(func() error {
			return sched.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info(context.Background(), "Shutting down servers", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()

		var firstErr error
		if err := router.Shutdown(shutdownCtx); err != nil {
			a.logger.Error(shutdownCtx, "Error shutting down REST API server", err, nil)
			firstErr = err
		}
		if grpcSrv != nil {
			if err := grpcSrv.Stop(shutdownCtx); err != nil {
				a.logger.Error(shutdownCtx, "Error shutting down gRPC server", err, nil)
				if firstErr == nil {
					firstErr = err
				}
			}
		}
		return firstErr
	})

	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info(context.Background(), "Servers stopped", nil)
	return nil
}

// newScheduler 月次税とロール期限回収のジョブを登録したSchedulerを作成
func newScheduler(a *app) (*scheduler.Scheduler, error) {
	sched, err := scheduler.New(a.cfg.Scheduler, a.logger, a.metrics)
	if err != nil {
		return nil, err
	}
	if err := sched.Add("tax_collect", a.cfg.Scheduler.TaxSpec, func(ctx context.Context) error {
		_, err := a.services.treasury.CollectAll(ctx, time.Now())
		return err
	}); err != nil {
		return nil, err
	}
	if err := sched.Add("role_expiry", a.cfg.Scheduler.RoleExpirySpec, func(ctx context.Context) error {
		_, err := a.services.ticket.ExpireRoleGrants(ctx)
		return err
	}); err != nil {
		return nil, err
	}
	return sched, nil
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"adsdash/agent-app/scheduler"
	"adsdash/agent-app/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the agent HTTP API, the data watcher and the daily check schedule",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Data.Watch {
		go func() {
			if err := a.data.Watch(ctx); err != nil {
				logger.Error("data_watch_stopped", zap.Error(err))
			}
		}()
	}

	if cfg.Schedule.DailyCheck != "" {
		notifier, err := a.notifier()
		if err != nil {
			return err
		}
		runTimeout, _ := cfg.ModelTimeout()
		sched := scheduler.New(a.svc, notifier, runTimeout, logger)
		if err := sched.AddDailyCheck(cfg.Schedule.DailyCheck, nil); err != nil {
			return err
		}
		sched.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := sched.Stop(stopCtx); err != nil {
				logger.Warn("scheduler_stop_timeout", zap.Error(err))
			}
		}()
	}

	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.New(a.svc, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("http_listening", zap.String("addr", srv.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("http_shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

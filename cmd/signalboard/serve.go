package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/signalboard/internal/engine"
	"github.com/alexisbeaulieu97/signalboard/internal/server"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the board's HTTP server",
		Long:  "Serve the dashboard, the plain-text board, and the JSON API. Starts the background refresh loop when one is configured.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppContext(flags)
			if err != nil {
				return err
			}
			defer app.close()

			return runServe(app)
		},
	}

	return cmd
}

func runServe(app *appContext) error {
	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(server.Deps{
		Engine:   app.eng,
		Registry: app.reg,
		Cache:    app.cache,
		Subs:     app.subs,
		Builders: app.builders,
		Logger:   app.log,
	})

	httpSrv := &http.Server{
		Addr:              app.cfg.Server.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var sched *engine.Scheduler
	if app.cfg.Refresh.Background {
		var err error
		sched, err = engine.NewScheduler(app.eng, app.log, engine.SchedulerConfig{
			Interval: app.cfg.Refresh.Interval,
			Cron:     app.cfg.Refresh.Cron,
		})
		if err != nil {
			return err
		}
		sched.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		app.log.WithFields(map[string]any{"listen": app.cfg.Server.Listen}).Info("http server starting")
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		app.log.Info("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			app.log.Error(err, "scheduler stop failed")
		}
	}
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

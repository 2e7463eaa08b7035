package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mkfnx/dashboard-afluencia-metro-cdmx/internal/server"
	"github.com/mkfnx/dashboard-afluencia-metro-cdmx/internal/store"
)

var (
	servePort      int
	serveFromStore bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard HTTP server",
	Long: `Serves the interactive ridership dashboard and its JSON API.

By default data comes straight from the configured source files through a
memoized loader. With --from-store the server reads the snapshot written by
a previous "afluencia import" instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var provider server.Provider
		if serveFromStore || cfg.Server.FromStore {
			st, err := store.Open(ctx, cfg.Store)
			if err != nil {
				return eris.Wrap(err, "serve: open store")
			}
			defer st.Close() //nolint:errcheck
			provider = &server.StoreProvider{Store: st}
		} else {
			loader, err := newLoader()
			if err != nil {
				return err
			}
			provider = &server.LoaderProvider{Loader: loader}
		}

		handler := server.New(provider, server.Options{
			TopStations:   cfg.Chart.TopStations,
			MaxMarkerSize: cfg.Map.MaxMarkerSize,
			RateLimit:     rate.Limit(cfg.Server.RateLimit),
			RateBurst:     cfg.Server.RateBurst,
			AllowedOrigin: cfg.Server.AllowedOrigin,
		}).Handler()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: handler,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server",
			zap.Int("port", port),
			zap.Bool("from_store", serveFromStore || cfg.Server.FromStore),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&serveFromStore, "from-store", false, "serve the imported snapshot instead of reading source files")
	rootCmd.AddCommand(serveCmd)
}

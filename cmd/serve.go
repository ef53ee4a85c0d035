package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/podrewind/guest-engine/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the extraction HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Post("/v1/extract", func(w http.ResponseWriter, req *http.Request) {
			var body model.ExtractionRequest
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
				return
			}
			if body.Title == "" && body.Description == "" {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title or description is required"})
				return
			}
			if body.EpisodeID == "" {
				body.EpisodeID = uuid.New().String()
			}

			// Absence of guests is a valid outcome, not an HTTP error; the
			// engine never fails outright.
			result := env.engine.Extract(req.Context(), body)
			writeJSON(w, http.StatusOK, result)
		})

		r.Get("/v1/health", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, env.engine.Health())
		})

		r.Get("/v1/budget", func(w http.ResponseWriter, req *http.Request) {
			b, err := env.ledger.Current(req.Context())
			if err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "budget store unavailable"})
				return
			}
			writeJSON(w, http.StatusOK, budgetView(b))
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("extraction server listening", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func budgetView(b model.Budget) map[string]any {
	return map[string]any{
		"period":            b.Period,
		"monthly_limit_usd": b.MonthlyLimitUSD,
		"current_spend_usd": b.CurrentSpendUSD,
		"remaining_usd":     b.RemainingUSD(),
		"warning_threshold": b.WarningThreshold,
		"warning":           b.CurrentSpendUSD >= b.WarningThreshold*b.MonthlyLimitUSD,
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

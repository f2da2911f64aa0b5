package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/routeops-cli/internal/cleaning"
	"github.com/sells-group/routeops-cli/internal/model"
	"github.com/sells-group/routeops-cli/internal/optimizer"
	"github.com/sells-group/routeops-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for the admin console frontend",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(st, newOptimizerService(st), cfg.Server.AllowedOrigins),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// newRouter builds the API surface the console frontend talks to. All
// analysis endpoints are synchronous: a full pass over realistic datasets
// takes seconds, so there is no job queue.
func newRouter(st store.Store, svc *optimizer.Service, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/branches", func(w http.ResponseWriter, req *http.Request) {
			branches, err := st.Branches(req.Context())
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, branches)
		})

		r.Get("/routes", func(w http.ResponseWriter, req *http.Request) {
			routes, err := st.RouteNames(req.Context())
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, routes)
		})

		r.Post("/optimize", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Branch string   `json:"branch"`
				Week   int      `json:"week"`
				Routes []string `json:"routes"`
			}
			if err := decodeBody(req, &body); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
			result := svc.Analyze(req.Context(), model.VisitFilter{
				BranchCode: body.Branch,
				WeekNumber: body.Week,
				RouteNames: body.Routes,
			})
			writeJSON(w, http.StatusOK, result)
		})

		r.Post("/dedupe", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				ProximityDeg float64 `json:"proximity_deg"`
			}
			if err := decodeBody(req, &body); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
			records, err := st.ListCustomers(req.Context())
			if err != nil {
				writeError(w, err)
				return
			}
			var opts []cleaning.DetectorOption
			if body.ProximityDeg > 0 {
				opts = append(opts, cleaning.WithProximity(body.ProximityDeg))
			}
			pairs := cleaning.NewDetector(opts...).Detect(records)
			writeJSON(w, http.StatusOK, map[string]any{
				"records": len(records),
				"pairs":   pairs,
			})
		})

		r.Post("/standardize", func(w http.ResponseWriter, req *http.Request) {
			records, err := st.ListCustomers(req.Context())
			if err != nil {
				writeError(w, err)
				return
			}
			// Reverse geocoding stays off the request path; the API always
			// proposes coordinate placeholders.
			proposals := cleaning.NewGapAnalyzer(nil).Proposals(req.Context(), records)
			clusters := cleaning.AnalyzeBranchVariations(records)
			writeJSON(w, http.StatusOK, map[string]any{
				"proposals":       proposals,
				"branch_clusters": clusters,
			})
		})

		r.Post("/apply", func(w http.ResponseWriter, req *http.Request) {
			var decisions cleaning.Decisions
			if err := decodeBody(req, &decisions); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
			cs := cleaning.BuildChangeSet(decisions)
			result := cleaning.NewApplier(st).Apply(req.Context(), cs)
			writeJSON(w, http.StatusOK, result)
		})
	})

	return r
}

func decodeBody(req *http.Request, out any) error {
	if req.Body == nil || req.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(req.Body).Decode(out); err != nil {
		return eris.Wrap(err, "invalid request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	zap.L().Error("request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

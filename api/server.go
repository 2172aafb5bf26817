/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/employers/*      Employer profiles and their pay periods
  /api/shifts/*         Logged shifts and timesheet import
  /api/priced-shifts    Derived per-shift pay
  /api/pay-periods/*    Derived pay periods and xlsx export
  /api/config           Award configuration document
  /api/recompute        Manual recompute
  /api/runs             Recompute history
  /api/tax/quote        Withholding calculator
  /api/reset            Database reset (dev only)
  /*                    Static files (frontend)

STATIC FILE SERVING:
  Serves a built frontend from web/dist/ when present, falling back to
  index.html for client-side routing.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions tunes NewRouter. The zero value allows local dev origins.
type RouterOptions struct {
	AllowedOrigins []string
	StaticDir      string
	EnableReset    bool
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		// Employer routes
		r.Route("/employers", func(r chi.Router) {
			r.Get("/", h.ListEmployers)
			r.Post("/", h.CreateEmployer)
			r.Get("/{id}", h.GetEmployer)
			r.Put("/{id}", h.UpdateEmployer)
			r.Delete("/{id}", h.DeleteEmployer)
			r.Get("/{id}/pay-periods", h.GetEmployerPayPeriods)
		})

		// Shift routes
		r.Route("/shifts", func(r chi.Router) {
			r.Get("/", h.ListShifts)
			r.Post("/", h.CreateShifts)
			r.Post("/import", h.ImportShifts)
			r.Delete("/{id}", h.DeleteShift)
		})

		// Derived records
		r.Get("/priced-shifts", h.ListPricedShifts)
		r.Route("/pay-periods", func(r chi.Router) {
			r.Get("/", h.ListPayPeriods)
			r.Get("/export", h.ExportPayPeriods)
		})

		// Award configuration
		r.Get("/config", h.GetConfig)
		r.Put("/config", h.PutConfig)

		// Recompute routes
		r.Post("/recompute", h.TriggerRecompute)
		r.Get("/runs", h.ListRuns)

		r.Post("/tax/quote", h.QuoteTax)

		if opts.EnableReset {
			r.Post("/reset", h.ResetDatabase)
		}
	})

	// Serve static files (frontend build)
	staticDir := opts.StaticDir
	if staticDir == "" {
		staticDir = "./web/dist"
	}
	if _, err := os.Stat(staticDir); os.IsNotExist(err) {
		// Try relative to executable
		exe, _ := os.Executable()
		staticDir = filepath.Join(filepath.Dir(exe), "web", "dist")
	}

	if _, err := os.Stat(staticDir); err == nil {
		fileServer := http.FileServer(http.Dir(staticDir))
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			fullPath := filepath.Join(staticDir, r.URL.Path)

			// SPA routing: unknown paths serve index.html
			if _, err := os.Stat(fullPath); os.IsNotExist(err) {
				http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
				return
			}
			fileServer.ServeHTTP(w, r)
		})
	} else {
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Casual Pay</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Casual Pay API</h1>
<p>No frontend build found.</p>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/employers">/api/employers</a> - Employer profiles</li>
<li><a href="/api/shifts">/api/shifts</a> - Logged shifts</li>
<li><a href="/api/priced-shifts">/api/priced-shifts</a> - Shift pay</li>
<li><a href="/api/pay-periods">/api/pay-periods</a> - Pay periods</li>
<li><a href="/api/runs">/api/runs</a> - Recompute history</li>
</ul>
</body>
</html>`))
		})
	}

	return r
}

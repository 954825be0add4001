package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"inferd/pkg/types"
)

// Service defines the coordinator methods required by the HTTP API layer.
type Service interface {
	Warmup(model string) (types.Phase, error)
	Submit(model string, req json.RawMessage) (string, error)
	JobStatus(model, jobID string) (types.JobStatusResponse, error)
	Health(model string) (types.HealthResponse, error)
	Reset(model string) error
	Status() types.StatusResponse
}

var tracer = otel.Tracer("inferd/httpapi")

// NewMux builds the HTTP surface:
//
//	POST /v1/models/{model}/warmup     idempotent warmup trigger
//	POST /v1/models/{model}/jobs       submit inference work
//	GET  /v1/models/{model}/jobs/{id}  job status
//	GET  /v1/models/{model}/healthz    readiness probe (200/202/503)
//	GET  /status                       operational report
//	GET  /healthz                      process liveness
//	GET  /metrics                      Prometheus metrics
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	r.Use(MetricsMiddleware)

	r.Route("/v1/models/{model}", func(r chi.Router) {
		r.Post("/warmup", func(w http.ResponseWriter, req *http.Request) {
			model := chi.URLParam(req, "model")
			start := time.Now()
			_, span := tracer.Start(req.Context(), "warmup")
			span.SetAttributes(attribute.String("inferd.model", model))
			defer span.End()

			phase, err := svc.Warmup(model)
			if err != nil {
				status := writeCoordError(w, err)
				logRequest(req, "warmup", model, status, start, err)
				return
			}
			writeJSON(w, http.StatusOK, types.WarmupResponse{Model: model, Phase: phase})
			logRequest(req, "warmup", model, http.StatusOK, start, nil)
		})

		r.Post("/jobs", func(w http.ResponseWriter, req *http.Request) {
			model := chi.URLParam(req, "model")
			start := time.Now()
			_, span := tracer.Start(req.Context(), "submit")
			span.SetAttributes(attribute.String("inferd.model", model))
			defer span.End()

			ct := req.Header.Get("Content-Type")
			if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
				writeJSONError(w, http.StatusUnsupportedMediaType, types.KindInternalError, "Content-Type must be application/json")
				return
			}
			req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
			var body types.SubmitRequest
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeJSONError(w, http.StatusBadRequest, types.KindInternalError, "invalid JSON body")
				return
			}
			id, err := svc.Submit(model, body.Input)
			if err != nil {
				status := writeCoordError(w, err)
				logRequest(req, "submit", model, status, start, err)
				return
			}
			writeJSON(w, http.StatusAccepted, types.SubmitResponse{JobID: id})
			logRequest(req, "submit", model, http.StatusAccepted, start, nil)
		})

		r.Get("/jobs/{id}", func(w http.ResponseWriter, req *http.Request) {
			model := chi.URLParam(req, "model")
			st, err := svc.JobStatus(model, chi.URLParam(req, "id"))
			if err != nil {
				writeCoordError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, st)
		})

		r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
			model := chi.URLParam(req, "model")
			h, err := svc.Health(model)
			if err != nil {
				writeCoordError(w, err)
				return
			}
			writeJSON(w, healthStatus(h.Phase), h)
		})

		r.Post("/reset", func(w http.ResponseWriter, req *http.Request) {
			model := chi.URLParam(req, "model")
			if err := svc.Reset(model); err != nil {
				writeCoordError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, types.WarmupResponse{Model: model, Phase: types.PhaseUnloaded})
		})
	})

	r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && zlog != nil {
		zlog.Error().Err(err).Msg("encode response")
	}
}

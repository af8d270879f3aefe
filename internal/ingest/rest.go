package ingest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"vitalscore/internal/config"
	"vitalscore/internal/model"
)

type RESTServer struct {
	cfg    *config.Manager
	out    chan<- model.MetricSample
	logger *slog.Logger
}

func StartREST(ctx context.Context, cfg *config.Manager, out chan<- model.MetricSample, logger *slog.Logger) *http.Server {
	current := cfg.Get().Ingest.REST
	if !current.Enabled {
		if logger != nil {
			logger.Info("rest ingest disabled")
		}
		return nil
	}
	if logger != nil {
		logger.Info("rest ingest enabled", "addr", current.Addr)
	}
	server := &RESTServer{cfg: cfg, out: out, logger: logger}
	mux := http.NewServeMux()
	mux.HandleFunc("/samples", server.handleSamples)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	httpServer := &http.Server{Addr: current.Addr, Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(ctxShutdown)
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if logger != nil {
				logger.Error("rest ingest server error", "err", err)
			}
		}
	}()
	return httpServer
}

// handleSamples accepts one sample object or an array of them.
func (s *RESTServer) handleSamples(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 4<<20))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	samples, err := decodeSamples(body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	accepted := 0
	for _, sample := range samples {
		sample.Source = defaultSource(sample.Source, "rest")
		if SendNonBlocking(r.Context(), s.out, sample, s.logger) {
			accepted++
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]int{"accepted": accepted})
}

func decodeSamples(body []byte) ([]model.MetricSample, error) {
	trimmed := 0
	for trimmed < len(body) && body[trimmed] <= ' ' {
		trimmed++
	}
	if trimmed < len(body) && body[trimmed] == '[' {
		var rows []json.RawMessage
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, err
		}
		out := make([]model.MetricSample, 0, len(rows))
		for _, raw := range rows {
			sample, err := ParseJSONBytes(raw)
			if err != nil {
				return nil, err
			}
			out = append(out, *sample)
		}
		return out, nil
	}
	sample, err := ParseJSONBytes(body)
	if err != nil {
		return nil, err
	}
	return []model.MetricSample{*sample}, nil
}

func defaultSource(source, fallback string) string {
	if source == "" {
		return fallback
	}
	return source
}

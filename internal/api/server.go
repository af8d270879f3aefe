package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vitalscore/internal/config"
	"vitalscore/internal/events"
	"vitalscore/internal/model"
	"vitalscore/internal/percentile"
	"vitalscore/internal/pipeline"
	"vitalscore/internal/results"
)

type EngineControl interface {
	Reset()
	UpdateConfig(cfg *config.Config)
}

type Server struct {
	cfg      *config.Manager
	results  *results.Store
	events   *events.Store
	profiles *pipeline.StaticProfiles
	engine   EngineControl
	logger   *slog.Logger
	version  string
}

type statusResponse struct {
	Status     string        `json:"status"`
	Time       string        `json:"time"`
	Version    string        `json:"version"`
	ConfigPath string        `json:"config_path"`
	Ingest     ingestStatus  `json:"ingest"`
	API        apiStatus     `json:"api"`
	Scoring    scoringStatus `json:"scoring"`
	Anomaly    anomalyStatus `json:"anomaly"`
}

type ingestStatus struct {
	REST     bool `json:"rest"`
	Kafka    bool `json:"kafka"`
	FileTail bool `json:"file_tail"`
}

type apiStatus struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

type scoringStatus struct {
	AdvisoryEnabled bool                 `json:"advisory_enabled"`
	DefaultWeights  config.WeightsConfig `json:"default_weights"`
}

type anomalyStatus struct {
	CandidateSigma float64 `json:"candidate_sigma"`
	OverrideSigma  float64 `json:"override_sigma"`
	CriticalSigma  float64 `json:"critical_sigma"`
}

func Start(ctx context.Context, cfg *config.Manager, resultsStore *results.Store, eventsStore *events.Store, profiles *pipeline.StaticProfiles, engine EngineControl, logger *slog.Logger, version string) *http.Server {
	if cfg == nil {
		return nil
	}
	current := cfg.Get().API
	if !current.Enabled {
		if logger != nil {
			logger.Info("api disabled")
		}
		return nil
	}
	if logger != nil {
		logger.Info("api enabled", "addr", current.Addr)
	}
	server := &Server{
		cfg:      cfg,
		results:  resultsStore,
		events:   eventsStore,
		profiles: profiles,
		engine:   engine,
		logger:   logger,
		version:  version,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/status", server.handleStatus)
	mux.HandleFunc("/scores", server.handleScores)
	mux.HandleFunc("/scores/", server.handleScores)
	mux.HandleFunc("/anomalies", server.handleAnomalies)
	mux.HandleFunc("/classify", server.handleClassify)
	mux.HandleFunc("/profiles", server.handleProfiles)
	mux.HandleFunc("/admin/clear", server.handleClear)

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
				logger.Error("api server error", "err", err)
			}
		}
	}()
	return httpServer
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	cfg := s.cfg.Get()
	resp := statusResponse{
		Status:     "ok",
		Time:       time.Now().UTC().Format(time.RFC3339Nano),
		Version:    s.version,
		ConfigPath: s.cfg.Path(),
		Ingest: ingestStatus{
			REST:     cfg.Ingest.REST.Enabled,
			Kafka:    cfg.Ingest.Kafka.Enabled,
			FileTail: cfg.Ingest.FileTail.Enabled,
		},
		API: apiStatus{Enabled: cfg.API.Enabled, Addr: cfg.API.Addr},
		Scoring: scoringStatus{
			AdvisoryEnabled: cfg.Scoring.Advisory.Enabled,
			DefaultWeights:  cfg.Scoring.Weights,
		},
		Anomaly: anomalyStatus{
			CandidateSigma: cfg.Anomaly.CandidateSigma,
			OverrideSigma:  cfg.Anomaly.OverrideSigma,
			CriticalSigma:  cfg.Anomaly.CriticalSigma,
		},
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/scores")
	path = strings.TrimPrefix(path, "/")
	if path != "" {
		rec, updated, ok := s.results.Get(path)
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"user_id":    path,
			"updated_at": updated.Format(time.RFC3339Nano),
			"score":      rec,
		})
		return
	}
	all := s.results.GetAll()
	writeJSON(w, http.StatusOK, map[string]any{
		"scores": all,
		"count":  len(all),
	})
}

func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	sinceStr := r.URL.Query().Get("since")
	var list []model.AnomalyEvent
	if sinceStr != "" {
		ts, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		list = s.events.Since(ts)
	} else {
		list = s.events.List(limit)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"anomalies": list,
		"count":     len(list),
	})
}

// handleClassify answers where a raw HRV or deep-sleep reading sits in the
// user's age/sex population: percentile plus qualitative bucket.
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	userID := q.Get("user")
	metric := model.MetricType(q.Get("metric"))
	value, err := strconv.ParseFloat(q.Get("value"), 64)
	if userID == "" || metric == "" || err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "classify requires user, metric and a numeric value"})
		return
	}
	profile, ok, err := s.profiles.Profile(r.Context(), userID)
	if err != nil || !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	result, err := percentile.Classify(metric, value, profile)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":        userID,
		"metric_type":    metric,
		"value":          value,
		"percentile":     result.Percentile,
		"classification": result.Classification,
	})
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{
			"profiles": s.profiles.All(),
		})
	case http.MethodPost:
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var profile model.UserProfile
		if err := json.Unmarshal(body, &profile); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if profile.UserID == "" || profile.Age <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "profile requires user_id and age"})
			return
		}
		s.profiles.Upsert(profile)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, _ := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	var req struct {
		Target string `json:"target"`
	}
	_ = json.Unmarshal(body, &req)
	target := strings.ToLower(strings.TrimSpace(req.Target))
	if target == "" {
		target = "all"
	}
	switch target {
	case "all":
		if s.engine != nil {
			s.engine.Reset()
		}
	case "scores":
		if s.results != nil {
			s.results.Clear()
		}
	case "anomalies":
		if s.events != nil {
			s.events.Clear()
		}
	default:
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel string         `json:"log_level" yaml:"log_level"`
	Ingest   IngestConfig   `json:"ingest" yaml:"ingest"`
	Scoring  ScoringConfig  `json:"scoring" yaml:"scoring"`
	Anomaly  AnomalyConfig  `json:"anomaly" yaml:"anomaly"`
	Baseline BaselineConfig `json:"baseline" yaml:"baseline"`
	API      APIConfig      `json:"api" yaml:"api"`
	Storage  StorageConfig  `json:"storage" yaml:"storage"`
	Results  ResultsConfig  `json:"results" yaml:"results"`
	Events   EventsConfig   `json:"events" yaml:"events"`
}

type IngestConfig struct {
	ChannelBuffer int            `json:"channel_buffer" yaml:"channel_buffer"`
	REST          RESTConfig     `json:"rest" yaml:"rest"`
	Kafka         KafkaConfig    `json:"kafka" yaml:"kafka"`
	FileTail      FileTailConfig `json:"file_tail" yaml:"file_tail"`
}

type RESTConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

type KafkaConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled"`
	Brokers []string `json:"brokers" yaml:"brokers"`
	Topic   string   `json:"topic" yaml:"topic"`
	GroupID string   `json:"group_id" yaml:"group_id"`
}

type FileTailConfig struct {
	Enabled    bool     `json:"enabled" yaml:"enabled"`
	StartAtEnd bool     `json:"start_at_end" yaml:"start_at_end"`
	Files      []string `json:"files" yaml:"files"`
}

type ScoringConfig struct {
	Weights  WeightsConfig  `json:"weights" yaml:"weights"`
	Advisory AdvisoryConfig `json:"advisory" yaml:"advisory"`
}

// WeightsConfig holds the default component weights used when the
// advisory collaborator is disabled or unavailable.
type WeightsConfig struct {
	HRV      float64 `json:"hrv" yaml:"hrv"`
	Sleep    float64 `json:"sleep" yaml:"sleep"`
	Recovery float64 `json:"recovery" yaml:"recovery"`
	Activity float64 `json:"activity" yaml:"activity"`
}

type AdvisoryConfig struct {
	Enabled   bool          `json:"enabled" yaml:"enabled"`
	Model     string        `json:"model" yaml:"model"`
	Timeout   time.Duration `json:"timeout" yaml:"timeout"`
	CacheTTL  time.Duration `json:"cache_ttl" yaml:"cache_ttl"`
	CacheSize int           `json:"cache_size" yaml:"cache_size"`
}

type AnomalyConfig struct {
	CandidateSigma float64 `json:"candidate_sigma" yaml:"candidate_sigma"`
	OverrideSigma  float64 `json:"override_sigma" yaml:"override_sigma"`
	CriticalSigma  float64 `json:"critical_sigma" yaml:"critical_sigma"`
}

type BaselineConfig struct {
	WindowDays int `json:"window_days" yaml:"window_days"`
	MinSamples int `json:"min_samples" yaml:"min_samples"`
}

type APIConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

type StorageConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Driver  string `json:"driver" yaml:"driver"`
	DSN     string `json:"dsn" yaml:"dsn"`
}

type ResultsConfig struct {
	StoreLimit int `json:"store_limit" yaml:"store_limit"`
}

type EventsConfig struct {
	StoreLimit int `json:"store_limit" yaml:"store_limit"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Ingest: IngestConfig{
			ChannelBuffer: 10000,
			REST:          RESTConfig{Enabled: true, Addr: ":8080"},
			Kafka:         KafkaConfig{Enabled: false},
			FileTail:      FileTailConfig{Enabled: false, StartAtEnd: true},
		},
		Scoring: ScoringConfig{
			Weights: WeightsConfig{HRV: 0.30, Sleep: 0.30, Recovery: 0.20, Activity: 0.20},
			Advisory: AdvisoryConfig{
				Enabled:   false,
				Timeout:   10 * time.Second,
				CacheTTL:  6 * time.Hour,
				CacheSize: 512,
			},
		},
		Anomaly: AnomalyConfig{
			CandidateSigma: 1.5,
			OverrideSigma:  2.0,
			CriticalSigma:  2.5,
		},
		Baseline: BaselineConfig{WindowDays: 30, MinSamples: 5},
		API:      APIConfig{Enabled: true, Addr: ":8081"},
		Storage:  StorageConfig{Enabled: true, Driver: "sqlite", DSN: "file:vitalscore.db?_pragma=busy_timeout(5000)"},
		Results:  ResultsConfig{StoreLimit: 5000},
		Events:   EventsConfig{StoreLimit: 1000},
	}
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()

	trimmed := strings.TrimSpace(string(content))
	if len(trimmed) == 0 {
		return nil, errors.New("config file is empty")
	}
	var decodeErr error
	if looksLikeJSON(trimmed) {
		decodeErr = json.Unmarshal([]byte(trimmed), cfg)
	} else {
		decodeErr = yaml.Unmarshal([]byte(trimmed), cfg)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	if path == "" || cfg == nil {
		return errors.New("config path or config is empty")
	}
	var data []byte
	var err error
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func looksLikeJSON(s string) bool {
	for _, ch := range s {
		if ch == '{' || ch == '[' {
			return true
		}
		if ch > ' ' {
			return false
		}
	}
	return false
}

func applyDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.Ingest.ChannelBuffer <= 0 {
		cfg.Ingest.ChannelBuffer = def.Ingest.ChannelBuffer
	}
	if cfg.Scoring.Weights == (WeightsConfig{}) {
		cfg.Scoring.Weights = def.Scoring.Weights
	}
	if cfg.Scoring.Advisory.Timeout <= 0 {
		cfg.Scoring.Advisory.Timeout = def.Scoring.Advisory.Timeout
	}
	if cfg.Scoring.Advisory.CacheTTL <= 0 {
		cfg.Scoring.Advisory.CacheTTL = def.Scoring.Advisory.CacheTTL
	}
	if cfg.Scoring.Advisory.CacheSize <= 0 {
		cfg.Scoring.Advisory.CacheSize = def.Scoring.Advisory.CacheSize
	}
	if cfg.Anomaly.CandidateSigma <= 0 {
		cfg.Anomaly.CandidateSigma = def.Anomaly.CandidateSigma
	}
	if cfg.Anomaly.OverrideSigma <= 0 {
		cfg.Anomaly.OverrideSigma = def.Anomaly.OverrideSigma
	}
	if cfg.Anomaly.CriticalSigma <= 0 {
		cfg.Anomaly.CriticalSigma = def.Anomaly.CriticalSigma
	}
	if cfg.Baseline.WindowDays <= 0 {
		cfg.Baseline.WindowDays = def.Baseline.WindowDays
	}
	if cfg.Baseline.MinSamples <= 0 {
		cfg.Baseline.MinSamples = def.Baseline.MinSamples
	}
	if cfg.Results.StoreLimit <= 0 {
		cfg.Results.StoreLimit = def.Results.StoreLimit
	}
	if cfg.Events.StoreLimit <= 0 {
		cfg.Events.StoreLimit = def.Events.StoreLimit
	}
}

func Validate(cfg *Config) error {
	if cfg.API.Enabled && cfg.API.Addr == "" {
		return errors.New("api.addr required when api.enabled is true")
	}
	if cfg.Ingest.REST.Enabled && cfg.Ingest.REST.Addr == "" {
		return errors.New("ingest.rest.addr required when ingest.rest.enabled is true")
	}
	if cfg.Ingest.Kafka.Enabled {
		if len(cfg.Ingest.Kafka.Brokers) == 0 || cfg.Ingest.Kafka.Topic == "" || cfg.Ingest.Kafka.GroupID == "" {
			return errors.New("ingest.kafka requires brokers, topic, group_id")
		}
	}
	if cfg.Ingest.FileTail.Enabled && len(cfg.Ingest.FileTail.Files) == 0 {
		return errors.New("ingest.file_tail.files required when ingest.file_tail.enabled is true")
	}
	w := cfg.Scoring.Weights
	for _, v := range []float64{w.HRV, w.Sleep, w.Recovery, w.Activity} {
		if v < 0 || v > 1 {
			return fmt.Errorf("scoring.weights entries must be in [0,1], got %v", v)
		}
	}
	sum := w.HRV + w.Sleep + w.Recovery + w.Activity
	if sum < 1-1e-6 || sum > 1+1e-6 {
		return fmt.Errorf("scoring.weights must sum to 1.0, got %v", sum)
	}
	if cfg.Anomaly.OverrideSigma < cfg.Anomaly.CandidateSigma {
		return errors.New("anomaly.override_sigma must be >= anomaly.candidate_sigma")
	}
	if cfg.Anomaly.CriticalSigma < cfg.Anomaly.OverrideSigma {
		return errors.New("anomaly.critical_sigma must be >= anomaly.override_sigma")
	}
	return nil
}

type Manager struct {
	path    string
	cfg     atomic.Value
	modTime time.Time
}

func NewManager(path string) (*Manager, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	m := &Manager{path: path}
	m.cfg.Store(cfg)
	info, err := os.Stat(path)
	if err == nil {
		m.modTime = info.ModTime()
	}
	return m, nil
}

func NewManagerWithDefaults() *Manager {
	m := &Manager{}
	m.cfg.Store(DefaultConfig())
	return m
}

func (m *Manager) Get() *Config {
	if v := m.cfg.Load(); v != nil {
		return v.(*Config)
	}
	return DefaultConfig()
}

func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) Reload() (*Config, error) {
	cfg, err := Load(m.path)
	if err != nil {
		return nil, err
	}
	m.cfg.Store(cfg)
	if info, err := os.Stat(m.path); err == nil {
		m.modTime = info.ModTime()
	}
	return cfg, nil
}

func (m *Manager) NeedsReload() (bool, error) {
	info, err := os.Stat(m.path)
	if err != nil {
		return false, err
	}
	return info.ModTime().After(m.modTime), nil
}

func (m *Manager) Watch(interval time.Duration, onReload func(*Config), onError func(error), stop <-chan struct{}) {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			needs, err := m.NeedsReload()
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if !needs {
				continue
			}
			cfg, err := m.Reload()
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if onReload != nil {
				onReload(cfg)
			}
		case <-stop:
			return
		}
	}
}

func ResolvePath(path string) string {
	if path == "" {
		return path
	}
	if filepath.IsAbs(path) {
		return path
	}
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	return filepath.Join(cwd, path)
}

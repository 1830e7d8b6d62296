package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Kafka report publishing (feature-flagged; disabled without brokers).
	KafkaBrokers     []string
	KafkaReportTopic string
	KafkaEnabled     bool

	// Analysis defaults.
	CellSizeM      float64
	RainMaxMM      float64
	RainAlpha      float64
	RiskClassifier string // "fixed" or "adaptive"

	// Road overlay and routing thresholds.
	SafeNodeThreshold  float64
	RemoveThreshold    float64
	PenaltyFactor      float64
	RoadGraphCacheSize int

	// Road network download.
	RoadFetchRadiusM float64
	OverpassTimeout  time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	cellSize, err := parseFloat("CELL_SIZE_M", 250)
	if err != nil {
		return nil, err
	}
	rainMax, err := parseFloat("RAIN_MAX_MM", 150)
	if err != nil {
		return nil, err
	}
	rainAlpha, err := parseFloat("RAIN_ALPHA", 1.2)
	if err != nil {
		return nil, err
	}
	safeThreshold, err := parseFloat("SAFE_NODE_THRESHOLD", 0.3)
	if err != nil {
		return nil, err
	}
	removeThreshold, err := parseFloat("ROAD_REMOVE_THRESHOLD", 0.66)
	if err != nil {
		return nil, err
	}
	penaltyFactor, err := parseFloat("ROAD_PENALTY_FACTOR", 10)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseInt("ROAD_GRAPH_CACHE_SIZE", 16)
	if err != nil {
		return nil, err
	}

	fetchRadius, err := parseFloat("ROAD_FETCH_RADIUS_M", 5000)
	if err != nil {
		return nil, err
	}
	overpassTimeout, err := parseDuration("OVERPASS_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaBrokers:     brokers,
		KafkaReportTopic: envOrDefault("KAFKA_REPORT_TOPIC", "flood-situation-reports"),
		KafkaEnabled:     kafkaEnabled,

		CellSizeM:      cellSize,
		RainMaxMM:      rainMax,
		RainAlpha:      rainAlpha,
		RiskClassifier: envOrDefault("RISK_CLASSIFIER", "fixed"),

		SafeNodeThreshold:  safeThreshold,
		RemoveThreshold:    removeThreshold,
		PenaltyFactor:      penaltyFactor,
		RoadGraphCacheSize: cacheSize,

		RoadFetchRadiusM: fetchRadius,
		OverpassTimeout:  overpassTimeout,
	}

	if cfg.CellSizeM <= 0 {
		return nil, errors.New("CELL_SIZE_M must be positive")
	}
	if cfg.RainMaxMM <= 0 {
		return nil, errors.New("RAIN_MAX_MM must be positive")
	}
	if cfg.RiskClassifier != "fixed" && cfg.RiskClassifier != "adaptive" {
		return nil, fmt.Errorf("RISK_CLASSIFIER must be fixed or adaptive, got %q", cfg.RiskClassifier)
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseBrokers(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// maxAPIKeys is the highest numbered GEMINI_API_KEY_n slot scanned.
const maxAPIKeys = 5

type Config struct {
	GeminiAPIKeys    []string
	GeminiModel      string
	ResetIntervalHrs int

	PlannerBaseURL string
	PlannerToken   string

	CalendarBaseURL string
	CalendarToken   string

	Port    string
	DataDir string
}

func Load() (*Config, error) {
	// .env is optional — env vars may already be set (e.g. in production)
	_ = godotenv.Load()

	cfg := &Config{
		GeminiModel:     os.Getenv("GEMINI_MODEL"),
		PlannerBaseURL:  os.Getenv("PLANNER_BASE_URL"),
		PlannerToken:    os.Getenv("PLANNER_API_TOKEN"),
		CalendarBaseURL: os.Getenv("CALENDAR_BASE_URL"),
		CalendarToken:   os.Getenv("CALENDAR_API_TOKEN"),
		Port:            os.Getenv("PORT"),
		DataDir:         os.Getenv("DATA_DIR"),
	}

	// Keys live in numbered slots GEMINI_API_KEY_1..5; a gap ends the scan
	// so pool rotation order always matches the numbering.
	for i := 1; i <= maxAPIKeys; i++ {
		key := os.Getenv(fmt.Sprintf("GEMINI_API_KEY_%d", i))
		if key == "" {
			break
		}
		cfg.GeminiAPIKeys = append(cfg.GeminiAPIKeys, key)
	}
	if len(cfg.GeminiAPIKeys) == 0 {
		return nil, fmt.Errorf("no API keys configured: set at least GEMINI_API_KEY_1")
	}

	cfg.ResetIntervalHrs = parseIntEnv("KEY_RESET_INTERVAL_HOURS")
	if cfg.ResetIntervalHrs <= 0 {
		cfg.ResetIntervalHrs = 24
	}

	if cfg.GeminiModel == "" {
		cfg.GeminiModel = "gemini-2.0-flash"
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	if cfg.DataDir == "" {
		cfg.DataDir = "."
	}

	for _, req := range []struct {
		name, val string
	}{
		{"PLANNER_BASE_URL", cfg.PlannerBaseURL},
		{"PLANNER_API_TOKEN", cfg.PlannerToken},
	} {
		if req.val == "" {
			return nil, fmt.Errorf("required env var %s is not set", req.name)
		}
	}

	return cfg, nil
}

func parseIntEnv(key string) int {
	v, _ := strconv.Atoi(os.Getenv(key))
	return v
}

package config

import (
	"os"
	"strconv"
)

type Config struct {
	ListenAddr       string
	Waveshape        string
	SampleIntervalMS int
	MeterIntervalMS  int
	RunDurationSec   int // 0 means run until interrupted
	Churn            bool
	Debug            bool
}

func Load() *Config {
	return &Config{
		ListenAddr:       getEnv("LISTEN_ADDR", ":9090"),
		Waveshape:        getEnv("WAVESHAPE", "sine"),
		SampleIntervalMS: getEnvInt("SAMPLE_INTERVAL_MS", 50),
		MeterIntervalMS:  getEnvInt("METER_INTERVAL_MS", 1000),
		RunDurationSec:   getEnvInt("RUN_DURATION_SEC", 0),
		Churn:            getEnvBool("CHURN", false),
		Debug:            getEnvBool("DEBUG", false),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

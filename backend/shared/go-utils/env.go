package utils

import (
	"os"
	"strconv"
)

func GetEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func GetEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		Logger.Warnf("Invalid int for %s=%q, using %d", key, v, def)
	}
	return def
}

func GetEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		Logger.Warnf("Invalid float for %s=%q, using %v", key, v, def)
	}
	return def
}

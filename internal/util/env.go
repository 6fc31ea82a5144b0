package util

import "os"

// FirstEnv returns the first non-empty environment variable among keys, or
// fallback when all are empty.
func FirstEnv(fallback string, keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return fallback
}

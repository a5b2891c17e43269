package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/agentcomposer/agentcomposer/log"
)

// EnvFiles are tried in order by LoadEnvFile; the first one found is loaded.
var EnvFiles = []string{".env", ".env.azure"}

// LoadEnvFile loads the first of EnvFiles found in dir, overriding variables already set.
// It returns the loaded path, or "" when none exists.
func LoadEnvFile(dir string, logger log.Logger) (string, error) {
	logger = log.OrNoOp(logger)
	for _, name := range EnvFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return "", err
		}
		if err := godotenv.Overload(path); err != nil {
			return "", err
		}
		logger.Info("loaded environment from %s", path)
		return path, nil
	}
	logger.Warn("neither %s found, using the process environment", joinNames(EnvFiles))
	return "", nil
}

func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	out := names[0]
	for _, n := range names[1 : len(names)-1] {
		out += ", " + n
	}
	return out + " nor " + names[len(names)-1]
}

package config

import (
	"os"
	"strconv"
	"strings"
)

// Server captures process level configuration.
type Server struct {
	Addr        string
	DatabaseURL string // empty selects the in-memory store
	VaultRoot   string // staging area holding one directory per drive
	ArchiveRoot string // destination for manifests directories and archives
	APIKeyFile  string
	CORSHosts   []string
	// ManifestDirsOnlyThreshold caps per-directory listing detail; zero
	// keeps full file-level listings.
	ManifestDirsOnlyThreshold int
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:        envOr("DRIVEOFF_ADDR", ":8000"),
		DatabaseURL: os.Getenv("DRIVEOFF_DATABASE_URL"),
		VaultRoot:   envOr("DRIVEOFF_VAULT_ROOT", "/vault"),
		ArchiveRoot: envOr("DRIVEOFF_ARCHIVE_ROOT", "/archive"),
		APIKeyFile:  envOr("DRIVEOFF_API_KEY_FILE", "api_keys.json"),
	}
	if hosts := os.Getenv("DRIVEOFF_CORS_HOSTS"); hosts != "" {
		for _, host := range strings.Split(hosts, ",") {
			if host = strings.TrimSpace(host); host != "" {
				cfg.CORSHosts = append(cfg.CORSHosts, host)
			}
		}
	}
	if raw := os.Getenv("DRIVEOFF_MANIFEST_DIRS_ONLY_THRESHOLD"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			cfg.ManifestDirsOnlyThreshold = n
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

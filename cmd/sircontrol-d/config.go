package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultAddr          = "127.0.0.1:8110"
	defaultRunTimeout    = 30 * time.Second
	defaultWebAssetsMode = "embedded"
)

type Config struct {
	DBPath        string
	Addr          string
	RunTimeout    time.Duration
	RedisAddr     string
	TLSCertFile   string
	TLSKeyFile    string
	WebAssetsMode string
	WebDir        string
}

func LoadConfig(args []string) (Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, fmt.Errorf("failed to get cwd: %w", err)
	}

	defaultDBPath := filepath.Join(cwd, "sircontrol.db")

	dbPath := envOrDefault("SIRCONTROL_DB_PATH", defaultDBPath)
	addr := addrFromEnv(defaultAddr)
	runTimeout := defaultRunTimeout
	if timeoutEnv := os.Getenv("SIRCONTROL_RUN_TIMEOUT"); timeoutEnv != "" {
		parsed, err := time.ParseDuration(timeoutEnv)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SIRCONTROL_RUN_TIMEOUT: %w", err)
		}
		if parsed <= 0 {
			return Config{}, errors.New("SIRCONTROL_RUN_TIMEOUT must be positive")
		}
		runTimeout = parsed
	}
	redisAddr := os.Getenv("SIRCONTROL_REDIS_ADDR")
	tlsCert := os.Getenv("SIRCONTROL_TLS_CERT")
	tlsKey := os.Getenv("SIRCONTROL_TLS_KEY")
	webAssetsMode := envOrDefault("SIRCONTROL_WEB_ASSETS_MODE", defaultWebAssetsMode)
	webDir := os.Getenv("SIRCONTROL_WEB_DIR")

	flagSet := flag.NewFlagSet("sircontrol-d", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagDB := flagSet.String("db", dbPath, "path to SQLite database")
	flagAddr := flagSet.String("addr", addr, "HTTP listen address")
	flagRunTimeout := flagSet.String("run-timeout", runTimeout.String(), "per-run integration deadline")
	flagRedis := flagSet.String("redis", redisAddr, "Redis address for the run mirror (empty disables)")
	flagTLSCert := flagSet.String("tls-cert", tlsCert, "TLS certificate file")
	flagTLSKey := flagSet.String("tls-key", tlsKey, "TLS key file")
	flagWebAssets := flagSet.String("web-assets", webAssetsMode, "web assets mode: embedded|fs|off")
	flagWebDir := flagSet.String("web-dir", webDir, "web assets directory when web-assets=fs")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			flagSet.SetOutput(os.Stdout)
			flagSet.PrintDefaults()
			return Config{}, err
		}
		return Config{}, err
	}

	runTimeoutParsed, err := time.ParseDuration(*flagRunTimeout)
	if err != nil {
		return Config{}, fmt.Errorf("invalid run timeout: %w", err)
	}
	if runTimeoutParsed <= 0 {
		return Config{}, errors.New("run timeout must be positive")
	}

	mode := normalizeWebAssetsMode(*flagWebAssets)

	config := Config{
		DBPath:        resolvePath(*flagDB, cwd),
		Addr:          strings.TrimSpace(*flagAddr),
		RunTimeout:    runTimeoutParsed,
		RedisAddr:     strings.TrimSpace(*flagRedis),
		TLSCertFile:   strings.TrimSpace(*flagTLSCert),
		TLSKeyFile:    strings.TrimSpace(*flagTLSKey),
		WebAssetsMode: mode,
		WebDir:        strings.TrimSpace(*flagWebDir),
	}

	if config.Addr == "" {
		return Config{}, errors.New("addr cannot be empty")
	}

	if (config.TLSCertFile == "") != (config.TLSKeyFile == "") {
		return Config{}, errors.New("tls-cert and tls-key must be set together")
	}

	if config.WebAssetsMode == "fs" {
		if config.WebDir == "" {
			return Config{}, errors.New("web-assets=fs requires web-dir")
		}
		config.WebDir = resolvePath(config.WebDir, cwd)
	}

	if config.WebAssetsMode != "embedded" && config.WebAssetsMode != "fs" && config.WebAssetsMode != "off" {
		return Config{}, fmt.Errorf("unsupported web-assets mode: %s", config.WebAssetsMode)
	}

	return config, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func addrFromEnv(fallback string) string {
	if value := os.Getenv("SIRCONTROL_ADDR"); value != "" {
		return value
	}
	if port := os.Getenv("SIRCONTROL_PORT"); port != "" {
		return fmt.Sprintf("127.0.0.1:%s", port)
	}
	return fallback
}

func resolvePath(path string, cwd string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return trimmed
	}
	if filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Join(cwd, trimmed)
}

func normalizeWebAssetsMode(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "embedded":
		return "embedded"
	case "fs", "dir", "directory":
		return "fs"
	case "off", "disabled", "none":
		return "off"
	default:
		return strings.ToLower(strings.TrimSpace(mode))
	}
}

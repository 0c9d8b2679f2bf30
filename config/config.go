/*
config.go - Server configuration

PURPOSE:
  Collects the server settings from, in increasing precedence:
    1. built-in defaults
    2. a .env file (optional, read with godotenv)
    3. AGENCY_* environment variables
    4. command-line flags

VARIABLES:
  AGENCY_PORT          -port        HTTP port (default 8080)
  AGENCY_DB_PATH       -db          SQLite path, ":memory:" allowed (default agency.db)
  AGENCY_LOG_LEVEL     -log-level   debug | info | warn | error (default info)
  AGENCY_LOG_FORMAT                 json | console (default console)
  AGENCY_CORS_ORIGINS               comma separated origin list
  AGENCY_SEED_DEMO     -seed-demo   load the agency-demo scenario at startup
  AGENCY_AMC_SWEEP_INTERVAL         how often overdue AMC debt is posted (default 1h, 0 disables)
                       -env-file    path of the .env file (default .env)

SEE ALSO:
  - logger.go: zap logger built from LogLevel / LogFormat
  - cmd/server/main.go: The only caller of Load
*/
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "AGENCY_"

type Config struct {
	Port        int
	DBPath      string
	LogLevel    string
	LogFormat   string
	CORSOrigins []string
	SeedDemo    bool
	EnvFile     string

	AmcSweepInterval time.Duration
}

func Default() Config {
	return Config{
		Port:        8080,
		DBPath:      "agency.db",
		LogLevel:    "info",
		LogFormat:   "console",
		CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		EnvFile:     ".env",

		AmcSweepInterval: time.Hour,
	}
}

// Load builds the configuration for the given command-line arguments
// (without the program name).
func Load(args []string) (*Config, error) {
	return load(args, os.LookupEnv)
}

func load(args []string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	fset := flag.NewFlagSet("agency-server", flag.ContinueOnError)
	fset.SetOutput(io.Discard)
	port := fset.Int("port", cfg.Port, "HTTP server port")
	dbPath := fset.String("db", cfg.DBPath, "SQLite database path")
	level := fset.String("log-level", cfg.LogLevel, "log level")
	envFile := fset.String("env-file", cfg.EnvFile, "path to .env file")
	seed := fset.Bool("seed-demo", false, "load demo data at startup")
	if err := fset.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	cfg.EnvFile = *envFile

	fileEnv, err := godotenv.Read(cfg.EnvFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", cfg.EnvFile, err)
	}
	get := func(key string) (string, bool) {
		if v, ok := lookup(envPrefix + key); ok && v != "" {
			return v, true
		}
		v, ok := fileEnv[envPrefix+key]
		return v, ok && v != ""
	}

	if v, ok := get("PORT"); ok {
		p, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%sPORT: %w", envPrefix, err)
		}
		cfg.Port = p
	}
	if v, ok := get("DB_PATH"); ok {
		cfg.DBPath = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := get("LOG_FORMAT"); ok {
		cfg.LogFormat = v
	}
	if v, ok := get("CORS_ORIGINS"); ok {
		cfg.CORSOrigins = splitList(v)
	}
	if v, ok := get("SEED_DEMO"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%sSEED_DEMO: %w", envPrefix, err)
		}
		cfg.SeedDemo = b
	}
	if v, ok := get("AMC_SWEEP_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%sAMC_SWEEP_INTERVAL: %w", envPrefix, err)
		}
		cfg.AmcSweepInterval = d
	}

	// Only flags given explicitly override the environment.
	fset.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = *port
		case "db":
			cfg.DBPath = *dbPath
		case "log-level":
			cfg.LogLevel = *level
		case "seed-demo":
			cfg.SeedDemo = *seed
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.DBPath == "" {
		return errors.New("db path is required")
	}
	if c.AmcSweepInterval < 0 {
		return fmt.Errorf("invalid amc sweep interval %s", c.AmcSweepInterval)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format %q", c.LogFormat)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string { return fmt.Sprintf(":%d", c.Port) }

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

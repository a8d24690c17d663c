package config

import (
	"encoding/json"
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

// Record store drivers.
const (
	DriverPostgres  = "postgres"
	DriverFirestore = "firestore"
	DriverMemory    = "memory"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress          string
	CORSOrigins         []string
	StoreDriver         string
	DatabaseURI         string
	Firebase            FirebaseConfig
	AppID               string
	JWTSecret           string
	TokenTTL            time.Duration
	RedisAddr           string
	RedisPassword       string
	UploadDir           string
	UploadMaxBytes      int64
	S3                  S3Config
	Razorpay            RazorpayConfig
	ExtractorURL        string
	ExtractPollInterval time.Duration
	WorkerPoolSize      int
	MaxInvoicesBatch    int
	Tally               TallyConfig
	ShutdownTimeout     time.Duration
	LogLevel            string
	LogFormat           string
}

// FirebaseConfig is the JSON blob describing the Firestore connection.
type FirebaseConfig struct {
	ProjectID       string `json:"projectId"`
	CredentialsFile string `json:"credentialsFile,omitempty"`
}

// S3Config describes the optional object storage for uploaded files.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Enabled reports whether uploads go to S3 instead of the local upload dir.
func (c S3Config) Enabled() bool { return c.Bucket != "" }

// RazorpayConfig holds payment provider credentials.
type RazorpayConfig struct {
	APIURL    string
	KeyID     string
	KeySecret string
	PlanID    string
}

// TallyConfig describes the Tally ERP export target.
type TallyConfig struct {
	URL          string
	Company      string
	Ledger       string
	ContraLedger string
}

// Enabled reports whether invoices can be exported to Tally.
func (c TallyConfig) Enabled() bool { return c.URL != "" }

// ExtractionEnabled reports whether the extraction worker should run.
func (c *Config) ExtractionEnabled() bool { return c.ExtractorURL != "" }

const (
	defaultRunAddress          = ":8080"
	defaultJWTSecret           = "change-me-in-production"
	defaultTokenTTL            = 24 * time.Hour
	defaultAppID               = "default-app-id"
	defaultUploadDir           = "uploads"
	defaultUploadMaxBytes      = 20 << 20
	defaultRazorpayAPIURL      = "https://api.razorpay.com"
	defaultExtractPollInterval = 3 * time.Second
	defaultWorkerPoolSize      = 4
	defaultShutdownTimeout     = 10 * time.Second
	defaultMaxInvoicesBatch    = 16
	defaultTallyContraLedger   = "Cash"
	defaultLogLevel            = "info"
	defaultLogFormat           = "json"
	defaultEnvFile             = ".env"
)

// Load parses configuration from flags, environment variables and an optional dotenv file.
func Load() (*Config, error) {
	lookup, err := withDotEnv(os.LookupEnv)
	if err != nil {
		return nil, err
	}
	return load(os.Args[1:], lookup)
}

type envLookup func(string) (string, bool)

// withDotEnv layers values from ENV_FILE (default .env) under the real environment.
// A missing default file is not an error; a missing explicit one is.
func withDotEnv(base envLookup) (envLookup, error) {
	path, explicit := base("ENV_FILE")
	if path == "" {
		path, explicit = defaultEnvFile, false
	}

	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return base, nil
		}
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}

	return func(key string) (string, bool) {
		if v, ok := base(key); ok {
			return v, true
		}
		v, ok := values[key]
		return v, ok
	}, nil
}

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:     getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		CORSOrigins:    getList(lookup, "CORS_ORIGINS"),
		StoreDriver:    getString(lookup, "STORE_DRIVER", ""),
		DatabaseURI:    getString(lookup, "DATABASE_URI", ""),
		AppID:          getString(lookup, "APP_ID", defaultAppID),
		JWTSecret:      getString(lookup, "JWT_SECRET", defaultJWTSecret),
		TokenTTL:       getDuration(lookup, "TOKEN_TTL", defaultTokenTTL),
		RedisAddr:      getString(lookup, "REDIS_ADDR", ""),
		RedisPassword:  getString(lookup, "REDIS_PASSWORD", ""),
		UploadDir:      getString(lookup, "UPLOAD_DIR", defaultUploadDir),
		UploadMaxBytes: int64(getInt(lookup, "UPLOAD_MAX_BYTES", defaultUploadMaxBytes)),
		S3: S3Config{
			Bucket:          getString(lookup, "S3_BUCKET", ""),
			Region:          getString(lookup, "S3_REGION", "us-east-1"),
			Endpoint:        getString(lookup, "S3_ENDPOINT", ""),
			AccessKeyID:     getString(lookup, "S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getString(lookup, "S3_SECRET_ACCESS_KEY", ""),
		},
		Razorpay: RazorpayConfig{
			APIURL:    getString(lookup, "RAZORPAY_API_URL", defaultRazorpayAPIURL),
			KeyID:     getString(lookup, "RAZORPAY_KEY_ID", ""),
			KeySecret: getString(lookup, "RAZORPAY_KEY_SECRET", ""),
			PlanID:    getString(lookup, "RAZORPAY_PLAN_ID", ""),
		},
		ExtractorURL:        getString(lookup, "EXTRACTOR_URL", ""),
		ExtractPollInterval: getDuration(lookup, "EXTRACT_POLL_INTERVAL", defaultExtractPollInterval),
		WorkerPoolSize:      getInt(lookup, "WORKER_POOL_SIZE", defaultWorkerPoolSize),
		MaxInvoicesBatch:    getInt(lookup, "POLL_BATCH_SIZE", defaultMaxInvoicesBatch),
		Tally: TallyConfig{
			URL:          getString(lookup, "TALLY_URL", ""),
			Company:      getString(lookup, "TALLY_COMPANY", ""),
			Ledger:       getString(lookup, "TALLY_LEDGER", ""),
			ContraLedger: getString(lookup, "TALLY_CONTRA_LEDGER", defaultTallyContraLedger),
		},
		ShutdownTimeout: getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		LogLevel:        getString(lookup, "LOG_LEVEL", defaultLogLevel),
		LogFormat:       getString(lookup, "LOG_FORMAT", defaultLogFormat),
	}

	fs := flag.NewFlagSet("invoicedesk", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		pollIntervalStr    = cfg.ExtractPollInterval.String()
		shutdownTimeoutStr = cfg.ShutdownTimeout.String()
		firebaseJSON, _    = lookup("FIREBASE_CONFIG")
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.StoreDriver, "store", cfg.StoreDriver, "Record store driver: postgres, firestore or memory")
	fs.StringVar(&firebaseJSON, "firebase-config", firebaseJSON, "Firestore connection JSON")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", cfg.JWTSecret, "Secret for signing auth tokens")
	fs.StringVar(&cfg.UploadDir, "upload-dir", cfg.UploadDir, "Directory for uploaded files when S3 is not configured")
	fs.StringVar(&cfg.ExtractorURL, "extractor", cfg.ExtractorURL, "Invoice extraction service URL")
	fs.IntVar(&cfg.WorkerPoolSize, "worker-pool", cfg.WorkerPoolSize, "Number of concurrent extraction workers")
	fs.StringVar(&pollIntervalStr, "poll-interval", pollIntervalStr, "Interval between extraction polls")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")
	fs.IntVar(&cfg.MaxInvoicesBatch, "poll-batch", cfg.MaxInvoicesBatch, "Maximum invoices per polling batch")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: json or console")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.ExtractPollInterval, err = time.ParseDuration(pollIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid poll interval: %w", err)
	}

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if firebaseJSON != "" {
		if err := json.Unmarshal([]byte(firebaseJSON), &cfg.Firebase); err != nil {
			return nil, fmt.Errorf("invalid firebase config: %w", err)
		}
	}

	if secretFile, ok := lookup("JWT_SECRET_FILE"); ok && secretFile != "" {
		content, err := os.ReadFile(secretFile)
		if err != nil {
			return nil, fmt.Errorf("read jwt secret file: %w", err)
		}
		cfg.JWTSecret = strings.TrimSpace(string(content))
	}

	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = defaultWorkerPoolSize
	}

	if cfg.MaxInvoicesBatch <= 0 {
		cfg.MaxInvoicesBatch = defaultMaxInvoicesBatch
	}

	if cfg.ExtractPollInterval <= 0 {
		cfg.ExtractPollInterval = defaultExtractPollInterval
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}

	if cfg.UploadMaxBytes <= 0 {
		cfg.UploadMaxBytes = defaultUploadMaxBytes
	}

	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	if cfg.StoreDriver == "" {
		cfg.StoreDriver = DriverMemory
		if cfg.DatabaseURI != "" {
			cfg.StoreDriver = DriverPostgres
		}
	}

	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.DatabaseURI == "" {
			return nil, fmt.Errorf("database URI must be provided")
		}
	case DriverFirestore:
		if cfg.Firebase.ProjectID == "" {
			return nil, fmt.Errorf("firebase config must include projectId")
		}
	case DriverMemory:
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	return cfg, nil
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getList(lookup envLookup, key string) []string {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

package client

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	defaultAPIURL         = "http://localhost:8080"
	defaultAppID          = "default-app-id"
	defaultRequestTimeout = 30 * time.Second
	defaultLogLevel       = "info"
)

// Config is assembled once at start-up and passed down explicitly.
type Config struct {
	APIURL           string
	AppID            string
	InitialAuthToken string
	RequestTimeout   time.Duration
	LogLevel         string
}

type connectionJSON struct {
	APIURL string `json:"apiUrl"`
	AppID  string `json:"appId"`
}

// LoadConfig reads flags and environment variables.
func LoadConfig() (Config, error) {
	return loadConfig(os.Args[1:], os.LookupEnv)
}

func loadConfig(args []string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Config{
		APIURL:         defaultAPIURL,
		AppID:          defaultAppID,
		RequestTimeout: defaultRequestTimeout,
		LogLevel:       defaultLogLevel,
	}

	if raw, ok := lookup("INVOICEDESK_CONFIG"); ok && raw != "" {
		var blob connectionJSON
		if err := json.Unmarshal([]byte(raw), &blob); err != nil {
			return Config{}, fmt.Errorf("invalid INVOICEDESK_CONFIG: %w", err)
		}
		if blob.APIURL != "" {
			cfg.APIURL = blob.APIURL
		}
		if blob.AppID != "" {
			cfg.AppID = blob.AppID
		}
	}
	if v, ok := lookup("API_URL"); ok && v != "" {
		cfg.APIURL = v
	}
	if v, ok := lookup("APP_ID"); ok && v != "" {
		cfg.AppID = v
	}
	if v, ok := lookup("INITIAL_AUTH_TOKEN"); ok {
		cfg.InitialAuthToken = strings.TrimSpace(v)
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		cfg.LogLevel = v
	}
	timeout := cfg.RequestTimeout.String()
	if v, ok := lookup("REQUEST_TIMEOUT"); ok && v != "" {
		timeout = v
	}

	fs := flag.NewFlagSet("invoicedesk-cli", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.APIURL, "api", cfg.APIURL, "InvoiceDesk server URL")
	fs.StringVar(&cfg.InitialAuthToken, "token", cfg.InitialAuthToken, "One-time sign-in token")
	fs.StringVar(&timeout, "timeout", timeout, "Per request timeout")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("parse flags: %w", err)
	}

	d, err := time.ParseDuration(timeout)
	if err != nil {
		return Config{}, fmt.Errorf("invalid request timeout: %w", err)
	}
	if d > 0 {
		cfg.RequestTimeout = d
	}

	u, err := url.Parse(cfg.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Config{}, fmt.Errorf("invalid api url %q", cfg.APIURL)
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	return cfg, nil
}

package extractor

import (
	"testing"

	"github.com/polkiloo/invoicedesk/internal/config"
)

func TestNewClientUsesConfig(t *testing.T) {
	cfg := &config.Config{ExtractorURL: "http://example.com/extract"}
	client, err := newClient(clientParams{Config: cfg, Logger: testLogger()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client == nil {
		t.Fatal("expected client instance")
	}
}

func TestNewClientDisabled(t *testing.T) {
	client, err := newClient(clientParams{Config: &config.Config{}, Logger: testLogger()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client != nil {
		t.Fatal("expected no client when extractor url is empty")
	}
}

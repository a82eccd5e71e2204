package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"resin_tracker/internal/config"
)

func TestNormalizeAddr(t *testing.T) {
	cases := map[string]string{
		"":      "",
		"8080":  ":8080",
		":9000": ":9000",
	}
	for in, want := range cases {
		if got := normalizeAddr(in); got != want {
			t.Errorf("normalizeAddr(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewHTTPServer_AppliesConfigAndDefaults(t *testing.T) {
	srv := newHTTPServer(":0", http.NotFoundHandler(), config.HTTPConfig{WriteTimeout: 5 * time.Second})

	if srv.WriteTimeout != 5*time.Second {
		t.Errorf("write timeout = %s", srv.WriteTimeout)
	}
	if srv.ReadHeaderTimeout != defaultReadHeaderTimeout || srv.IdleTimeout != defaultIdleTimeout {
		t.Errorf("zero values should fall back to defaults: %+v", srv)
	}
	if srv.MaxHeaderBytes != maxHeaderBytes {
		t.Errorf("max header bytes = %d", srv.MaxHeaderBytes)
	}
}

func TestShutdown_BeforeRunIsNoop(t *testing.T) {
	if err := New(config.HTTPConfig{}).Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

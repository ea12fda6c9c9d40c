package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stemsplit/api/internal/config"
)

func writeTempAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "song.mp3")
	if err := os.WriteFile(path, []byte("fake mp3 bytes"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func newTestSeparator(url string) *HTTPSeparator {
	return NewHTTPSeparator(&config.EngineConfig{
		ServiceURL: url,
		Timeout:    5,
		SampleRate: 44100,
	})
}

func TestHTTPSeparatorSeparate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/separate" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		defer file.Close()
		if header.Filename != "song.mp3" {
			t.Errorf("unexpected filename %q", header.Filename)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"sample_rate": 48000,
			"stems": map[string][][]float32{
				"vocals":        {{0.1, 0.2}},
				"accompaniment": {{0.3, 0.4}},
			},
		})
	}))
	defer srv.Close()

	sep := newTestSeparator(srv.URL)
	result, err := sep.Separate(context.Background(), writeTempAudio(t))
	if err != nil {
		t.Fatalf("separate failed: %v", err)
	}

	if result.SampleRate != 48000 {
		t.Errorf("sample rate = %d, want 48000", result.SampleRate)
	}
	if len(result.Stems) != 2 {
		t.Fatalf("expected 2 stems, got %d", len(result.Stems))
	}
	vocals, ok := result.Stems["vocals"]
	if !ok || len(vocals) != 1 || vocals[0][1] != 0.2 {
		t.Errorf("vocals samples not decoded: %v", vocals)
	}
}

func TestHTTPSeparatorDefaultsSampleRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"stems": map[string][][]float32{"vocals": {{0.1}}},
		})
	}))
	defer srv.Close()

	sep := newTestSeparator(srv.URL)
	result, err := sep.Separate(context.Background(), writeTempAudio(t))
	if err != nil {
		t.Fatalf("separate failed: %v", err)
	}
	if result.SampleRate != 44100 {
		t.Errorf("sample rate = %d, want configured fallback 44100", result.SampleRate)
	}
}

func TestHTTPSeparatorServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	sep := newTestSeparator(srv.URL)
	_, err := sep.Separate(context.Background(), writeTempAudio(t))
	if err == nil {
		t.Fatal("expected error for 503 response")
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("error should carry the status code: %v", err)
	}
}

func TestHTTPSeparatorMissingFile(t *testing.T) {
	sep := newTestSeparator("http://localhost:1")
	_, err := sep.Separate(context.Background(), filepath.Join(t.TempDir(), "absent.mp3"))
	if err == nil {
		t.Fatal("expected error for missing input file")
	}
}

func TestHTTPSeparatorHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sep := newTestSeparator(srv.URL)
	if err := sep.HealthCheck(context.Background()); err != nil {
		t.Errorf("health check failed: %v", err)
	}

	down := newTestSeparator("http://127.0.0.1:1")
	if err := down.HealthCheck(context.Background()); err == nil {
		t.Error("expected health check failure for unreachable service")
	}
}

package fetch

import (
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func testPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Timeout: 5 * time.Second, Backoff: time.Millisecond}
}

func TestFetchRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("payload")) //nolint:errcheck
	}))
	defer srv.Close()

	f, err := New(testPolicy(), 4)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	body, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if string(body) != "payload" {
		t.Errorf("body = %q, want payload", body)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestFetchExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f, err := New(testPolicy(), 4)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if _, err := f.Fetch(context.Background(), srv.URL); !errors.Is(err, ErrDownloadFailed) {
		t.Fatalf("Fetch error = %v, want ErrDownloadFailed", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestFetchUsesCache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte("once")) //nolint:errcheck
	}))
	defer srv.Close()

	f, err := New(testPolicy(), 4)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := f.Fetch(context.Background(), srv.URL); err != nil {
			t.Fatalf("Fetch #%d error: %v", i, err)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (cached)", calls.Load())
	}
}

func TestFetchGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		zw := gzip.NewWriter(w)
		zw.Write([]byte("line1\nline2\n")) //nolint:errcheck
		zw.Close()                         //nolint:errcheck
	}))
	defer srv.Close()

	f, err := New(testPolicy(), 4)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	body, err := f.FetchGzip(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchGzip error: %v", err)
	}
	if string(body) != "line1\nline2\n" {
		t.Errorf("body = %q", body)
	}
}

func TestRedact(t *testing.T) {
	link := "https://download.example.com/db?edition_id=X&license_key=supersecret&suffix=zip"
	got := Redact(link)
	if got == link {
		t.Fatal("license key not redacted")
	}
	if want := "license_key=REDACTED"; !strings.Contains(got, want) {
		t.Errorf("Redact = %q, want it to contain %q", got, want)
	}
}

package scrape

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "Test Agent" {
			t.Errorf("Expected configured user agent, got: %s", r.Header.Get("User-Agent"))
		}
		w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	fetcher, err := NewFetcher("Test Agent", "", 5*time.Second)
	if err != nil {
		t.Fatalf("Expected no error creating fetcher, got: %v", err)
	}

	data, err := fetcher.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if string(data) != "<html>ok</html>" {
		t.Errorf("Expected page body, got: %s", data)
	}
}

func TestFetchFallbackOnServerError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	fetcher, err := NewFetcher("Test Agent", "", 5*time.Second)
	if err != nil {
		t.Fatalf("Expected no error creating fetcher, got: %v", err)
	}

	data, err := fetcher.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Expected fallback attempt to succeed, got: %v", err)
	}
	if string(data) != "recovered" {
		t.Errorf("Expected fallback body, got: %s", data)
	}
	if attempts != 2 {
		t.Errorf("Expected exactly 2 attempts, got: %d", attempts)
	}
}

func TestFetchBothPathsFail(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	fetcher, err := NewFetcher("Test Agent", "", 5*time.Second)
	if err != nil {
		t.Fatalf("Expected no error creating fetcher, got: %v", err)
	}

	_, err = fetcher.Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("Expected error when both paths fail")
	}
	if !errors.Is(err, ErrFetchFailed) {
		t.Errorf("Expected ErrFetchFailed, got: %v", err)
	}
	if attempts != 2 {
		t.Errorf("Expected exactly one fallback attempt (2 total), got: %d", attempts)
	}
}

func TestNewFetcherInvalidProxy(t *testing.T) {
	_, err := NewFetcher("Test Agent", "://not-a-url", 5*time.Second)
	if err == nil {
		t.Error("Expected error for invalid proxy URL")
	}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAPIClient_UploadRejectsShortPathList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"paths": ["/tmp/only-one.csv"]}`))
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL, time.Second)
	_, err := c.Upload(context.Background(), []FileHandle{csvHandle("a.csv", "1"), csvHandle("b.csv", "2")})
	if err == nil {
		t.Fatalf("expected error when the server returns fewer paths than files")
	}
}

func TestAPIClient_ErrorBodyBecomesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error": "Pipeline already running"}`))
	}))
	defer srv.Close()

	err := NewAPIClient(srv.URL, time.Second).Run(context.Background(), []string{"/tmp/a.csv"}, DefaultParamsForm().Collect())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T %v", err, err)
	}
	if apiErr.Endpoint != "/run" || apiErr.StatusCode != http.StatusConflict || err.Error() != "Pipeline already running" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}

func TestAPIClient_ErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewAPIClient(srv.URL, time.Second).Status(context.Background())
	if err == nil || err.Error() != "/status: HTTP 502" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestAPIClient_StatusDecodesOptionalError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"progress": 45, "status": "running", "log": ["a", "b"], "error": null, "results": []}`))
	}))
	defer srv.Close()

	st, err := NewAPIClient(srv.URL+"/", time.Second).Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.Progress != 45 || st.Status != StatusRunning || len(st.Log) != 2 || st.Error != "" {
		t.Fatalf("status = %+v", st)
	}
}

func TestAPIClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if _, err := NewAPIClient(url, time.Second).Results(context.Background()); err == nil {
		t.Fatalf("expected transport error")
	}
}

func TestOpenFileHandle(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(p, []byte("a,b\n1,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	h, err := OpenFileHandle(p)
	if err != nil {
		t.Fatal(err)
	}
	if h.Name != "data.csv" || h.Size != 8 {
		t.Fatalf("handle = %+v", h)
	}
	rc, err := h.Open()
	if err != nil {
		t.Fatal(err)
	}
	rc.Close()

	if _, err := OpenFileHandle(dir); err == nil {
		t.Fatalf("directory accepted as a file")
	}
	if _, err := OpenFileHandle(filepath.Join(dir, "missing.csv")); err == nil {
		t.Fatalf("missing file accepted")
	}
}

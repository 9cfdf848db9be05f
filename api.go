// api.go
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// APIError is a non-2xx reply from the pipeline server.
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s: HTTP %d", e.Endpoint, e.StatusCode)
}

// FileHandle is a file selected for upload.
type FileHandle struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// OpenFileHandle describes a local file without reading it.
func OpenFileHandle(path string) (FileHandle, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileHandle{}, err
	}
	if info.IsDir() {
		return FileHandle{}, fmt.Errorf("%s is a directory", path)
	}
	return FileHandle{
		Name: filepath.Base(path),
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// BytesFileHandle wraps in-memory content, such as a dashboard upload.
func BytesFileHandle(name string, data []byte) FileHandle {
	return FileHandle{
		Name: name,
		Size: int64(len(data)),
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

// APIClient talks to the pipeline server.
type APIClient struct {
	baseURL string
	http    *http.Client
}

func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Upload sends all files in one multipart request and returns the
// server-side paths, aligned with the order of files.
func (c *APIClient) Upload(ctx context.Context, files []FileHandle) ([]string, error) {
	// sent with a Content-Length; the server rejects chunked bodies
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := writeUploadForm(mw, files); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out struct {
		Paths []string `json:"paths"`
	}
	if err := c.do(req, "/upload", &out); err != nil {
		return nil, err
	}
	if len(out.Paths) < len(files) {
		return nil, fmt.Errorf("server stored %d of %d files", len(out.Paths), len(files))
	}
	return out.Paths, nil
}

func writeUploadForm(mw *multipart.Writer, files []FileHandle) error {
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.Name)
		if err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open %s: %w", f.Name, err)
		}
		_, err = io.Copy(part, rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("read %s: %w", f.Name, err)
		}
	}
	return mw.Close()
}

// Run submits a job over the given server-side paths.
func (c *APIClient) Run(ctx context.Context, paths []string, params PipelineParams) error {
	filesJSON, err := json.Marshal(paths)
	if err != nil {
		return err
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("files", string(filesJSON)); err != nil {
		return err
	}
	if err := mw.WriteField("params", string(paramsJSON)); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/run", &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req, "/run", nil)
}

func (c *APIClient) Status(ctx context.Context) (JobStatus, error) {
	var st JobStatus
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return st, err
	}
	err = c.do(req, "/status", &st)
	return st, err
}

func (c *APIClient) Results(ctx context.Context) (ResultsPayload, error) {
	var res ResultsPayload
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/results", nil)
	if err != nil {
		return res, err
	}
	err = c.do(req, "/results", &res)
	return res, err
}

func (c *APIClient) do(req *http.Request, endpoint string, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read body: %w", endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode}
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &e) == nil {
			apiErr.Message = e.Error
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(sanitizeNonFinite(body), out); err != nil {
		return fmt.Errorf("%s: decode response: %w", endpoint, err)
	}
	return nil
}

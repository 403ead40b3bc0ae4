// Package storage uploads product images to an object-storage HTTP endpoint,
// falling back to local disk when no endpoint is configured.
package storage

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
	"time"

	"github.com/google/uuid"

	"github.com/shubhmrj/Sellium/pkg/config"
)

// Uploader stores an image and returns its public URL
type Uploader interface {
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)
}

// New picks the uploader implementation from configuration
func New(cfg config.StorageConfig) Uploader {
	if cfg.UploadURL != "" {
		return &HTTPUploader{
			uploadURL: cfg.UploadURL,
			apiKey:    cfg.APIKey,
			folder:    cfg.Folder,
			client:    &http.Client{Timeout: 30 * time.Second},
		}
	}
	return &LocalUploader{dir: "uploads"}
}

// HTTPUploader posts multipart uploads to an object-storage endpoint and
// expects a JSON body carrying the stored object's URL.
type HTTPUploader struct {
	uploadURL string
	apiKey    string
	folder    string
	client    *http.Client
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	URL       string `json:"url"`
}

// Upload sends the file and returns the URL reported by the storage service
func (u *HTTPUploader) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("building upload form: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("copying file into form: %w", err)
	}
	if u.folder != "" {
		if err := writer.WriteField("folder", u.folder); err != nil {
			return "", fmt.Errorf("writing folder field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("closing upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.uploadURL, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if u.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+u.apiKey)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("uploading image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("storage service returned status %d", resp.StatusCode)
	}

	var parsed uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding storage response: %w", err)
	}
	if parsed.SecureURL != "" {
		return parsed.SecureURL, nil
	}
	if parsed.URL != "" {
		return parsed.URL, nil
	}
	return "", fmt.Errorf("storage response contained no url")
}

// LocalUploader writes images under a local directory, used for development
type LocalUploader struct {
	dir string
}

// Upload writes the file to disk and returns a server-relative URL
func (u *LocalUploader) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	if err := os.MkdirAll(u.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating upload directory: %w", err)
	}

	name := uuid.New().String() + filepath.Ext(filename)
	path := filepath.Join(u.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating upload file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("writing upload file: %w", err)
	}
	return "/" + u.dir + "/" + name, nil
}

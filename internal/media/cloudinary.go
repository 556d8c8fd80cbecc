// Package media uploads customer avatar images to an external media
// host and returns the public URL to persist on the customer record.
package media

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// Uploader stores an image and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, fileName string, r io.Reader) (string, error)
}

// CloudinaryConfig configures unsigned uploads to a Cloudinary account.
type CloudinaryConfig struct {
	CloudName    string
	UploadPreset string
	Timeout      time.Duration
}

// Cloudinary uploads via Cloudinary's unsigned upload endpoint.
type Cloudinary struct {
	cfg    CloudinaryConfig
	client *http.Client
}

// NewCloudinary returns an uploader for the configured account.
func NewCloudinary(cfg CloudinaryConfig) *Cloudinary {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Cloudinary{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	Error     struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload streams the file to Cloudinary and returns the secure URL.
func (c *Cloudinary) Upload(ctx context.Context, fileName string, r io.Reader) (string, error) {
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		defer pw.Close()
		if err := form.WriteField("upload_preset", c.cfg.UploadPreset); err != nil {
			pw.CloseWithError(err)
			return
		}
		part, err := form.CreateFormFile("file", fileName)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, r); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(form.Close())
	}()

	url := fmt.Sprintf("https://api.cloudinary.com/v1_1/%s/image/upload", c.cfg.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload avatar: %w", err)
	}
	defer resp.Body.Close()

	var body uploadResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if body.Error.Message != "" {
			return "", fmt.Errorf("upload rejected: %s", body.Error.Message)
		}
		return "", fmt.Errorf("upload rejected: status %d", resp.StatusCode)
	}
	if body.SecureURL == "" {
		return "", fmt.Errorf("upload response missing secure_url")
	}
	return body.SecureURL, nil
}

package imageupload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"github.com/example/storefront-sync/internal/logger"
)

// DefaultEndpoint is the imgbb upload API.
const DefaultEndpoint = "https://api.imgbb.com/1/upload"

var (
	ErrMissingAPIKey = errors.New("image host API key is not configured")
	ErrUploadFailed  = errors.New("upload failed")
)

// File is one image to upload.
type File struct {
	Name    string
	Content io.Reader
}

// Client uploads images to an imgbb-compatible host and returns their
// public URLs.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

func NewClient(endpoint, apiKey string, httpClient *http.Client) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{endpoint: endpoint, apiKey: apiKey, http: httpClient}
}

type uploadResponse struct {
	Data struct {
		URL string `json:"url"`
	} `json:"data"`
	Success bool `json:"success"`
	Error   struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload posts f as the multipart field "image" and returns data.url.
func (c *Client) Upload(ctx context.Context, f File) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", filepath.Base(f.Name))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f.Content); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", f.Name, err)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		// *url.Error carries the request URL, key included.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return "", fmt.Errorf("%w: post %s: %v", ErrUploadFailed, c.endpoint, err)
	}
	defer resp.Body.Close()

	var out uploadResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out)
	if resp.StatusCode != http.StatusOK {
		if out.Error.Message != "" {
			return "", fmt.Errorf("%w: %s", ErrUploadFailed, out.Error.Message)
		}
		return "", fmt.Errorf("%w: status %d", ErrUploadFailed, resp.StatusCode)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("%w: invalid response: %v", ErrUploadFailed, decodeErr)
	}
	if out.Data.URL == "" {
		return "", fmt.Errorf("%w: response has no url", ErrUploadFailed)
	}
	return out.Data.URL, nil
}

// UploadAll uploads files one after another, in order. It stops at the
// first failure and returns the URLs uploaded so far with the error.
func (c *Client) UploadAll(ctx context.Context, files []File) ([]string, error) {
	log := logger.Component("ImageUpload")
	urls := make([]string, 0, len(files))
	for i, f := range files {
		u, err := c.Upload(ctx, f)
		if err != nil {
			log.WithError(err).WithField("file", f.Name).Warn("upload failed")
			return urls, fmt.Errorf("image %d (%s): %w", i+1, f.Name, err)
		}
		urls = append(urls, u)
	}
	return urls, nil
}

// Package images forwards customer photos to the image service.
package images

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"go.uber.org/zap"

	"github.com/Keoroanthony/customer-gateway/internal/httputil"
)

const (
	uploadField  = "photo"
	maxReplyBody = 1 << 20
)

// Photo is a binary payload received from a client.
type Photo struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// UploadError reports any failed upload. Callers must not persist anything
// that depends on the upload.
type UploadError struct {
	Status int // zero when no response was received
	Err    error
}

func (e *UploadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upload failed with status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("upload failed: %v", e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// Client talks to the image service. Every call is attempted once.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

func NewClient(baseURL string, httpClient *http.Client, log *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		log:        log.Named("images"),
	}
}

// Upload streams p to the image service and returns the reference it
// assigned. Identical payloads may produce distinct references.
func (c *Client) Upload(ctx context.Context, p Photo) (string, error) {
	c.log.Info("Uploading photo to image service", zap.String("filename", p.Filename))

	pr, pw := io.Pipe()
	defer pr.Close()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writePhoto(mw, p))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", pr)
	if err != nil {
		pr.CloseWithError(err)
		return "", c.failed(&UploadError{Err: err})
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		pr.CloseWithError(err)
		return "", c.failed(&UploadError{Err: err})
	}
	defer resp.Body.Close()

	if !httputil.IsSuccess(resp.StatusCode) {
		return "", c.failed(&UploadError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("image service replied %q", httputil.ReadErrorBody(resp.Body)),
		})
	}

	var reply struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxReplyBody)).Decode(&reply); err != nil {
		return "", c.failed(&UploadError{Status: resp.StatusCode, Err: fmt.Errorf("decode reply: %w", err)})
	}
	if reply.URL == "" {
		return "", c.failed(&UploadError{Status: resp.StatusCode, Err: fmt.Errorf("reply carries no url")})
	}

	c.log.Info("Photo uploaded successfully", zap.String("url", reply.URL))
	return reply.URL, nil
}

// Live checks the image service's own liveness endpoint.
func (c *Client) Live(ctx context.Context) error {
	return httputil.Probe(ctx, c.httpClient, c.baseURL+"/health/live")
}

func (c *Client) failed(err *UploadError) error {
	c.log.Error("Failed to upload image", zap.Error(err))
	return err
}

func writePhoto(mw *multipart.Writer, p Photo) error {
	contentType := p.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, uploadField, p.Filename))
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, p.Body); err != nil {
		return err
	}
	return mw.Close()
}

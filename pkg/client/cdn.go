package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

// CDNService uploads files to the CDN.
type CDNService struct{ c *Client }

// Upload describes one file to send.
type Upload struct {
	FieldCode   string
	Filename    string
	ContentType string
	Reader      io.Reader
}

// UploadResult mirrors the data block of the upload response.
type UploadResult struct {
	FileURL      string `json:"fileUrl"`
	TrackerCode  string `json:"trackerCode,omitempty"`
	ExpiredOnUTC string `json:"expiredOnUtc,omitempty"`
	Temp         bool   `json:"temp,omitempty"`
}

// Upload posts the file as multipart form data. A 409 answer matches
// ErrUploadConflict; a success without fileUrl returns ErrMissingFileURL.
func (s *CDNService) Upload(ctx context.Context, session Session, upload Upload) (UploadResult, error) {
	if upload.Reader == nil {
		return UploadResult{}, errors.New("client: upload reader is required")
	}
	filename := strings.TrimSpace(upload.Filename)
	if filename == "" {
		filename = "upload"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if code := strings.TrimSpace(upload.FieldCode); code != "" {
		if err := writer.WriteField("fieldCode", code); err != nil {
			return UploadResult{}, fmt.Errorf("client: upload: write field: %w", err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	contentType := strings.TrimSpace(upload.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return UploadResult{}, fmt.Errorf("client: upload: create part: %w", err)
	}
	if _, err := io.Copy(part, upload.Reader); err != nil {
		return UploadResult{}, fmt.Errorf("client: upload: copy file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return UploadResult{}, fmt.Errorf("client: upload: close multipart: %w", err)
	}

	spec := call{
		service:     serviceCDN,
		op:          "cdn.upload",
		method:      http.MethodPost,
		url:         joinURL(s.c.cfg.CDNURL, "upload"),
		body:        &body,
		contentType: writer.FormDataContentType(),
	}
	env, err := s.c.do(ctx, session, spec)
	if err != nil {
		return UploadResult{}, err
	}

	var result UploadResult
	if err := env.DecodeData(&result); err != nil {
		return UploadResult{}, fmt.Errorf("client: upload: decode result: %w", err)
	}
	if strings.TrimSpace(result.FileURL) == "" {
		return UploadResult{}, ErrMissingFileURL
	}
	return result, nil
}

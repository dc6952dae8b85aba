// Package upload implements the two-step image and banner upload: a picked
// file is staged in memory and previewed, then confirmed to the CDN. Only a
// confirmed upload changes the bound field value.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-backoffice/pkg/client"
	"github.com/goliatone/go-backoffice/pkg/model"
	"github.com/goliatone/go-backoffice/pkg/render"
)

const (
	defaultMaxBytes = 5 << 20
	defaultTTL      = 30 * time.Minute
	defaultAccept   = "image/*"
)

var (
	// ErrNotUploadable is returned for fields that do not take uploads or are
	// read-only.
	ErrNotUploadable = errors.New("upload: field does not accept uploads")
	// ErrTooLarge is returned when a file exceeds the field's size limit.
	ErrTooLarge = errors.New("upload: file too large")
	// ErrContentType is returned when a file does not match the field's accept list.
	ErrContentType = errors.New("upload: content type not accepted")
	// ErrNotFound is returned for unknown, expired or foreign staged files.
	ErrNotFound = errors.New("upload: staged file not found")
	// ErrEmptyFile is returned for zero-byte uploads.
	ErrEmptyFile = errors.New("upload: file is empty")
)

// Uploader sends a file to the CDN. client.CDNService implements it.
type Uploader interface {
	Upload(ctx context.Context, session client.Session, upload client.Upload) (client.UploadResult, error)
}

// File is one staged upload.
type File struct {
	ID          string
	SessionID   string
	FormCode    string
	FieldCode   string
	Filename    string
	ContentType string
	Data        []byte
	StagedAt    time.Time
}

// Option configures a Stager.
type Option func(*Stager)

// WithPreviewPrefix sets the URL prefix preview links are built from.
func WithPreviewPrefix(prefix string) Option {
	return func(s *Stager) {
		s.prefix = "/" + strings.Trim(prefix, "/")
	}
}

// WithTTL sets how long an unconfirmed file is kept.
func WithTTL(ttl time.Duration) Option {
	return func(s *Stager) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithMaxBytes sets the size limit for fields without maxSizeKb.
func WithMaxBytes(limit int64) Option {
	return func(s *Stager) {
		if limit > 0 {
			s.maxBytes = limit
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Stager) {
		if logger != nil {
			s.log = logger
		}
	}
}

type slotKey struct {
	session, form, field string
}

// Stager keeps staged files per (session, form, field). At most one file is
// staged per field; staging again replaces it.
type Stager struct {
	mu       sync.Mutex
	files    map[string]*File
	slots    map[slotKey]string
	uploader Uploader
	prefix   string
	ttl      time.Duration
	maxBytes int64
	now      func() time.Time
	log      logrus.FieldLogger
}

// NewStager builds a stager confirming through uploader.
func NewStager(uploader Uploader, opts ...Option) *Stager {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	s := &Stager{
		files:    make(map[string]*File),
		slots:    make(map[slotKey]string),
		uploader: uploader,
		prefix:   "/previews",
		ttl:      defaultTTL,
		maxBytes: defaultMaxBytes,
		now:      time.Now,
		log:      logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Stage validates and keeps a picked file, returning its preview descriptor.
func (s *Stager) Stage(sessionID, formCode string, field model.Field, filename, contentType string, r io.Reader) (render.StagedUpload, error) {
	if (field.Type != model.FieldTypeImage && field.Type != model.FieldTypeBanner) || !field.IsModify {
		return render.StagedUpload{}, fmt.Errorf("%w: %q", ErrNotUploadable, field.Code)
	}
	if sessionID == "" {
		return render.StagedUpload{}, client.ErrNoSession
	}

	limit := s.maxBytes
	if field.Config.MaxSizeKB > 0 {
		limit = int64(field.Config.MaxSizeKB) << 10
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return render.StagedUpload{}, fmt.Errorf("upload: read file: %w", err)
	}
	if len(data) == 0 {
		return render.StagedUpload{}, ErrEmptyFile
	}
	if int64(len(data)) > limit {
		return render.StagedUpload{}, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, limit)
	}

	detected := http.DetectContentType(data)
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && mediaType != "application/octet-stream" {
		contentType = mediaType
	} else {
		contentType, _, _ = mime.ParseMediaType(detected)
	}
	if !Accepts(field.Config.Accept, contentType, filename) {
		return render.StagedUpload{}, fmt.Errorf("%w: %s", ErrContentType, contentType)
	}

	file := &File{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		FormCode:    formCode,
		FieldCode:   field.Code,
		Filename:    path.Base(strings.ReplaceAll(strings.TrimSpace(filename), `\`, "/")),
		ContentType: contentType,
		Data:        data,
	}
	if file.Filename == "." || file.Filename == "/" {
		file.Filename = "upload"
	}

	s.mu.Lock()
	file.StagedAt = s.now()
	key := slotKey{sessionID, formCode, field.Code}
	if previous, ok := s.slots[key]; ok {
		delete(s.files, previous)
	}
	s.files[file.ID] = file
	s.slots[key] = file.ID
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"form_code": formCode, "field": field.Code, "size": len(data)}).Debug("upload staged")
	return s.descriptor(file), nil
}

// Preview returns a staged file by id.
func (s *Stager) Preview(id string) (File, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	file, ok := s.files[id]
	if !ok || s.expired(file) {
		return File{}, false
	}
	return *file, true
}

// Staged lists the staged files of a form for rendering.
func (s *Stager) Staged(sessionID, formCode string) map[string]render.StagedUpload {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out map[string]render.StagedUpload
	for key, id := range s.slots {
		if key.session != sessionID || key.form != formCode {
			continue
		}
		file := s.files[id]
		if file == nil || s.expired(file) {
			continue
		}
		if out == nil {
			out = make(map[string]render.StagedUpload)
		}
		out[key.field] = s.descriptor(file)
	}
	return out
}

// Confirm uploads the file staged for a field and calls onSuccess with the
// returned file URL. The staged file is dropped only when both succeed; any
// failure leaves it in place for a manual retry.
func (s *Stager) Confirm(ctx context.Context, session client.Session, formCode, fieldCode string, onSuccess func(url string) error) (client.UploadResult, error) {
	if s.uploader == nil {
		return client.UploadResult{}, errors.New("upload: no uploader configured")
	}
	file, ok := s.lookup(session.ID(), formCode, fieldCode)
	if !ok {
		return client.UploadResult{}, ErrNotFound
	}

	logger := s.log.WithFields(logrus.Fields{"form_code": formCode, "field": fieldCode, "file": file.Filename})
	result, err := s.uploader.Upload(ctx, session, client.Upload{
		FieldCode:   fieldCode,
		Filename:    file.Filename,
		ContentType: file.ContentType,
		Reader:      bytes.NewReader(file.Data),
	})
	if err != nil {
		logger.WithError(err).Warn("upload failed")
		return client.UploadResult{}, err
	}
	if onSuccess != nil {
		if err := onSuccess(result.FileURL); err != nil {
			return result, fmt.Errorf("upload: apply file url: %w", err)
		}
	}
	s.Discard(session.ID(), formCode, fieldCode)
	logger.WithField("url", result.FileURL).Info("upload confirmed")
	return result, nil
}

// Discard drops the file staged for a field.
func (s *Stager) Discard(sessionID, formCode, fieldCode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := slotKey{sessionID, formCode, fieldCode}
	if id, ok := s.slots[key]; ok {
		delete(s.files, id)
		delete(s.slots, key)
	}
}

// Sweep drops expired files and returns how many were removed.
func (s *Stager) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, id := range s.slots {
		file := s.files[id]
		if file == nil || s.expired(file) {
			delete(s.files, id)
			delete(s.slots, key)
			removed++
		}
	}
	return removed
}

func (s *Stager) lookup(sessionID, formCode, fieldCode string) (File, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.slots[slotKey{sessionID, formCode, fieldCode}]
	if !ok {
		return File{}, false
	}
	file := s.files[id]
	if file == nil || s.expired(file) {
		return File{}, false
	}
	return *file, true
}

func (s *Stager) descriptor(file *File) render.StagedUpload {
	return render.StagedUpload{
		ID:         file.ID,
		Filename:   file.Filename,
		PreviewURL: s.prefix + "/" + file.ID,
		Size:       int64(len(file.Data)),
	}
}

func (s *Stager) expired(file *File) bool {
	return s.now().Sub(file.StagedAt) > s.ttl
}

// Accepts matches a content type or file name against an HTML accept list
// ("image/*", "image/png", ".jpg"). An empty list accepts images.
func Accepts(accept, contentType, filename string) bool {
	if strings.TrimSpace(accept) == "" {
		accept = defaultAccept
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	ext := strings.ToLower(path.Ext(filename))
	for _, entry := range strings.Split(accept, ",") {
		entry = strings.ToLower(strings.TrimSpace(entry))
		switch {
		case entry == "":
			continue
		case strings.HasPrefix(entry, "."):
			if ext == entry {
				return true
			}
		case strings.HasSuffix(entry, "/*"):
			if strings.HasPrefix(contentType, strings.TrimSuffix(entry, "*")) {
				return true
			}
		case entry == contentType:
			return true
		}
	}
	return false
}

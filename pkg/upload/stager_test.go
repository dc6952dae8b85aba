package upload

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-backoffice/pkg/client"
	"github.com/goliatone/go-backoffice/pkg/model"
)

const pngHeader = "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"

type fakeUploader struct {
	result client.UploadResult
	err    error
	got    client.Upload
	body   string
	calls  int
}

func (f *fakeUploader) Upload(_ context.Context, _ client.Session, upload client.Upload) (client.UploadResult, error) {
	f.calls++
	f.got = upload
	if upload.Reader != nil {
		var b strings.Builder
		buf := make([]byte, 64)
		for {
			n, err := upload.Reader.Read(buf)
			b.Write(buf[:n])
			if err != nil {
				break
			}
		}
		f.body = b.String()
	}
	return f.result, f.err
}

var (
	session    = client.Session{Token: "tok"}
	imageField = model.Field{Code: "logo", Type: model.FieldTypeImage, IsModify: true}
)

func TestStage_PreviewAndStaged(t *testing.T) {
	stager := NewStager(&fakeUploader{})
	staged, err := stager.Stage(session.ID(), "brand", imageField, `C:\pics\logo.png`, "", strings.NewReader(pngHeader))
	require.NoError(t, err)

	assert.Equal(t, "logo.png", staged.Filename)
	assert.Equal(t, "/previews/"+staged.ID, staged.PreviewURL)
	assert.EqualValues(t, len(pngHeader), staged.Size)

	file, ok := stager.Preview(staged.ID)
	require.True(t, ok)
	assert.Equal(t, "image/png", file.ContentType)

	listed := stager.Staged(session.ID(), "brand")
	assert.Equal(t, staged, listed["logo"])
	assert.Empty(t, stager.Staged("other", "brand"))
}

func TestStage_Rejections(t *testing.T) {
	stager := NewStager(&fakeUploader{})

	_, err := stager.Stage(session.ID(), "f", model.Field{Code: "x", Type: model.FieldTypeText, IsModify: true}, "a.png", "image/png", strings.NewReader(pngHeader))
	assert.ErrorIs(t, err, ErrNotUploadable)

	_, err = stager.Stage(session.ID(), "f", model.Field{Code: "logo", Type: model.FieldTypeImage}, "a.png", "image/png", strings.NewReader(pngHeader))
	assert.ErrorIs(t, err, ErrNotUploadable)

	small := imageField
	small.Config.MaxSizeKB = 1
	_, err = stager.Stage(session.ID(), "f", small, "a.png", "image/png", strings.NewReader(pngHeader+strings.Repeat("x", 2048)))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = stager.Stage(session.ID(), "f", imageField, "a.txt", "", strings.NewReader("plain text"))
	assert.ErrorIs(t, err, ErrContentType)

	_, err = stager.Stage(session.ID(), "f", imageField, "a.png", "image/png", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestStage_ReplacesPreviousFile(t *testing.T) {
	stager := NewStager(&fakeUploader{})
	first, err := stager.Stage(session.ID(), "f", imageField, "a.png", "image/png", strings.NewReader(pngHeader))
	require.NoError(t, err)
	second, err := stager.Stage(session.ID(), "f", imageField, "b.png", "image/png", strings.NewReader(pngHeader))
	require.NoError(t, err)

	_, ok := stager.Preview(first.ID)
	assert.False(t, ok)
	_, ok = stager.Preview(second.ID)
	assert.True(t, ok)
}

func TestConfirm_SuccessDropsStagedFile(t *testing.T) {
	uploader := &fakeUploader{result: client.UploadResult{FileURL: "https://cdn.example/logo.png"}}
	stager := NewStager(uploader)
	_, err := stager.Stage(session.ID(), "brand", imageField, "logo.png", "image/png", strings.NewReader(pngHeader))
	require.NoError(t, err)

	var applied string
	result, err := stager.Confirm(context.Background(), session, "brand", "logo", func(url string) error {
		applied = url
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/logo.png", result.FileURL)
	assert.Equal(t, result.FileURL, applied)
	assert.Equal(t, "logo.png", uploader.got.Filename)
	assert.Equal(t, pngHeader, uploader.body)
	assert.Empty(t, stager.Staged(session.ID(), "brand"))
}

func TestConfirm_FailureKeepsFileAndSkipsCallback(t *testing.T) {
	conflict := &client.HTTPError{Op: "cdn.upload", Status: 409}
	uploader := &fakeUploader{err: conflict}
	stager := NewStager(uploader)
	_, err := stager.Stage(session.ID(), "brand", imageField, "logo.png", "image/png", strings.NewReader(pngHeader))
	require.NoError(t, err)

	called := false
	_, err = stager.Confirm(context.Background(), session, "brand", "logo", func(string) error {
		called = true
		return nil
	})
	assert.True(t, errors.Is(err, client.ErrUploadConflict))
	assert.False(t, called)
	assert.Len(t, stager.Staged(session.ID(), "brand"), 1)
	assert.Equal(t, 1, uploader.calls, "no retry")
}

func TestConfirm_UnknownSlot(t *testing.T) {
	stager := NewStager(&fakeUploader{})
	_, err := stager.Confirm(context.Background(), session, "brand", "logo", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSweep_ExpiresFiles(t *testing.T) {
	clock := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	stager := NewStager(&fakeUploader{}, WithTTL(time.Minute))
	stager.now = func() time.Time { return clock }
	staged, err := stager.Stage(session.ID(), "f", imageField, "a.png", "image/png", strings.NewReader(pngHeader))
	require.NoError(t, err)

	clock = clock.Add(2 * time.Minute)
	_, ok := stager.Preview(staged.ID)
	assert.False(t, ok)
	assert.Equal(t, 1, stager.Sweep())
}

func TestAccepts(t *testing.T) {
	cases := []struct {
		accept, contentType, filename string
		want                          bool
	}{
		{"", "image/png", "a.png", true},
		{"", "application/pdf", "a.pdf", false},
		{"image/jpeg, .png", "image/png", "a.PNG", true},
		{"image/jpeg", "image/png", "a.png", false},
		{"application/pdf", "application/pdf", "a.pdf", true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Accepts(tc.accept, tc.contentType, tc.filename), "%+v", tc)
	}
}

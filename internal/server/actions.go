package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/goliatone/go-backoffice/pkg/client"
	"github.com/goliatone/go-backoffice/pkg/editable"
	"github.com/goliatone/go-backoffice/pkg/formstate"
	"github.com/goliatone/go-backoffice/pkg/model"
	"github.com/goliatone/go-backoffice/pkg/notify"
	"github.com/goliatone/go-backoffice/pkg/orchestrator"
	"github.com/goliatone/go-backoffice/pkg/renderers/vanilla/components"
	"github.com/goliatone/go-backoffice/pkg/upload"
	"github.com/julienschmidt/httprouter"
)

// UploadFileField is the multipart part carrying a picked file.
const UploadFileField = "file"

var (
	errPasswordRequired = fmt.Errorf("%w: password is required", notify.ErrValidation)
	errNoFile           = fmt.Errorf("%w: no file was picked", notify.ErrValidation)
)

// action is the shared shape of every per-field POST: open the form, apply
// the posted values, look up the field, run fn, record the outcome and
// redirect back.
func (s *Server) action(name string, fn func(r *http.Request, form *orchestrator.Form, field model.Field, ps httprouter.Params) (notify.Notice, error)) sessionHandle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		form, ok := s.openPosted(w, r, ps)
		if !ok {
			return
		}
		session := sessionOf(r)
		field, ok := form.Definition.Field(ps.ByName("field"))
		if !ok {
			http.Error(w, fmt.Sprintf("unknown field %q", ps.ByName("field")), http.StatusNotFound)
			return
		}

		notice, err := fn(r, form, field, ps)
		s.metrics.Action(name, err)
		if err != nil {
			notice = s.noticeFor(r, name, field, err)
		}
		if notice.Message != "" {
			s.flash.Push(session.ID(), notice)
		}
		s.redirect(w, r, form.Code())
	}
}

func (s *Server) toggleField(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s.action("toggle", func(r *http.Request, form *orchestrator.Form, field model.Field, _ httprouter.Params) (notify.Notice, error) {
		_, err := s.editable.Toggle(sessionOf(r).ID(), form.Code(), field)
		return notify.Notice{}, err
	})(w, r, ps)
}

func (s *Server) unlockField(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s.action("unlock", func(r *http.Request, form *orchestrator.Form, field model.Field, _ httprouter.Params) (notify.Notice, error) {
		password := r.PostForm.Get(components.PasswordKey)
		if password == "" {
			return notify.Notice{}, errPasswordRequired
		}
		if err := s.editable.Unlock(r.Context(), sessionOf(r), form.Code(), field, password); err != nil {
			return notify.Notice{}, err
		}
		return notify.Info(field.DisplayLabel() + " unlocked"), nil
	})(w, r, ps)
}

// setValue writes a single posted "value" to a field the session may edit.
func (s *Server) setValue(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s.action("set_value", func(r *http.Request, form *orchestrator.Form, field model.Field, _ httprouter.Params) (notify.Notice, error) {
		if field.Type.IsArray() || !s.editable.Editable(sessionOf(r).ID(), form.Code(), field) {
			return notify.Notice{}, fmt.Errorf("%w: %q", editable.ErrNotModifiable, field.Code)
		}
		value := any(r.PostForm.Get("value"))
		switch field.Type {
		case model.FieldTypeCheckbox:
			value = components.Bool(r.PostForm.Get("value"))
		case model.FieldTypeCheckboxGroup:
			value = append([]string{}, r.PostForm["value"]...)
		}
		return notify.Notice{}, form.State.Set(field.Code, value)
	})(w, r, ps)
}

func (s *Server) appendRow(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s.action("append_row", func(r *http.Request, form *orchestrator.Form, field model.Field, _ httprouter.Params) (notify.Notice, error) {
		binding, err := s.writableTable(r, form, field)
		if err != nil {
			return notify.Notice{}, err
		}
		binding.Append()
		return notify.Notice{}, nil
	})(w, r, ps)
}

// setCells writes posted column values (keyed by column code) to one row.
func (s *Server) setCells(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s.action("set_cells", func(r *http.Request, form *orchestrator.Form, field model.Field, ps httprouter.Params) (notify.Notice, error) {
		binding, err := s.writableTable(r, form, field)
		if err != nil {
			return notify.Notice{}, err
		}
		index, err := formstate.RowIndex(ps.ByName("index"))
		if err != nil {
			return notify.Notice{}, err
		}
		edit := &tableEdit{field: field, binding: binding, rows: binding.Rows()}
		for key, values := range r.PostForm {
			column, ok := edit.column(key)
			if !ok || len(values) == 0 {
				continue
			}
			var value any = values[0]
			if column.Type == model.FieldTypeCheckbox {
				value = components.Bool(values[0])
			}
			if err := binding.SetCell(index, key, value); err != nil {
				return notify.Notice{}, err
			}
		}
		return notify.Notice{}, nil
	})(w, r, ps)
}

func (s *Server) deleteRow(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s.action("delete_row", func(r *http.Request, form *orchestrator.Form, field model.Field, ps httprouter.Params) (notify.Notice, error) {
		binding, err := s.writableTable(r, form, field)
		if err != nil {
			return notify.Notice{}, err
		}
		index, err := formstate.RowIndex(ps.ByName("index"))
		if err != nil {
			return notify.Notice{}, err
		}
		return notify.Notice{}, binding.SoftDelete(index)
	})(w, r, ps)
}

func (s *Server) applyTable(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s.action("apply_table", func(r *http.Request, form *orchestrator.Form, field model.Field, _ httprouter.Params) (notify.Notice, error) {
		binding, err := s.writableTable(r, form, field)
		if err != nil {
			return notify.Notice{}, err
		}
		if err := binding.Apply(); err != nil {
			return notify.Notice{}, err
		}
		return notify.Info(field.DisplayLabel() + " updated, save to keep the changes"), nil
	})(w, r, ps)
}

func (s *Server) stageUpload(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s.action("stage_upload", func(r *http.Request, form *orchestrator.Form, field model.Field, _ httprouter.Params) (notify.Notice, error) {
		file, header, err := r.FormFile(UploadFileField)
		if err != nil {
			return notify.Notice{}, errNoFile
		}
		defer file.Close()
		_, err = s.uploads.Stage(sessionOf(r).ID(), form.Code(), field, header.Filename, header.Header.Get("Content-Type"), file)
		return notify.Notice{}, err
	})(w, r, ps)
}

// confirmUpload sends the staged file to the CDN and binds the returned URL:
// an image field takes it as its value, a banner field gets a new entry.
func (s *Server) confirmUpload(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s.action("confirm_upload", func(r *http.Request, form *orchestrator.Form, field model.Field, _ httprouter.Params) (notify.Notice, error) {
		if !field.IsModify {
			return notify.Notice{}, fmt.Errorf("%w: %q", upload.ErrNotUploadable, field.Code)
		}
		_, err := s.uploads.Confirm(r.Context(), sessionOf(r), form.Code(), field.Code, func(url string) error {
			return bindUpload(form, field, url)
		})
		if err != nil {
			return notify.Notice{}, err
		}
		return notify.Success(field.DisplayLabel() + " uploaded"), nil
	})(w, r, ps)
}

func bindUpload(form *orchestrator.Form, field model.Field, url string) error {
	switch field.Type {
	case model.FieldTypeImage:
		return form.State.Set(field.Code, url)
	case model.FieldTypeBanner:
		binding, err := form.State.Array(field.Code)
		if err != nil {
			return err
		}
		index := binding.Append()
		if err := binding.SetCell(index, components.BannerFileURL, url); err != nil {
			return err
		}
		return binding.Apply()
	}
	return fmt.Errorf("%w: %q", upload.ErrNotUploadable, field.Code)
}

func (s *Server) writableTable(r *http.Request, form *orchestrator.Form, field model.Field) (*formstate.ArrayField, error) {
	if !s.editable.Editable(sessionOf(r).ID(), form.Code(), field) {
		return nil, fmt.Errorf("%w: %q", editable.ErrNotModifiable, field.Code)
	}
	return form.State.Array(field.Code)
}

// noticeFor maps action failures the generic taxonomy does not know.
func (s *Server) noticeFor(r *http.Request, action string, field model.Field, err error) notify.Notice {
	label := field.DisplayLabel()
	logger := s.requestLog(r).WithField("field", field.Code)
	switch {
	case errors.Is(err, editable.ErrNotModifiable):
		return notify.Warning(label + " cannot be edited")
	case errors.Is(err, editable.ErrNotSensitive):
		return notify.Info(label + " does not need to be unlocked")
	case errors.Is(err, editable.ErrTooManyAttempts):
		logger.WithField("action", action).Warn("unlock attempts exhausted")
		return notify.Warning("Too many password attempts, please wait before trying again")
	case errors.Is(err, formstate.ErrRowOutOfRange):
		return notify.Warning("That row no longer exists")
	case errors.Is(err, formstate.ErrNotArrayField):
		return notify.Warning(label + " is not a table")
	case errors.Is(err, upload.ErrNotUploadable):
		return notify.Warning(label + " does not accept uploads")
	case errors.Is(err, upload.ErrTooLarge):
		return notify.Warning("The file is too large for " + label)
	case errors.Is(err, upload.ErrContentType):
		return notify.Warning("This file type is not accepted for " + label)
	case errors.Is(err, upload.ErrEmptyFile):
		return notify.Warning("The picked file is empty")
	case errors.Is(err, upload.ErrNotFound):
		return notify.Warning("Pick a file for " + label + " first")
	case errors.Is(err, client.ErrInvalidPassword):
		logger.WithField("action", action).Info("password rejected")
		return notify.Error("Password verification failed")
	case errors.Is(err, errPasswordRequired):
		return notify.Warning("Enter your password to unlock " + label)
	case errors.Is(err, errNoFile):
		return notify.Warning("Pick a file to upload")
	}
	return notify.FromError(logger, action, err)
}

package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/goliatone/go-backoffice/pkg/client"
	"github.com/goliatone/go-backoffice/pkg/notify"
	"github.com/goliatone/go-backoffice/pkg/orchestrator"
	"github.com/goliatone/go-backoffice/pkg/pages"
	"github.com/goliatone/go-backoffice/pkg/render"
	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
)

const htmlContentType = "text/html; charset=utf-8"

// showForm renders the session's open form. ?reload=1 refetches the
// definition and data, discarding unsaved edits.
func (s *Server) showForm(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	session := sessionOf(r)
	code := ps.ByName("code")

	var (
		form *orchestrator.Form
		err  error
	)
	if r.URL.Query().Get("reload") == "1" {
		s.editable.Reset(session.ID(), code)
		form, err = s.forms.Load(r.Context(), session, code)
	} else {
		form, err = s.forms.Open(r.Context(), session, code)
	}
	if err != nil {
		s.fail(w, r, "open form", err)
		return
	}

	output, err := s.forms.Render(r.Context(), orchestrator.RenderRequest{
		Session: session,
		Form:    form,
		Options: render.RenderOptions{
			Notices: s.flash.Drain(session.ID()),
			Errors:  s.feedback.take(session.ID(), code),
		},
	})
	if err != nil {
		s.fail(w, r, "render form", err)
		return
	}
	writeHTML(w, output)
}

// submitForm applies the posted values and runs the submit workflow.
func (s *Server) submitForm(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	form, ok := s.openPosted(w, r, ps)
	if !ok {
		return
	}
	session := sessionOf(r)
	code := form.Code()

	_, err := s.forms.Submit(r.Context(), session, form)
	s.metrics.Action("submit", ignoreNothing(err))

	var (
		invalid  *orchestrator.ValidationError
		rejected *orchestrator.SubmitError
	)
	switch {
	case err == nil:
		s.editable.Reset(session.ID(), code)
		s.flash.Push(session.ID(), notify.Success("Changes saved"))
	case errors.Is(err, orchestrator.ErrNothingToSubmit):
		s.flash.Push(session.ID(), notify.Info("There are no changes to save"))
	case errors.As(err, &invalid):
		s.feedback.put(session.ID(), code, invalid.Fields)
		s.flash.Push(session.ID(), notify.FromError(s.requestLog(r), "submit", err))
	case errors.As(err, &rejected):
		s.feedback.put(session.ID(), code, rejected.Mapping.Errors())
		s.flash.Push(session.ID(), notify.FromError(s.requestLog(r), "submit", err))
	default:
		s.flash.Push(session.ID(), notify.FromError(s.requestLog(r), "submit", err))
	}
	s.redirect(w, r, code)
}

func (s *Server) page(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	session := sessionOf(r)
	output, err := s.shell.Render(r.Context(), session, ps.ByName("page"), ps.ByName("tab"), pages.Request{
		Notices: s.flash.Drain(session.ID()),
		Form:    render.RenderOptions{Errors: s.feedback.take(session.ID(), "")},
	})
	if err != nil {
		s.fail(w, r, "render page", err)
		return
	}
	writeHTML(w, output)
}

// preview serves a staged upload to the session that staged it.
func (s *Server) preview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	file, ok := s.uploads.Preview(ps.ByName("id"))
	if !ok || file.SessionID != sessionOf(r).ID() {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	_, _ = w.Write(file.Data)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.lookups.Handler().ServeHTTP(w, r)
}

// openPosted opens the form named in the path and applies the posted
// values. It answers the request itself when it returns false.
func (s *Server) openPosted(w http.ResponseWriter, r *http.Request, ps httprouter.Params) (*orchestrator.Form, bool) {
	if err := parseForm(r); err != nil {
		http.Error(w, "malformed form body", http.StatusBadRequest)
		return nil, false
	}
	form, err := s.forms.Open(r.Context(), sessionOf(r), ps.ByName("code"))
	if err != nil {
		s.fail(w, r, "open form", err)
		return nil, false
	}
	if err := s.applyPosted(r, form); err != nil {
		s.requestLog(r).WithError(err).Warn("posted values partially applied")
	}
	return form, true
}

// redirect answers a POST with 303 to the posted return path, or to the
// form page when none was posted or it is not a local page path.
func (s *Server) redirect(w http.ResponseWriter, r *http.Request, formCode string) {
	target := "/forms/" + url.PathEscape(formCode)
	if back := safeReturn(r.PostForm.Get(pages.ReturnField)); back != "" {
		target = back
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func safeReturn(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.Contains(raw, "//") || strings.Contains(raw, `\`) {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.IsAbs() || parsed.Host != "" {
		return ""
	}
	if !strings.HasPrefix(parsed.Path, "/pages/") && !strings.HasPrefix(parsed.Path, "/forms/") {
		return ""
	}
	return parsed.RequestURI()
}

// fail answers a GET (or a POST that could not open its form) with a plain
// status page.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, action string, err error) {
	status := statusFor(err)
	logger := s.requestLog(r).WithError(err).WithField("action", action)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed")
	} else {
		logger.Info("request rejected")
	}
	message := http.StatusText(status)
	if status == http.StatusBadGateway {
		message = notify.FromError(nil, action, err).Message
	}
	http.Error(w, message, status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, orchestrator.ErrDefinitionNotFound),
		errors.Is(err, pages.ErrPageNotFound),
		errors.Is(err, pages.ErrTabNotFound),
		errors.Is(err, pages.ErrStaticPage):
		return http.StatusNotFound
	case errors.Is(err, client.ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, client.ErrNetwork):
		return http.StatusBadGateway
	}
	var httpErr *client.HTTPError
	if errors.As(err, &httpErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) requestLog(r *http.Request) logrus.FieldLogger {
	return s.log.WithFields(logrus.Fields{
		"request_id": r.Header.Get("X-Request-ID"),
		"path":       r.URL.Path,
	})
}

func writeHTML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", htmlContentType)
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(body)
}

func ignoreNothing(err error) error {
	if errors.Is(err, orchestrator.ErrNothingToSubmit) {
		return nil
	}
	return err
}

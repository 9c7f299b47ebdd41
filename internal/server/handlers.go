package server

import (
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/genera/compass/internal/chart"
	"github.com/genera/compass/internal/model"
	"github.com/genera/compass/internal/pipeline"
	"github.com/genera/compass/internal/score"
	"github.com/genera/compass/internal/session"
)

const (
	outcomeScored   = "scored"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
)

// Form field names
const (
	fieldSession    = "session_id"
	fieldItemPrefix = "item_"
)

const (
	msgIncomplete    = "Please complete all items before submitting."
	msgExpired       = "Your session expired. Please start again."
	msgInvalidAnswer = "One of the answers is not valid. Please check the highlighted items."
)

var templateFuncs = template.FuncMap{
	"fmt2": func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
}

type formItem struct {
	Number   int
	ID       string
	Text     string
	Values   []int
	Selected int
	Missing  bool
}

type formPage struct {
	SessionID  string
	Catalog    string
	Scale      model.Scale
	Items      []formItem
	Profile    model.Profile
	Genders    []string
	Ages       []string
	Educations []string
	Roles      []string
	Answered   int
	Total      int
	Error      string
}

type resultPage struct {
	Report    *model.Report
	SVG       template.HTML
	Direction string
}

// handleForm starts a session and renders its items in presentation order
func (s *Server) handleForm(c *gin.Context) {
	sess := s.newSession()
	s.renderForm(c, http.StatusOK, sess, false, "")
}

// handleSubmit records the posted answers and renders the result page.
// An incomplete form is shown again with the answers kept.
func (s *Server) handleSubmit(c *gin.Context) {
	start := time.Now()

	sess, err := s.store.Get(c.PostForm(fieldSession))
	if err != nil {
		s.metrics.ObserveSubmission(outcomeRejected, 0)
		s.renderForm(c, http.StatusGone, s.newSession(), false, msgExpired)
		return
	}

	if err := sess.SetProfile(profileFromForm(c)); err != nil {
		s.renderForm(c, http.StatusConflict, s.newSession(), false, msgExpired)
		return
	}

	invalid := false
	for _, item := range sess.Items() {
		raw := strings.TrimSpace(c.PostForm(fieldItemPrefix + item.ID))
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err == nil {
			err = sess.Answer(item.ID, v)
		}
		if err != nil {
			invalid = true
		}
	}

	if answered, total := sess.Progress(); invalid || answered < total {
		s.metrics.ObserveSubmission(outcomeRejected, 0)
		msg := msgIncomplete
		if invalid {
			msg = msgInvalidAnswer
		}
		s.renderForm(c, http.StatusUnprocessableEntity, sess, true, msg)
		return
	}

	responses, profile, err := sess.Submit()
	if err != nil {
		s.metrics.ObserveSubmission(outcomeRejected, 0)
		s.renderForm(c, http.StatusConflict, s.newSession(), false, msgExpired)
		return
	}
	s.store.Delete(sess.ID())

	report, err := s.pipeline.Assess(c.Request.Context(), pipeline.Submission{
		SessionID: sess.ID(),
		Catalog:   sess.Catalog().Name(),
		Profile:   profile,
		Responses: responses,
	})
	if err != nil {
		s.metrics.ObserveSubmission(outcomeFailed, 0)
		s.logger.Error("assessment failed", "session_id", sess.ID(), "error", err)
		c.String(http.StatusInternalServerError, "assessment failed")
		return
	}
	s.observeReport(report, time.Since(start))

	page := resultPage{
		Report: report,
		SVG:    template.HTML(chart.RenderSVG(report.Chart)), //nolint:gosec // generated from numeric chart data
	}
	if n := report.Chart.Needle; n != nil {
		page.Direction = chart.Direction(n.Bearing)
	}
	c.Status(http.StatusOK)
	s.render(c, "result.html", page)
}

func (s *Server) handleCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, s.pipeline.Catalog().Definition())
}

// SessionResponse is the body of POST /api/sessions
type SessionResponse struct {
	SessionID string       `json:"session_id"`
	Catalog   string       `json:"catalog"`
	Scale     model.Scale  `json:"scale"`
	Items     []model.Item `json:"items"` // Presentation order
	ExpiresIn string       `json:"expires_in"`
}

func (s *Server) handleCreateSession(c *gin.Context) {
	sess := s.newSession()
	c.JSON(http.StatusCreated, SessionResponse{
		SessionID: sess.ID(),
		Catalog:   sess.Catalog().Name(),
		Scale:     sess.Catalog().Scale(),
		Items:     sess.Items(),
		ExpiresIn: s.store.TTL().String(),
	})
}

// ErrorResponse is the body of a failed API call
type ErrorResponse struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
	Unknown []string `json:"unknown,omitempty"`
}

// handleScore scores a JSON submission. Validation failures are 422.
func (s *Server) handleScore(c *gin.Context) {
	start := time.Now()

	var sub pipeline.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		s.metrics.ObserveSubmission(outcomeRejected, 0)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid JSON: " + err.Error()})
		return
	}
	report, err := s.pipeline.Assess(c.Request.Context(), sub)
	if err != nil {
		if errors.Is(err, model.ErrValidation) {
			s.metrics.ObserveSubmission(outcomeRejected, 0)
			c.JSON(http.StatusUnprocessableEntity, validationResponse(err))
			return
		}
		s.metrics.ObserveSubmission(outcomeFailed, 0)
		s.logger.Error("assessment failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "assessment failed"})
		return
	}

	// A session handed out by /api/sessions ends with its first scored submission
	if sub.SessionID != "" {
		s.store.Delete(sub.SessionID)
	}

	s.observeReport(report, time.Since(start))
	c.JSON(http.StatusOK, report)
}

func validationResponse(err error) ErrorResponse {
	resp := ErrorResponse{Error: err.Error()}

	var incomplete *score.IncompleteResponseError
	if errors.As(err, &incomplete) {
		resp.Missing = incomplete.Missing
	}
	var unknown *score.UnknownItemError
	if errors.As(err, &unknown) {
		resp.Unknown = unknown.Unknown
	}
	return resp
}

func (s *Server) newSession() *session.Session {
	sess := session.NewRandom(s.pipeline.Catalog())
	s.store.Put(sess)
	s.metrics.SessionStarted()
	s.logger.Debug("session started", "session_id", sess.ID(), "seed", sess.Seed())
	return sess
}

func (s *Server) observeReport(report *model.Report, elapsed time.Duration) {
	s.metrics.ObserveSubmission(outcomeScored, elapsed)
	s.metrics.ObserveClassification(string(report.Result.Classification.Dominant))
	if report.Export.Backend != model.ExportNone {
		s.metrics.ObserveExport(report.Export.Backend, report.Export.Exported)
	}
}

func (s *Server) renderForm(c *gin.Context, status int, sess *session.Session, markMissing bool, msg string) {
	scale := sess.Catalog().Scale()
	answers := sess.Responses()
	answered, total := sess.Progress()

	page := formPage{
		SessionID:  sess.ID(),
		Catalog:    sess.Catalog().Name(),
		Scale:      scale,
		Profile:    sess.Profile(),
		Genders:    model.GenderOptions,
		Ages:       model.AgeBracketOptions,
		Educations: model.EducationOptions,
		Roles:      model.RoleOptions,
		Answered:   answered,
		Total:      total,
		Error:      msg,
	}
	for i, item := range sess.Items() {
		v, ok := answers[item.ID]
		page.Items = append(page.Items, formItem{
			Number:   i + 1,
			ID:       item.ID,
			Text:     item.Text,
			Values:   scale.Values(),
			Selected: v,
			Missing:  markMissing && !ok,
		})
	}

	c.Status(status)
	s.render(c, "form.html", page)
}

func (s *Server) render(c *gin.Context, name string, data any) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(c.Writer, name, data); err != nil {
		s.logger.Error("render template", "template", name, "error", err)
	}
}

func profileFromForm(c *gin.Context) model.Profile {
	return model.Profile{
		Nickname:         strings.TrimSpace(c.PostForm("nickname")),
		Gender:           c.PostForm("gender"),
		AgeBracket:       c.PostForm("age_bracket"),
		EducationLevel:   c.PostForm("education_level"),
		ProfessionalRole: c.PostForm("professional_role"),
	}
}

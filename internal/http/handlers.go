package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"finman/internal/core"
	applog "finman/internal/log"
	"finman/internal/services"
	"finman/internal/storage"
)

// readyTimeout bounds the store round trip of the readiness probe.
const readyTimeout = 3 * time.Second

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks that the store answers a full read.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	checks := map[string]string{"store": "ok"}
	status := http.StatusOK
	if _, err := s.svc.Snapshot(ctx); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed",
			applog.FieldError, err)
		checks["store"] = "unavailable"
		status = http.StatusServiceUnavailable
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not ready"
	}
	NewResponse().Status(status).JSON(map[string]any{
		"status": state,
		"checks": checks,
	}).Write(w)
}

// handleIndex renders the whole page: form, table and chart. The added and
// deleted query flags come from the post/redirect/get flow.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Snapshot(r.Context())
	if err != nil {
		s.logError(r, "Failed to load expenses", err, applog.OpList)
		view := s.newPageView(services.Snapshot{}, defaultForm())
		view.Error = "Could not load expenses. Please try again."
		s.render(w, r, http.StatusInternalServerError, view)
		return
	}

	view := s.newPageView(snap, defaultForm())
	view.Confirm = s.confirmFor(snap, r.URL.Query().Get("confirm"))
	switch {
	case r.URL.Query().Has("added"):
		view.Notice = "Expense added."
	case r.URL.Query().Has("deleted"):
		view.Notice = "Expense deleted."
	}
	s.render(w, r, http.StatusOK, view)
}

// handleCreateExpense accepts the add form. JSON bodies are answered the
// way the API does.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		s.handleAPICreateExpense(w, r)
		return
	}

	parser := NewRequestBodyParser(w, r)
	if err := parser.Parse(); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Parse form error",
			applog.FieldError, err,
			applog.FieldOperation, applog.OpParse)
		if parser.TooLarge() {
			ErrorResponse(http.StatusRequestEntityTooLarge, "The submitted form is too large.", false).Write(w)
			return
		}
		BadRequestError("Invalid request format", false).Write(w)
		return
	}

	in, err := parser.ExpenseInput()
	if err == nil {
		var id int64
		_, id, err = s.svc.AddExpense(r.Context(), in)
		// A non-zero id is a stored record; the page load reports any
		// reload failure instead of asking the user to submit again.
		if id != 0 {
			if err != nil {
				s.logError(r, "Expense stored but reload failed", err, applog.OpCreate)
			}
			s.logCreated(r, in, id)
			NewResponse().Redirect("/?added=" + strconv.FormatInt(id, 10)).Write(w)
			return
		}
	}

	status := http.StatusInternalServerError
	message := "Could not save the expense. Please try again."
	if isValidationError(err) {
		status = http.StatusUnprocessableEntity
		message = validationMessage(err)
		s.logValidation(r, err)
	} else {
		s.logError(r, "Failed to add expense", err, applog.OpCreate)
	}

	// Re-render with the user's input so nothing typed is lost.
	snap, loadErr := s.svc.Snapshot(r.Context())
	if loadErr != nil {
		snap = services.Snapshot{}
	}
	view := s.newPageView(snap, formFromInput(in))
	view.Error = message
	s.render(w, r, status, view)
}

// handleDeleteExpense is the target of the confirmation form.
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		BadRequestError(err.Error(), false).Write(w)
		return
	}

	_, err = s.svc.DeleteExpense(r.Context(), id)
	if errors.Is(err, services.ErrReload) {
		s.logError(r, "Expense deleted but reload failed", err, applog.OpDelete)
		err = nil
	}
	if err != nil {
		s.logError(r, "Failed to delete expense", err, applog.OpDelete)
		view := s.newPageView(services.Snapshot{}, defaultForm())
		if snap, loadErr := s.svc.Snapshot(r.Context()); loadErr == nil {
			view = s.newPageView(snap, defaultForm())
		}
		view.Error = "Could not delete the expense. Please try again."
		s.render(w, r, http.StatusInternalServerError, view)
		return
	}

	applog.FromContext(r.Context()).WithComponent(applog.ComponentExpense).InfoContext(r.Context(), "Expense deleted",
		applog.FieldExpenseID, id,
		applog.FieldOperation, applog.OpDelete)
	NewResponse().Redirect("/?deleted=" + strconv.FormatInt(id, 10)).Write(w)
}

func (s *Server) handleAPIListExpenses(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Snapshot(r.Context())
	if err != nil {
		s.logError(r, "Failed to load expenses", err, applog.OpList)
		InternalServerError("could not load expenses", true).Write(w)
		return
	}
	NewResponse().JSON(s.snapshotJSON(snap)).Write(w)
}

func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Snapshot(r.Context())
	if err != nil {
		s.logError(r, "Failed to load summary", err, applog.OpSummary)
		InternalServerError("could not load summary", true).Write(w)
		return
	}
	NewResponse().JSON(s.summaryJSON(snap.Summary)).Write(w)
}

func (s *Server) handleAPICategories(w http.ResponseWriter, r *http.Request) {
	cats := core.Categories()
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.String())
	}
	NewResponse().JSON(map[string]any{"categories": names}).Write(w)
}

func (s *Server) handleAPICreateExpense(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(w, r)
	if err := parser.Parse(); err != nil {
		if parser.TooLarge() {
			ErrorResponse(http.StatusRequestEntityTooLarge, "request body too large", true).Write(w)
			return
		}
		BadRequestError("invalid request body", true).Write(w)
		return
	}

	in, err := parser.ExpenseInput()
	if err != nil {
		s.writeAPIError(w, r, err, applog.OpCreate)
		return
	}

	snap, id, err := s.svc.AddExpense(r.Context(), in)
	if id == 0 {
		s.writeAPIError(w, r, err, applog.OpCreate)
		return
	}

	body := createdJSON{ID: id, snapshotJSON: s.snapshotJSON(snap)}
	if err != nil {
		s.logError(r, "Expense stored but reload failed", err, applog.OpCreate)
		body.ReloadError = true
	}

	s.logCreated(r, in, id)
	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/expenses/"+strconv.FormatInt(id, 10)).
		JSON(body).
		Write(w)
}

func (s *Server) handleAPIDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		BadRequestError(err.Error(), true).Write(w)
		return
	}

	snap, err := s.svc.DeleteExpense(r.Context(), id)
	body := s.snapshotJSON(snap)
	switch {
	case errors.Is(err, services.ErrReload):
		s.logError(r, "Expense deleted but reload failed", err, applog.OpDelete)
		body.ReloadError = true
	case err != nil:
		s.writeAPIError(w, r, err, applog.OpDelete)
		return
	}
	NewResponse().JSON(body).Write(w)
}

// writeAPIError maps service errors to status codes: 422 for bad input,
// 503 when the store cannot be opened, 500 otherwise.
func (s *Server) writeAPIError(w http.ResponseWriter, r *http.Request, err error, op string) {
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		s.logValidation(r, err)
		ValidationErrorResponse(verr.Field, validationMessage(err)).Write(w)
		return
	}

	s.logError(r, "Expense request failed", err, op)
	if storage.IsUnavailable(err) {
		ErrorResponse(http.StatusServiceUnavailable, "store unavailable", true).Write(w)
		return
	}
	InternalServerError("internal error", true).Write(w)
}

// render executes the page into a buffer first so a template failure never
// leaves a half-written response.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, view pageView) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", view); err != nil {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentTemplate).ErrorContext(r.Context(), "Template execution failed",
			applog.FieldError, err,
			applog.FieldOperation, applog.OpRender)
		InternalServerError("Something went wrong rendering the page.", false).Write(w)
		return
	}
	NewResponse().Status(status).BodyHTML(buf.String()).Write(w)
}

func (s *Server) logCreated(r *http.Request, in services.ExpenseInput, id int64) {
	ne, err := services.Validate(in)
	if err != nil {
		return
	}
	s.logger.LogExpenseCreated(r.Context(), id, ne)
}

func (s *Server) logValidation(r *http.Request, err error) {
	field := ""
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		field = verr.Field
	}
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Expense rejected",
		applog.FieldError, err,
		applog.FieldErrorType, applog.ErrorTypeValidation,
		applog.FieldField, field,
		applog.FieldOperation, applog.OpValidate)
}

func (s *Server) logError(r *http.Request, msg string, err error, op string) {
	errorType := applog.ErrorTypeInternal
	if storage.KindOf(err) != 0 {
		errorType = applog.ErrorTypeDatabase
	}
	s.logger.LogError(r.Context(), msg, err, errorType, op, applog.NewFields().WithRequestID(requestID(r)))
}

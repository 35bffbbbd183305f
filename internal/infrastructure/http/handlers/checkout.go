package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/yuzvak/checkout-service/internal/application/commands"
	"github.com/yuzvak/checkout-service/internal/application/use_cases"
	"github.com/yuzvak/checkout-service/internal/domain/checkout"
	"github.com/yuzvak/checkout-service/internal/domain/money"
	"github.com/yuzvak/checkout-service/internal/infrastructure/http/response"
	"github.com/yuzvak/checkout-service/internal/pkg/logger"
)

const maxBodyBytes = 16 << 10

type CheckoutHandler struct {
	sessions  *use_cases.CheckoutSessionUseCase
	open      *commands.OpenSessionHandler
	submit    *commands.SubmitHandler
	formatter *money.Formatter
	log       *logger.Logger
}

func NewCheckoutHandler(sessions *use_cases.CheckoutSessionUseCase, formatter *money.Formatter, log *logger.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		sessions:  sessions,
		open:      commands.NewOpenSessionHandler(sessions, log),
		submit:    commands.NewSubmitHandler(sessions, log),
		formatter: formatter,
		log:       log,
	}
}

type OpenSessionRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type FieldUpdateRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type PaymentTypeRequest struct {
	PaymentType string `json:"payment_type"`
}

type StepRequest struct {
	Step int `json:"step"`
}

// decodeBody accepts an empty body when allowEmpty is set.
func decodeBody(r *http.Request, dst interface{}, allowEmpty bool) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	err := decoder.Decode(dst)
	if errors.Is(err, io.EOF) && allowEmpty {
		return nil
	}
	return err
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireOwner rejects requests on /sessions/{id} whose X-User-ID did not open the session.
func (h *CheckoutHandler) RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h.sessions.Authorize(chi.URLParam(r, "id"), r.Header.Get("X-User-ID")); err != nil {
			response.WriteDomainError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *CheckoutHandler) writeSession(w http.ResponseWriter, status int, view *use_cases.SessionView) {
	response.WriteJSON(w, status, response.Success(newSessionResponse(view, h.formatter)))
}

func (h *CheckoutHandler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
	if userID == "" {
		response.WriteValidationError(w, "Validation failed", map[string]string{"X-User-ID": "user id header is required"})
		return
	}

	var req OpenSessionRequest
	if err := decodeBody(r, &req, true); err != nil {
		response.WriteValidationError(w, "Invalid request body", map[string]string{"body": err.Error()})
		return
	}

	view, err := h.open.Handle(r.Context(), commands.OpenSessionCommand{
		UserID:       userID,
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		AccessToken:  bearerToken(r),
		RefreshToken: r.Header.Get("X-Refresh-Token"),
	})
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	h.writeSession(w, http.StatusCreated, view)
}

func (h *CheckoutHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	h.writeSession(w, http.StatusOK, view)
}

func (h *CheckoutHandler) HandleUpdateForm(w http.ResponseWriter, r *http.Request) {
	h.handleFieldUpdate(w, r, h.sessions.UpdateForm)
}

func (h *CheckoutHandler) HandleUpdateCard(w http.ResponseWriter, r *http.Request) {
	h.handleFieldUpdate(w, r, h.sessions.UpdateCard)
}

func (h *CheckoutHandler) handleFieldUpdate(w http.ResponseWriter, r *http.Request, update func(id, field, value string) (*use_cases.SessionView, error)) {
	var req FieldUpdateRequest
	if err := decodeBody(r, &req, false); err != nil {
		response.WriteValidationError(w, "Invalid request body", map[string]string{"body": err.Error()})
		return
	}
	if req.Field == "" {
		response.WriteValidationError(w, "Validation failed", map[string]string{"field": "field is required"})
		return
	}

	view, err := update(chi.URLParam(r, "id"), req.Field, req.Value)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	h.writeSession(w, http.StatusOK, view)
}

func (h *CheckoutHandler) HandleSetPaymentType(w http.ResponseWriter, r *http.Request) {
	var req PaymentTypeRequest
	if err := decodeBody(r, &req, false); err != nil {
		response.WriteValidationError(w, "Invalid request body", map[string]string{"body": err.Error()})
		return
	}

	view, err := h.sessions.SetPaymentType(chi.URLParam(r, "id"), req.PaymentType)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	h.writeSession(w, http.StatusOK, view)
}

func (h *CheckoutHandler) HandleGoToStep(w http.ResponseWriter, r *http.Request) {
	var req StepRequest
	if err := decodeBody(r, &req, false); err != nil {
		response.WriteValidationError(w, "Invalid request body", map[string]string{"body": err.Error()})
		return
	}

	moved, view, err := h.sessions.GoToStep(chi.URLParam(r, "id"), checkout.Step(req.Step))
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteSuccess(w, StepResponse{
		Moved: moved,
		State: newSessionResponse(view, h.formatter),
	})
}

func (h *CheckoutHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	view, err := h.submit.Handle(r.Context(), commands.SubmitCommand{SessionID: chi.URLParam(r, "id")})
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	h.writeSession(w, http.StatusOK, view)
}

func (h *CheckoutHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.Reset(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	h.writeSession(w, http.StatusOK, view)
}

func (h *CheckoutHandler) HandleClearError(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.ClearError(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	h.writeSession(w, http.StatusOK, view)
}

func (h *CheckoutHandler) HandleClose(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.sessions.Close(id); err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteSuccess(w, map[string]string{"id": id}, "Checkout session closed")
}

func (h *CheckoutHandler) HandleAttempts(w http.ResponseWriter, r *http.Request) {
	attempts, err := h.sessions.Attempts(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.log.Error("Failed to list checkout attempts", "session_id", chi.URLParam(r, "id"), "error", err)
		response.WriteDomainError(w, err)
		return
	}
	if attempts == nil {
		attempts = []checkout.Attempt{}
	}
	response.WriteSuccess(w, attempts)
}

// HandleTransactionStatus polls the backend after an intent redirect returns.
// The session_id query parameter selects whose credentials are used.
func (h *CheckoutHandler) HandleTransactionStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		response.WriteValidationError(w, "Validation failed", map[string]string{"session_id": "session_id is required"})
		return
	}

	if err := h.sessions.Authorize(sessionID, r.Header.Get("X-User-ID")); err != nil {
		response.WriteDomainError(w, err)
		return
	}

	report, err := h.sessions.TransactionStatus(r.Context(), sessionID, chi.URLParam(r, "id"))
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteSuccess(w, report)
}

func (h *CheckoutHandler) HandleWompiStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		response.WriteValidationError(w, "Validation failed", map[string]string{"session_id": "session_id is required"})
		return
	}

	if err := h.sessions.Authorize(sessionID, r.Header.Get("X-User-ID")); err != nil {
		response.WriteDomainError(w, err)
		return
	}

	report, err := h.sessions.WompiTransactionStatus(r.Context(), sessionID, chi.URLParam(r, "id"))
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteSuccess(w, report)
}

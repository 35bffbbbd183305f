package commands

import (
	"context"

	"github.com/yuzvak/checkout-service/internal/application/use_cases"
	"github.com/yuzvak/checkout-service/internal/pkg/logger"
)

type SubmitCommand struct {
	SessionID string
}

type SubmitHandler struct {
	sessions *use_cases.CheckoutSessionUseCase
	log      *logger.Logger
}

func NewSubmitHandler(sessions *use_cases.CheckoutSessionUseCase, log *logger.Logger) *SubmitHandler {
	return &SubmitHandler{
		sessions: sessions,
		log:      log,
	}
}

func (h *SubmitHandler) Handle(ctx context.Context, cmd SubmitCommand) (*use_cases.SessionView, error) {
	h.log.Info("Processing checkout submission", "session_id", cmd.SessionID)

	view, err := h.sessions.Submit(ctx, cmd.SessionID)
	if err != nil {
		h.log.Error("Checkout submission rejected", "session_id", cmd.SessionID, "error", err.Error())
		return nil, err
	}

	h.log.Info("Checkout submission settled",
		"session_id", cmd.SessionID,
		"step", view.State.CurrentStep.String(),
		"status", string(view.State.TransactionStatus),
		"has_error", view.State.Error != "",
	)
	return view, nil
}

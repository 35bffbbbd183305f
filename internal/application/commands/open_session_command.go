package commands

import (
	"context"

	"github.com/yuzvak/checkout-service/internal/application/use_cases"
	"github.com/yuzvak/checkout-service/internal/domain/checkout"
	"github.com/yuzvak/checkout-service/internal/pkg/logger"
)

type OpenSessionCommand struct {
	UserID       string
	Email        string
	FirstName    string
	LastName     string
	AccessToken  string
	RefreshToken string
}

type OpenSessionHandler struct {
	sessions *use_cases.CheckoutSessionUseCase
	log      *logger.Logger
}

func NewOpenSessionHandler(sessions *use_cases.CheckoutSessionUseCase, log *logger.Logger) *OpenSessionHandler {
	return &OpenSessionHandler{
		sessions: sessions,
		log:      log,
	}
}

func (h *OpenSessionHandler) Handle(ctx context.Context, cmd OpenSessionCommand) (*use_cases.SessionView, error) {
	var profile *checkout.Profile
	if cmd.Email != "" || cmd.FirstName != "" || cmd.LastName != "" {
		profile = &checkout.Profile{
			Email:     cmd.Email,
			FirstName: cmd.FirstName,
			LastName:  cmd.LastName,
		}
	}

	view, err := h.sessions.Open(ctx, use_cases.OpenCommand{
		UserID:       cmd.UserID,
		Profile:      profile,
		AccessToken:  cmd.AccessToken,
		RefreshToken: cmd.RefreshToken,
	})
	if err != nil {
		h.log.Warn("Failed to open checkout session", "user_id", cmd.UserID, "error", err.Error())
		return nil, err
	}
	return view, nil
}

package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/authgate/internal/domain"
)

const verificationSendTimeout = 10 * time.Second

type verificationIssuer interface {
	GenerateEmailVerification(userID int64, email string) (string, error)
}

type verificationMailer interface {
	SendVerification(ctx context.Context, to, token string) error
}

// verificationSender mails a link bound to the user's current address. It is
// best effort: the account change stands either way.
type verificationSender struct {
	tokens verificationIssuer
	mailer verificationMailer
	logger *slog.Logger
}

func (s verificationSender) send(ctx context.Context, user *domain.User) {
	if s.mailer == nil || s.tokens == nil {
		return
	}

	tok, err := s.tokens.GenerateEmailVerification(user.ID, user.Email)
	if err != nil {
		s.logger.ErrorContext(ctx, "generate verification token", "user_id", user.ID, "error", err)
		return
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), verificationSendTimeout)
	defer cancel()
	if err := s.mailer.SendVerification(sendCtx, user.Email, tok); err != nil {
		s.logger.WarnContext(ctx, "send verification email", "user_id", user.ID, "error", err)
	}
}

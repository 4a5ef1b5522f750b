package email

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"
)

const (
	verificationSubject  = "Confirm your email address"
	verificationCategory = "email_verification"
)

// VerificationMailer emails the link a new user follows to confirm their
// address.
type VerificationMailer struct {
	sender  Sender
	baseURL string
}

func NewVerificationMailer(sender Sender, baseURL string) *VerificationMailer {
	return &VerificationMailer{sender: sender, baseURL: strings.TrimRight(baseURL, "/")}
}

func (m *VerificationMailer) SendVerification(ctx context.Context, to, token string) error {
	link := m.Link(token)
	return m.sender.Send(ctx, Message{
		To:      to,
		Subject: verificationSubject,
		HTML: fmt.Sprintf(
			`<p>Confirm your email address by opening the link below. It expires in 48 hours.</p><p><a href="%s">%s</a></p>`,
			html.EscapeString(link), html.EscapeString(link),
		),
		Text:     "Confirm your email address by opening this link (expires in 48 hours):\n\n" + link + "\n",
		Category: verificationCategory,
	})
}

// Link builds the GET /auth/verify-email URL for token.
func (m *VerificationMailer) Link(token string) string {
	return m.baseURL + "/auth/verify-email?token=" + url.QueryEscape(token)
}

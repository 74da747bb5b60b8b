package mail

import "context"

// VerificationMailer renders the verification email and hands it to a
// Sender.
type VerificationMailer struct {
	sender          Sender
	frontendBaseURL string
}

func NewVerificationMailer(sender Sender, frontendBaseURL string) *VerificationMailer {
	return &VerificationMailer{sender: sender, frontendBaseURL: frontendBaseURL}
}

// SendVerification emails the verification link for token to email.
func (m *VerificationMailer) SendVerification(ctx context.Context, email, username, token string) error {
	html, text, err := RenderVerification(username, VerificationURL(m.frontendBaseURL, token))
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, Message{
		To:      email,
		Subject: VerificationSubject,
		HTML:    html,
		Text:    text,
	})
}

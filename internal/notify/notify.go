// Package notify delivers account verification messages.
package notify

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Notifier sends the verification link for a freshly created account.
type Notifier interface {
	SendVerification(ctx context.Context, email, token string) error
}

// Message is a rendered verification message.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Composer renders verification messages pointing at the public verify endpoint.
type Composer struct {
	// VerifyURL is the absolute URL of the verify endpoint, e.g. http://localhost:8080/api/users/verify.
	VerifyURL string
}

// Link returns VerifyURL with the token query parameter set.
func (c Composer) Link(token string) (string, error) {
	u, err := url.Parse(c.VerifyURL)
	if err != nil {
		return "", fmt.Errorf("verify url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Verification renders the message for email.
func (c Composer) Verification(email, token string) (Message, error) {
	link, err := c.Link(token)
	if err != nil {
		return Message{}, err
	}
	var b strings.Builder
	b.WriteString("가입을 완료하려면 다음 링크를 클릭하세요: ")
	b.WriteString(link)
	b.WriteString("\r\n\r\nTo finish signing up, open the link above.\r\n")
	return Message{To: email, Subject: "이메일 인증 / Verify your email", Body: b.String()}, nil
}

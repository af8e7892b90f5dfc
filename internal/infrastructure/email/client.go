// Package email provides the email client for sending transactional emails.
package email

import (
	"fmt"
	"os"

	"github.com/resendlabs/resend-go"

	"github.com/compass-coaching/compass-go/internal/infrastructure/email/templates"
)

// Service defines the interface for sending emails, allowing for mock implementations in tests.
type Service interface {
	SendVerificationEmail(toEmail, name, verificationURL string) error
	SendPasswordResetEmail(toEmail, name, resetURL string) error
}

// ResendClient is the concrete implementation of the email Service using the Resend API.
type ResendClient struct {
	client    *resend.Client
	fromEmail string
	fromName  string
}

// NewService creates a new email service client, returning the Service interface.
func NewService() (Service, error) {
	apiKey := os.Getenv("RESEND_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("RESEND_API_KEY environment variable is required")
	}

	fromEmail := os.Getenv("EMAIL_FROM")
	if fromEmail == "" {
		fromEmail = "noreply@compass-coaching.app"
	}

	fromName := os.Getenv("EMAIL_FROM_NAME")
	if fromName == "" {
		fromName = "Compass"
	}

	return &ResendClient{
		client:    resend.NewClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}, nil
}

// SendVerificationEmail composes and sends the address verification email.
func (c *ResendClient) SendVerificationEmail(toEmail, name, verificationURL string) error {
	content := templates.GetVerificationEmailContent(templates.VerificationEmailProps{
		Name:            name,
		VerificationURL: verificationURL,
		ExpirationHours: 48,
	})

	htmlContent := templates.GetEmailLayout(templates.EmailLayoutProps{
		Preheader: "Confirm your email address to start using Compass",
		Content:   content,
	})

	return c.send(toEmail, "Verify your Compass email address", htmlContent)
}

// SendPasswordResetEmail composes and sends the password reset email.
func (c *ResendClient) SendPasswordResetEmail(toEmail, name, resetURL string) error {
	content := templates.GetPasswordResetEmailContent(templates.PasswordResetEmailProps{
		Name:            name,
		ResetURL:        resetURL,
		ExpirationHours: 24,
	})

	htmlContent := templates.GetEmailLayout(templates.EmailLayoutProps{
		Preheader: "Reset your Compass password",
		Content:   content,
	})

	return c.send(toEmail, "Reset your Compass password", htmlContent)
}

func (c *ResendClient) send(toEmail, subject, htmlContent string) error {
	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", c.fromName, c.fromEmail),
		To:      []string{toEmail},
		Subject: subject,
		Html:    htmlContent,
	}

	_, err := c.client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email via Resend: %w", err)
	}
	return nil
}

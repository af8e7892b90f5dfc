package email

import "log"

type nopService struct{}

// NopService returns a Service that logs instead of sending. Used in local
// development when no Resend API key is configured.
func NopService() Service {
	return nopService{}
}

func (nopService) SendVerificationEmail(toEmail, name, verificationURL string) error {
	log.Printf("email disabled: verification mail for %s would link to %s", toEmail, verificationURL)
	return nil
}

func (nopService) SendPasswordResetEmail(toEmail, name, resetURL string) error {
	log.Printf("email disabled: password reset mail for %s would link to %s", toEmail, resetURL)
	return nil
}

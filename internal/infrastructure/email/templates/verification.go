package templates

import (
	"bytes"
	"html/template"
	"log"
)

// VerificationEmailProps carries the values for the address verification email.
type VerificationEmailProps struct {
	Name            string
	VerificationURL string
	ExpirationHours int
}

var verificationEmailTemplate = template.Must(template.New("verificationEmail").Parse(`
<p style="margin: 0 0 16px;">Hi {{.Name}},</p>
<p style="margin: 0 0 16px;">Welcome to Compass. Please confirm your email address so you can sign in:</p>
<table role="presentation" border="0" cellpadding="0" cellspacing="0" style="border-collapse: separate; width: auto; margin: 0 0 16px;">
  <tr>
    <td style="border-radius: 4px; background-color: #0867ec; text-align: center;" align="center" bgcolor="#0867ec">
      <a href="{{.VerificationURL}}" target="_blank" style="border: solid 2px #0867ec; border-radius: 4px; box-sizing: border-box; cursor: pointer; display: inline-block; font-size: 16px; font-weight: bold; margin: 0; padding: 12px 24px; text-decoration: none; background-color: #0867ec; border-color: #0867ec; color: #ffffff;">Verify email address</a>
    </td>
  </tr>
</table>
<p style="margin: 0 0 16px;">This link expires in {{.ExpirationHours}} hours. If you did not create a Compass account, you can ignore this email.</p>`))

// GetVerificationEmailContent renders the verification email body.
func GetVerificationEmailContent(props VerificationEmailProps) string {
	if props.Name == "" {
		props.Name = "there"
	}
	var buf bytes.Buffer
	if err := verificationEmailTemplate.Execute(&buf, props); err != nil {
		log.Printf("ERROR: failed to execute verification email template: %v", err)
		return ""
	}
	return buf.String()
}

// PasswordResetEmailProps carries the values for the password reset email.
type PasswordResetEmailProps struct {
	Name            string
	ResetURL        string
	ExpirationHours int
}

var passwordResetEmailTemplate = template.Must(template.New("passwordResetEmail").Parse(`
<p style="margin: 0 0 16px;">Hi {{.Name}},</p>
<p style="margin: 0 0 16px;">We received a request to reset your Compass password. Click below to choose a new one:</p>
<table role="presentation" border="0" cellpadding="0" cellspacing="0" style="border-collapse: separate; width: auto; margin: 0 0 16px;">
  <tr>
    <td style="border-radius: 4px; background-color: #0867ec; text-align: center;" align="center" bgcolor="#0867ec">
      <a href="{{.ResetURL}}" target="_blank" style="border: solid 2px #0867ec; border-radius: 4px; box-sizing: border-box; cursor: pointer; display: inline-block; font-size: 16px; font-weight: bold; margin: 0; padding: 12px 24px; text-decoration: none; background-color: #0867ec; border-color: #0867ec; color: #ffffff;">Reset password</a>
    </td>
  </tr>
</table>
<p style="margin: 0 0 16px;">This link expires in {{.ExpirationHours}} hours. If you did not request a reset, your password is unchanged and you can ignore this email.</p>`))

// GetPasswordResetEmailContent renders the password reset email body.
func GetPasswordResetEmailContent(props PasswordResetEmailProps) string {
	if props.Name == "" {
		props.Name = "there"
	}
	var buf bytes.Buffer
	if err := passwordResetEmailTemplate.Execute(&buf, props); err != nil {
		log.Printf("ERROR: failed to execute password reset email template: %v", err)
		return ""
	}
	return buf.String()
}

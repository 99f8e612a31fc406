package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"mime"
	"net"
	"net/smtp"
)

// Mailer sends the verification email for one recipient. The rest of the
// application only depends on this interface, so the SMTP transport can be
// swapped out in tests or replaced by a provider API later.
type Mailer interface {
	SendVerificationEmail(to, firstname, lastname, verificationLink string) error
}

// Config holds SMTP connection details.
type Config struct {
	Addr     string // host:port of the SMTP server
	From     string
	Username string
	Password string
}

// SMTPMailer delivers mail through a plain SMTP server.
type SMTPMailer struct {
	addr string
	from string
	auth smtp.Auth
}

// NewSMTPMailer creates a new SMTPMailer. Authentication is only used when a
// username is configured.
func NewSMTPMailer(cfg Config) (*SMTPMailer, error) {
	host, _, err := net.SplitHostPort(cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP address %q: %w", cfg.Addr, err)
	}

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, host)
	}

	return &SMTPMailer{
		addr: cfg.Addr,
		from: cfg.From,
		auth: auth,
	}, nil
}

var verificationTemplate = template.Must(template.New("verification").Parse(`<!DOCTYPE html>
<html lang="fr">
  <body style="font-family: Arial, sans-serif; background-color: #f4f4f4; margin: 0; padding: 20px;">
    <div style="max-width: 480px; margin: 0 auto; background-color: #ffffff; border-radius: 8px; padding: 30px;">
      <h1 style="color: #4CAF50; text-align: center;">Bienvenue {{.Firstname}} {{.Lastname}} !</h1>
      <p style="color: #555555; text-align: center;">
        Merci pour votre inscription ! Pour finaliser votre inscription, veuillez
        vérifier votre adresse email en cliquant sur le bouton ci-dessous.
      </p>
      <p style="text-align: center;">
        <a href="{{.Link}}" style="display: inline-block; padding: 15px 25px; background-color: #4CAF50; color: white; border-radius: 5px; text-decoration: none; font-weight: bold;">
          Vérifier mon email
        </a>
      </p>
      <p style="color: #555555; font-size: 14px; text-align: center;">
        Si vous n'arrivez pas à cliquer sur le bouton, copiez et collez ce lien
        dans votre navigateur : <a href="{{.Link}}" style="color: #4CAF50;">{{.Link}}</a>
      </p>
      <p style="color: #aaaaaa; font-size: 12px; text-align: center;">
        Si vous n'avez pas demandé cette inscription, veuillez ignorer cet email.
      </p>
    </div>
  </body>
</html>`))

// SendVerificationEmail renders the verification template and delivers it to
// a single recipient.
func (m *SMTPMailer) SendVerificationEmail(to, firstname, lastname, verificationLink string) error {
	var body bytes.Buffer
	err := verificationTemplate.Execute(&body, map[string]string{
		"Firstname": firstname,
		"Lastname":  lastname,
		"Link":      verificationLink,
	})
	if err != nil {
		return fmt.Errorf("failed to render verification email: %w", err)
	}

	subject := mime.QEncoding.Encode("utf-8", "Vérification de votre email")
	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, msg.Bytes()); err != nil {
		return fmt.Errorf("failed to send verification email to %s: %w", to, err)
	}
	return nil
}

// LogMailer writes the verification link to the log instead of sending mail.
// Used when no SMTP server is configured.
type LogMailer struct{}

// SendVerificationEmail logs the link that would have been emailed.
func (LogMailer) SendVerificationEmail(to, firstname, lastname, verificationLink string) error {
	log.Printf("SMTP not configured, verification link for %s: %s", to, verificationLink)
	return nil
}

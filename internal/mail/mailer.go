package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"alignlab/pkg/types"

	"github.com/wneessen/go-mail"
)

//go:embed templates
var templateFS embed.FS

// Mailer sends the transactional messages the workflow needs: password
// reset links and user invitations.
type Mailer struct {
	client    *mail.Client
	templates *template.Template
	from      string
	appName   string
}

func NewMailer(config *types.Config) (*Mailer, error) {
	opts := []mail.Option{
		mail.WithPort(config.SMTPPort),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(config.SMTPUsername),
		mail.WithPassword(config.SMTPPassword),
	}

	client, err := mail.NewClient(config.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}

	return &Mailer{
		client:    client,
		templates: templates,
		from:      config.SMTPFrom,
		appName:   config.AppName,
	}, nil
}

type resetData struct {
	AppName  string
	ResetURL string
}

func (m *Mailer) SendPasswordReset(ctx context.Context, to, resetURL string) error {
	subject := fmt.Sprintf("%s - Reset your password", m.appName)
	return m.send(ctx, to, subject, "reset_password.html", resetData{AppName: m.appName, ResetURL: resetURL})
}

func (m *Mailer) SendUserInvite(ctx context.Context, to, resetURL string) error {
	subject := fmt.Sprintf("%s - You have been invited", m.appName)
	return m.send(ctx, to, subject, "invite_user.html", resetData{AppName: m.appName, ResetURL: resetURL})
}

func (m *Mailer) send(ctx context.Context, to, subject, templateName string, data any) error {
	var body bytes.Buffer
	if err := m.templates.ExecuteTemplate(&body, templateName, data); err != nil {
		return fmt.Errorf("render %s: %w", templateName, err)
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, body.String())

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}

	return nil
}

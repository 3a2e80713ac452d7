package notifier

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/rs/zerolog"
	gomail "gopkg.in/mail.v2"

	"cinesorte/catalog"
	"cinesorte/config"
	"cinesorte/logging"
)

// Pick is one roulette result to announce.
type Pick struct {
	Item      catalog.Candidate
	Providers []catalog.Provider
	// Filters is a short human description of the filter set, e.g. "Ação, nota 7+".
	Filters string
	At      time.Time
}

// Sender delivers a message. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailNotifier handles sending email notifications
type EmailNotifier struct {
	sender         Sender
	senderEmail    string
	recipientEmail string
	imageBaseURL   string
	htmlTemplate   *template.Template
	log            zerolog.Logger
}

var pickTemplate = template.Must(template.New("pick").Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Cinesorte - Sorteio do dia</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #e2e8f0; background: #0f172a; max-width: 640px; margin: 0 auto; }
        h1 { color: #facc15; }
        .poster { width: 240px; border-radius: 8px; }
        .meta { color: #94a3b8; }
        .providers li { display: inline-block; margin-right: 12px; }
        .footer { font-size: 12px; color: #64748b; margin-top: 40px; text-align: center; }
    </style>
</head>
<body>
    <h1>O sorteio de hoje: {{.Item.Title}}</h1>
    <img class="poster" src="{{.Poster}}" alt="{{.Item.Title}}">
    <p class="meta">{{if .Item.Year}}{{.Item.Year}} · {{end}}Nota {{printf "%.1f" .Item.VoteAverage}}{{if .Filters}} · {{.Filters}}{{end}}</p>
    <p>{{.Item.Overview}}</p>

    {{if .Providers}}
    <h2>Onde assistir</h2>
    <ul class="providers">
        {{range .Providers}}<li>{{.Name}}</li>{{end}}
    </ul>
    {{else}}
    <p class="meta">Não encontramos este título em nenhum serviço de streaming.</p>
    {{end}}

    <div class="footer">
        <p>Sorteado em {{.Date}}. Este é um email automático do Cinesorte.</p>
    </div>
</body>
</html>
`))

// NewEmailNotifier creates a notifier that sends through SMTP.
func NewEmailNotifier(cfg config.EmailConfig, imageBaseURL string) (*EmailNotifier, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("email notifications need EMAIL_SMTP_HOST and EMAIL_RECIPIENT")
	}
	// For Mailtrap-style relays the username is "api" and the password is the token.
	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, "api", cfg.SenderPassword)
	return NewEmailNotifierWithSender(d, cfg.SenderEmail, cfg.RecipientEmail, imageBaseURL), nil
}

// NewEmailNotifierWithSender is NewEmailNotifier with an explicit transport.
func NewEmailNotifierWithSender(s Sender, from, to, imageBaseURL string) *EmailNotifier {
	return &EmailNotifier{
		sender:         s,
		senderEmail:    from,
		recipientEmail: to,
		imageBaseURL:   imageBaseURL,
		htmlTemplate:   pickTemplate,
		log:            logging.With("notifier"),
	}
}

// Render returns the plain text and HTML bodies for a pick.
func (n *EmailNotifier) Render(p Pick) (plain, html string, err error) {
	if p.At.IsZero() {
		p.At = time.Now()
	}
	names := make([]string, 0, len(p.Providers))
	for _, pr := range p.Providers {
		names = append(names, pr.Name)
	}

	data := struct {
		Pick
		Poster string
		Date   string
	}{
		Pick:   p,
		Poster: catalog.PosterURL(n.imageBaseURL, p.Item.PosterPath),
		Date:   p.At.Format("02/01/2006 15:04"),
	}

	var buf bytes.Buffer
	if err := n.htmlTemplate.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("failed to render email template: %w", err)
	}

	where := "Sem streaming disponível"
	if len(names) > 0 {
		where = "Onde assistir: " + strings.Join(names, ", ")
	}
	plain = fmt.Sprintf("O sorteio de hoje: %s (%s)\nNota %.1f\n\n%s\n\n%s\n\nSorteado em %s.",
		p.Item.Title, p.Item.Year(), p.Item.VoteAverage, p.Item.Overview, where, data.Date)
	return plain, buf.String(), nil
}

// Message builds the email for a pick without sending it.
func (n *EmailNotifier) Message(p Pick) (*gomail.Message, error) {
	plain, html, err := n.Render(p)
	if err != nil {
		return nil, err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", n.senderEmail)
	m.SetHeader("To", n.recipientEmail)
	m.SetHeader("Subject", "Cinesorte: "+p.Item.Title)
	m.SetBody("text/plain", plain)
	m.AddAlternative("text/html", html)
	return m, nil
}

// NotifyDailyPick emails the pick to the configured recipient.
func (n *EmailNotifier) NotifyDailyPick(p Pick) error {
	if n.recipientEmail == "" {
		n.log.Debug().Msg("No recipient configured, skipping notification")
		return nil
	}
	m, err := n.Message(p)
	if err != nil {
		return err
	}
	if err := n.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	n.log.Info().Str("to", n.recipientEmail).Int("id", p.Item.ID).Str("title", p.Item.Title).Msg("Daily pick email sent")
	return nil
}

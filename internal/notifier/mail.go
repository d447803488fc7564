package notifier

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"github.com/ruestzeit/anmeldung/internal/models"
	"github.com/wneessen/go-mail"
)

//go:embed templates/*.html
var templateFS embed.FS

var mailTemplates = template.Must(template.New("").Funcs(template.FuncMap{
	"date": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format("02.01.2006")
	},
}).ParseFS(templateFS, "templates/*.html"))

// Sender delivers mail messages. *mail.Client satisfies it.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// MailNotifier sends a German HTML mail to a fixed operator address.
type MailNotifier struct {
	sender Sender
	from   string
	to     string
}

func NewMailNotifier(sender Sender, from, to string) *MailNotifier {
	return &MailNotifier{sender: sender, from: from, to: to}
}

// NewSMTPSender returns a go-mail client for the given SMTP server. Credentials
// are optional.
func NewSMTPSender(host string, port int, username, password string) (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(10 * time.Second),
	}
	if username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(username),
			mail.WithPassword(password),
		)
	}
	return mail.NewClient(host, opts...)
}

type answer struct {
	Title string
	Value string
}

type mailData struct {
	Subject      string
	Status       string
	Event        models.Event
	Registration models.Registration
	Answers      []answer
}

// Message builds the notification mail for registration.
func (n *MailNotifier) Message(event models.Event, registration models.Registration) (*mail.Msg, error) {
	subject := Subject(event, registration)

	var body bytes.Buffer
	err := mailTemplates.ExecuteTemplate(&body, "registration.html", mailData{
		Subject:      subject,
		Status:       string(registration.Status),
		Event:        event,
		Registration: registration,
		Answers:      customAnswers(event, registration),
	})
	if err != nil {
		return nil, fmt.Errorf("render mail: %w", err)
	}

	m := mail.NewMsg()
	if err := m.From(n.from); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := m.To(n.to); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	m.Subject(subject)
	m.SetGenHeader("Content-Language", "de")
	m.SetBodyString(mail.TypeTextHTML, body.String())
	return m, nil
}

func (n *MailNotifier) NotifyRegistration(ctx context.Context, event models.Event, registration models.Registration) error {
	if n.sender == nil {
		return fmt.Errorf("mail sender is nil")
	}
	if n.to == "" {
		return fmt.Errorf("mail recipient is empty")
	}

	m, err := n.Message(event, registration)
	if err != nil {
		return err
	}
	if err := n.sender.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func customAnswers(event models.Event, registration models.Registration) []answer {
	var answers []answer
	for _, cf := range event.CustomFields {
		value, ok := registration.CustomFieldData[strconv.FormatUint(uint64(cf.ID), 10)]
		if !ok {
			continue
		}
		answers = append(answers, answer{Title: cf.Title, Value: formatAnswer(value)})
	}
	return answers
}

func formatAnswer(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case []string:
		return strings.Join(v, ", ")
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, p := range v {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, ", ")
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

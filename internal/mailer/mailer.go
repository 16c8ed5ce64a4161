// Package mailer sends order confirmations to the store mailbox.
package mailer

import (
	"bytes"
	"context"
	"html/template"
	"log"

	"github.com/go-faster/errors"
	"gopkg.in/gomail.v2"

	"storefront/internal/models"
)

var ErrNotConfigured = errors.New("email delivery is not configured")

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	StoreTo  string
}

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPMailer struct {
	cfg    Config
	sender sender
}

func NewSMTP(cfg Config) *SMTPMailer {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &SMTPMailer{
		cfg:    cfg,
		sender: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// OrderConfirmed mails the order to the store, with replies going to the
// customer.
func (m *SMTPMailer) OrderConfirmed(ctx context.Context, order models.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := m.message(order)
	if err != nil {
		return err
	}
	if err := m.sender.DialAndSend(msg); err != nil {
		return errors.Wrap(err, "smtp send")
	}

	log.Printf("[MAIL] [INFO] order #%s sent to store mailbox", order.Number)
	return nil
}

func (m *SMTPMailer) message(order models.Order) (*gomail.Message, error) {
	body, err := RenderOrder(order)
	if err != nil {
		return nil, err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", m.cfg.StoreTo)
	if order.Customer.Email != "" {
		msg.SetHeader("Reply-To", order.Customer.Email)
	}
	msg.SetHeader("Subject", Subject(order))
	msg.SetBody("text/html", body)
	return msg, nil
}

func Subject(order models.Order) string {
	return "New order #" + order.Number
}

// Nop stands in when SMTP credentials are missing. It logs the order and
// reports ErrNotConfigured so the order is recorded as not emailed.
type Nop struct{}

func (Nop) OrderConfirmed(_ context.Context, order models.Order) error {
	log.Printf("[MAIL] [WARN] order #%s not emailed: %v", order.Number, ErrNotConfigured)
	return ErrNotConfigured
}

var orderTemplate = template.Must(template.New("order").Parse(`<h2>New order #{{.Number}}</h2>
<h3>Customer</h3>
<p>
  <strong>Name:</strong> {{.Customer.Name}}<br>
  <strong>Email:</strong> {{.Customer.Email}}<br>
  <strong>Phone:</strong> {{.Customer.Phone}}<br>
  <strong>Address:</strong> {{.Customer.Address}}, {{.Customer.City}} {{.Customer.PostalCode}}<br>
  <strong>Payment:</strong> {{.PaymentMethod}}
</p>
{{- if .Customer.Note}}
<p><strong>Note:</strong> {{.Customer.Note}}</p>
{{- end}}
<h3>Items</h3>
<table border="1" cellpadding="6" cellspacing="0">
  <tr><th>Product</th><th>Color</th><th>Quantity</th><th>Unit price</th><th>Total</th></tr>
{{- range .Items}}
  <tr><td>{{.Name}}</td><td>{{.Color}}</td><td>{{.Quantity}}</td><td>{{printf "%.2f" .UnitPrice}}</td><td>{{printf "%.2f" .LineTotal}}</td></tr>
{{- end}}
</table>
<p><strong>Order total: {{printf "%.2f" .Total}}</strong></p>
`))

func RenderOrder(order models.Order) (string, error) {
	var buf bytes.Buffer
	if err := orderTemplate.Execute(&buf, order); err != nil {
		return "", errors.Wrap(err, "render order email")
	}
	return buf.String(), nil
}

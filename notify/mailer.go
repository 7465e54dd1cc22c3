// Package notify composes and delivers attendee reminder emails.
package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"eventmanager/models"
)

type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

// EmailSender is the outbound mail collaborator. Delivery failures are
// non-fatal to callers: a reminder that does not go out is retried by the
// next scheduled dispatch run at the earliest.
type EmailSender interface {
	Send(m Message) error
}

type SMTPSender struct {
	addr string // host:port
	from string
	auth smtp.Auth
}

func NewSMTPSender(host, port, from, username, password string) *SMTPSender {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPSender{addr: host + ":" + port, from: from, auth: auth}
}

func (s *SMTPSender) Send(m Message) error {
	var b strings.Builder
	fmt.Fprintf(&b, "From: Event Manager <%s>\r\n", s.from)
	fmt.Fprintf(&b, "To: %s\r\n", m.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", m.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(m.HTMLBody)

	return smtp.SendMail(s.addr, s.auth, s.from, []string{m.To}, []byte(b.String()))
}

// ReminderMessage builds the day-before reminder for one attendee.
func ReminderMessage(a models.Attendee, d models.EventDetails) Message {
	body := fmt.Sprintf(`
		<html>
		<body>
			<h2>Hi %s,</h2>
			<p>This is a friendly reminder that the event you purchased a ticket for is happening tomorrow!</p>
			<p><strong>Event Details:</strong></p>
			<ul>
				<li><strong>Event Name:</strong> %s</li>
				<li><strong>Date:</strong> %s</li>
				<li><strong>Time:</strong> %s</li>
				<li><strong>Location:</strong> %s</li>
			</ul>
			<p>We look forward to seeing you there!</p>
			<p>Best regards,</p>
			<p><strong>Event Manager Team</strong></p>
		</body>
		</html>`,
		a.Buyer.Username, d.Title, d.Date, d.Time, d.Location)

	return Message{
		To:       a.Buyer.Email,
		Subject:  "Reminder: Your Event is Tomorrow!",
		HTMLBody: body,
	}
}

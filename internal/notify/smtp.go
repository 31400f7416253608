package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"
)

var ErrHeaderInjection = errors.New("header value contains line break")

// SMTPConfig holds the relay settings for SMTPNotifier.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// SMTPNotifier sends messages through an SMTP relay, upgrading to TLS when
// the server offers STARTTLS.
type SMTPNotifier struct {
	cfg  SMTPConfig
	auth smtp.Auth
	now  func() time.Time
}

func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPNotifier{cfg: cfg, auth: auth, now: time.Now}
}

// Send delivers msg. A permanent rejection of the recipient is reported as
// (false, nil); transport failures before the relay accepts the data are errors.
func (n *SMTPNotifier) Send(ctx context.Context, msg Message) (bool, error) {
	body, err := buildMessage(n.cfg.From, msg, n.now())
	if err != nil {
		return false, err
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(n.cfg.Host, n.cfg.Port))
	if err != nil {
		return false, fmt.Errorf("dialing smtp relay: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, n.cfg.Host)
	if err != nil {
		conn.Close()
		return false, fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: n.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return false, fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if n.auth != nil {
		if err := c.Auth(n.auth); err != nil {
			return false, fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := c.Mail(n.cfg.From); err != nil {
		return false, fmt.Errorf("smtp mail from: %w", err)
	}
	if err := c.Rcpt(msg.To); err != nil {
		var tpErr *textproto.Error
		if errors.As(err, &tpErr) && tpErr.Code >= 500 {
			return false, nil
		}
		return false, fmt.Errorf("smtp rcpt to: %w", err)
	}

	w, err := c.Data()
	if err != nil {
		return false, fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return false, fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return false, fmt.Errorf("smtp data close: %w", err)
	}

	// The relay has accepted the message; a failed QUIT does not undo that.
	_ = c.Quit()
	return true, nil
}

// buildMessage renders an RFC 5322 message with an HTML body.
func buildMessage(from string, msg Message, now time.Time) ([]byte, error) {
	for _, v := range []string{from, msg.To, msg.Subject} {
		if strings.ContainsAny(v, "\r\n") {
			return nil, ErrHeaderInjection
		}
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return b.Bytes(), nil
}

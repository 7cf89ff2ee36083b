// Package mail sends the emails users receive.
package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Message is a plain text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, message Message) error
}

var messageTemplate = `To: {to}
From: {from}
Subject: {subject}
Content-Type: text/plain; charset=UTF-8; format=flowed
Content-Transfer-Encoding: 7bit

{body}
`

// Format renders a message with its headers, ready for SMTP DATA.
func Format(from string, message Message) string {
	replacer := strings.NewReplacer(
		"{to}", message.To,
		"{from}", from,
		"{subject}", message.Subject,
		"{body}", message.Body,
	)

	return strings.ReplaceAll(replacer.Replace(messageTemplate), "\n", "\r\n")
}

// ResetMessage builds the email with a password reset link.
func ResetMessage(to, link string) Message {
	return Message{
		To:      to,
		Subject: "Reset Password",
		Body: "To reset your password, visit the following link:\n\n" +
			link + "\n\n" +
			"If you did not make this request then simply ignore this email and no changes will be made.",
	}
}

// SMTPConfig describes an SMTP server reached over TLS.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// SMTPSender sends messages through an SMTP server over TLS.
type SMTPSender struct {
	cfg SMTPConfig
	log *zap.Logger
}

func NewSMTPSender(cfg SMTPConfig, logger *zap.Logger) *SMTPSender {
	return &SMTPSender{cfg: cfg, log: logger}
}

func (sender *SMTPSender) Send(ctx context.Context, message Message) error {
	cfg := sender.cfg
	tlsconfig := &tls.Config{ServerName: cfg.Host}
	dialer := &tls.Dialer{NetDialer: &net.Dialer{Timeout: 10 * time.Second}, Config: tlsconfig}

	netConn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(cfg.Host, cfg.Port))

	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}

	defer netConn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = netConn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(netConn, cfg.Host)

	if err != nil {
		return err
	}

	defer client.Close()

	if cfg.Username != "" {
		if err := client.Auth(smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)); err != nil {
			return err
		}
	}

	if err := client.Mail(cfg.From); err != nil {
		return err
	}

	if err := client.Rcpt(message.To); err != nil {
		return err
	}

	var writer io.WriteCloser

	if writer, err = client.Data(); err != nil {
		return err
	}

	if _, err := writer.Write([]byte(Format(cfg.From, message))); err != nil {
		return err
	}

	if err := writer.Close(); err != nil {
		return err
	}

	sender.log.Info("Sent email", zap.String("to", message.To), zap.String("subject", message.Subject))

	return client.Quit()
}

// LogSender logs messages instead of sending them.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{log: logger}
}

func (sender *LogSender) Send(_ context.Context, message Message) error {
	sender.log.Info(
		"Email not sent, SMTP is not configured",
		zap.String("to", message.To),
		zap.String("subject", message.Subject),
		zap.String("body", message.Body),
	)

	return nil
}

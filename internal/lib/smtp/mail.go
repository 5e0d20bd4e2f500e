// Package smtp отправляет письма text/plain через SMTP-сессию.
package smtp

import (
	"fmt"
	"io"
	"mime"
	"strings"
)

// Client команды SMTP-сессии, которых хватает на одно письмо.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// Mailer открывает сессию с почтовым сервером и знает адрес отправителя.
type Mailer interface {
	Connect() (Client, error)
	Sender() string
}

// Message письмо text/plain в UTF-8
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Bytes собирает заголовки и тело письма. Тема кодируется по RFC 2047.
func (m Message) Bytes() []byte {
	return []byte(strings.Join([]string{
		"From: " + m.From,
		"To: " + m.To,
		"Subject: " + mime.QEncoding.Encode("utf-8", m.Subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		m.Body,
	}, "\r\n"))
}

// Send отправляет msg в новой сессии. Пустой From заменяется адресом mailer.
func Send(mailer Mailer, msg Message) error {
	const op = "smtp.Send"
	if msg.From == "" {
		msg.From = mailer.Sender()
	}

	client, err := mailer.Connect()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = client.Close()
	}()

	if err = client.Mail(msg.From); err != nil {
		return fmt.Errorf("%s: MAIL FROM %s: %w", op, msg.From, err)
	}
	if err = client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("%s: RCPT TO %s: %w", op, msg.To, err)
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("%s: DATA: %w", op, err)
	}
	if _, err = wc.Write(msg.Bytes()); err != nil {
		_ = wc.Close()
		return fmt.Errorf("%s: write body: %w", op, err)
	}
	if err = wc.Close(); err != nil {
		return fmt.Errorf("%s: end of data: %w", op, err)
	}
	if err = client.Quit(); err != nil {
		return fmt.Errorf("%s: QUIT: %w", op, err)
	}
	return nil
}

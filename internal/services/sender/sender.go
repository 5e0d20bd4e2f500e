// Package sender обрабатывает сообщения из очереди писем: собирает текст письма
// по его виду и отправляет через SMTP транспорт.
package sender

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/lib/smtp"
	"github.com/magabrotheeeer/account-service/internal/models"
)

// ErrUnknownKind вид письма не поддерживается
var ErrUnknownKind = errors.New("unknown email kind")

// Service отправляет письма из очереди.
type Service struct {
	mailer smtp.Mailer
	log    *slog.Logger
}

// New создает новый экземпляр Service.
func New(log *slog.Logger, mailer smtp.Mailer) *Service {
	return &Service{
		mailer: mailer,
		log:    log,
	}
}

// Handle обработчик сообщения очереди. Битое сообщение или неизвестный вид
// логируются и подтверждаются, ошибка SMTP возвращается для повторной доставки.
func (s *Service) Handle(body []byte) error {
	const op = "sender.Handle"
	var message models.EmailMessage
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body, dropped", sl.Op(op), sl.Err(err))
		return nil
	}

	text, err := Render(message)
	if err != nil {
		s.log.Error("failed to render email, dropped", sl.Op(op),
			slog.String("id", message.ID), slog.String("kind", message.Kind), sl.Err(err))
		return nil
	}

	err = smtp.Send(s.mailer, smtp.Message{To: message.To, Subject: message.Subject, Body: text})
	if err != nil {
		s.log.Error("failed to send email", sl.Op(op),
			slog.String("id", message.ID), slog.String("recipient", message.To), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("email sent", sl.Op(op), slog.String("id", message.ID), slog.String("kind", message.Kind))
	return nil
}

// Render возвращает текст письма для сообщения.
func Render(message models.EmailMessage) (string, error) {
	switch message.Kind {
	case models.EmailAccountVerification:
		return fmt.Sprintf("Hi %s,\r\n\r\n"+
			"Thanks for signing up for %s. Please confirm your email address by opening the link below:\r\n\r\n"+
			"%s\r\n\r\n"+
			"If you did not create an account, you can ignore this email.\r\n",
			message.Username, message.AppName, message.URL), nil
	case models.EmailAccountActivated:
		return fmt.Sprintf("Hi %s,\r\n\r\n"+
			"Your %s account is now active. You can sign in here:\r\n\r\n"+
			"%s\r\n",
			message.Username, message.AppName, message.URL), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, message.Kind)
	}
}

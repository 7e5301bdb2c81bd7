package mailer

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"sync"

	"github.com/moviestore/backend/internal/models"
)

// SendFunc отправляет одно письмо. Подменяется в тестах.
type SendFunc func(to, subject, body string) error

// Mailer — очередь писем с одним воркером. Отправка не блокирует
// вызывающего: при переполненной очереди задача отбрасывается с записью
// в лог. Повторных попыток нет, ошибка отправки терминальна для задачи.
type Mailer struct {
	queue chan task
	send  SendFunc
	log   *slog.Logger
	wg    sync.WaitGroup
	once  sync.Once
}

type task struct {
	to      string
	subject string
	body    string
}

func SMTPSender(host, port, user, password, from string) SendFunc {
	return func(to, subject, body string) error {
		msg := strings.Join([]string{
			"From: " + from,
			"To: " + to,
			"Subject: " + subject,
			"MIME-Version: 1.0",
			"Content-Type: text/plain; charset=utf-8",
			"",
			body,
		}, "\r\n")

		var auth smtp.Auth
		if user != "" {
			auth = smtp.PlainAuth("", user, password, host)
		}
		return smtp.SendMail(host+":"+port, auth, from, []string{to}, []byte(msg))
	}
}

func New(send SendFunc, queueSize int, log *slog.Logger) *Mailer {
	if queueSize <= 0 {
		queueSize = 64
	}
	m := &Mailer{
		queue: make(chan task, queueSize),
		send:  send,
		log:   log,
	}
	m.wg.Add(1)
	go m.worker()
	return m
}

func (m *Mailer) worker() {
	defer m.wg.Done()
	for t := range m.queue {
		if err := m.send(t.to, t.subject, t.body); err != nil {
			m.log.Error("email send failed", "to", t.to, "subject", t.subject, "error", err)
		}
	}
}

// EnqueueOrderConfirmation ставит письмо-подтверждение заказа в очередь.
// Никогда не возвращает ошибку: сбой доставки не должен влиять на заказ.
func (m *Mailer) EnqueueOrderConfirmation(order *models.Order) {
	to := order.Shipping.Email
	if to == "" {
		m.log.Warn("order has no email, confirmation skipped", "orderID", order.ID)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hola %s,\n\n", order.Shipping.Name)
	fmt.Fprintf(&b, "Hemos recibido tu pedido #%d.\n\n", order.ID)
	for _, it := range order.Items {
		fmt.Fprintf(&b, "  %d x %s — %s\n", it.Quantity, it.MovieTitle, it.Subtotal.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nSubtotal: %s\nIVA (21%%): %s\nTotal: %s\n",
		order.Subtotal.StringFixed(2), order.Tax.StringFixed(2), order.Total.StringFixed(2))

	t := task{
		to:      to,
		subject: fmt.Sprintf("Confirmación de pedido #%d", order.ID),
		body:    b.String(),
	}

	select {
	case m.queue <- t:
	default:
		m.log.Error("mail queue full, confirmation dropped", "orderID", order.ID)
	}
}

// Close дожидается отправки оставшихся писем.
func (m *Mailer) Close() {
	m.once.Do(func() { close(m.queue) })
	m.wg.Wait()
}

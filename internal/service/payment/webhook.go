// Package payment сверяет уведомления Mercado Pago с заказами.
package payment

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/moviestore/backend/internal/mercadopago"
	"github.com/moviestore/backend/internal/models"
)

// PaymentsAPI — часть клиента Mercado Pago, нужная сверке.
type PaymentsAPI interface {
	GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error)
}

type WebhookService struct {
	DB       *gorm.DB
	Payments PaymentsAPI
	Log      *slog.Logger
}

// ProcessWebhook обрабатывает уведомление провайдера. Любой сбой
// логируется и глотается: ответ вебхука всегда 200, повторную доставку
// обеспечивает сам провайдер. Телу вебхука не верим — платёж
// перечитывается из API, external_reference в нём и есть id заказа.
func (s *WebhookService) ProcessWebhook(ctx context.Context, payload map[string]interface{}) {
	typ, _ := payload["type"].(string)
	if typ != "payment" {
		return
	}

	data, _ := payload["data"].(map[string]interface{})
	paymentID := extractID(data)
	if paymentID == "" {
		s.Log.Warn("webhook without payment id", "payload", payload)
		return
	}

	pmt, err := s.Payments.GetPayment(ctx, paymentID)
	if err != nil {
		s.Log.Error("fetch payment failed", "paymentID", paymentID, "error", err)
		return
	}

	if pmt.ExternalReference == "" {
		s.Log.Warn("payment has no external reference", "paymentID", paymentID)
		return
	}
	orderID, err := strconv.ParseUint(pmt.ExternalReference, 10, 64)
	if err != nil {
		s.Log.Warn("external reference is not an order id",
			"paymentID", paymentID, "externalReference", pmt.ExternalReference)
		return
	}

	var order models.Order
	if err := s.DB.WithContext(ctx).First(&order, uint(orderID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.Log.Error("order not found for payment",
				"orderID", orderID, "paymentID", paymentID)
		} else {
			s.Log.Error("order lookup failed", "orderID", orderID, "error", err)
		}
		return
	}

	switch pmt.Status {
	case "approved":
		if order.Status != models.OrderStatusConfirmed {
			now := time.Now()
			order.Status = models.OrderStatusConfirmed
			order.ConfirmedAt = &now
		}
	case "rejected":
		order.Status = models.OrderStatusRejected
	case "cancelled":
		order.Status = models.OrderStatusCancelled
	default:
		// "pending", "in_process" и прочие статусы заказ не меняют.
	}

	order.TransactionID = pmt.ID.String()
	if err := s.DB.WithContext(ctx).Save(&order).Error; err != nil {
		s.Log.Error("order update failed", "orderID", order.ID, "error", err)
		return
	}

	s.Log.Info("order reconciled with payment",
		"orderID", order.ID, "status", order.Status, "paymentID", pmt.ID.String())
}

func extractID(data map[string]interface{}) string {
	if data == nil {
		return ""
	}
	switch v := data["id"].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	}
	return ""
}

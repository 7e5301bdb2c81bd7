package payment

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/moviestore/backend/internal/httperr"
	"github.com/moviestore/backend/internal/mercadopago"
	auth "github.com/moviestore/backend/internal/middleware/auth"
	"github.com/moviestore/backend/internal/service/checkout"
	"github.com/moviestore/backend/internal/service/payment"
)

type MercadoPagoHandler struct {
	Checkout    *checkout.Service
	Payments    *mercadopago.Client
	Webhook     *payment.WebhookService
	AppBaseURL  string
	FrontendURL string
}

// CreatePreference создаёт заказ и платёжную преференцию. Id заказа
// уезжает провайдеру как external_reference и возвращается в вебхуке —
// это ключ сверки.
func (h *MercadoPagoHandler) CreatePreference(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var payload checkout.Payload
	if err := c.Bind(&payload); err != nil {
		return httperr.JSON(c, fmt.Errorf("%w: %v", httperr.ErrBadRequest, err))
	}

	order, err := h.Checkout.Create(c.Request().Context(), userID, &payload,
		checkout.PaymentMethodMercadoPago)
	if err != nil {
		return httperr.JSON(c, err)
	}

	items := make([]mercadopago.PreferenceItem, 0, len(order.Items))
	for _, it := range order.Items {
		if !it.UnitPrice.IsPositive() {
			return httperr.JSON(c, fmt.Errorf("%w: el item %q tiene un precio inválido",
				httperr.ErrBadRequest, it.MovieTitle))
		}
		items = append(items, mercadopago.PreferenceItem{
			Title:     it.MovieTitle,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}

	pref := &mercadopago.PreferenceRequest{
		Items: items,
		Payer: mercadopago.PreferencePayer{
			Name:    order.Shipping.Name,
			Surname: order.Shipping.Surname,
			Email:   order.Shipping.Email,
		},
		NotificationURL:   h.AppBaseURL + "/api/payments/mercadopago/webhook",
		ExternalReference: fmt.Sprint(order.ID),
		BackURLs: mercadopago.BackURLs{
			Success: h.FrontendURL + "/checkout/success",
			Failure: h.FrontendURL + "/checkout/failure",
			Pending: h.FrontendURL + "/checkout/pending",
		},
		AutoReturn: "approved",
	}

	created, err := h.Payments.CreatePreference(c.Request().Context(), pref)
	if err != nil {
		var apiErr *mercadopago.APIError
		if errors.As(err, &apiErr) {
			// Ошибка API провайдера уходит клиенту с исходным статусом.
			return c.JSON(apiErr.StatusCode, echo.Map{"error": apiErr.Message})
		}
		c.Logger().Errorf("create preference failed: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "payment provider error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"init_point": created.InitPoint,
		"pedidoId":   order.ID,
	})
}

// ReceiveWebhook всегда отвечает 200: повторные доставки — забота
// провайдера, внутренние сбои не должны вызывать шторм ретраев.
func (h *MercadoPagoHandler) ReceiveWebhook(c echo.Context) error {
	var payload map[string]interface{}
	if err := c.Bind(&payload); err != nil {
		c.Logger().Errorf("webhook bind error: %v", err)
		return c.NoContent(http.StatusOK)
	}

	h.Webhook.ProcessWebhook(c.Request().Context(), payload)
	return c.NoContent(http.StatusOK)
}

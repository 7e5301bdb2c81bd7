// Package checkout превращает содержимое чекаута в сохранённый заказ.
// Используется и обычным оформлением корзины, и платёжным потоком
// Mercado Pago (отличаются только методом оплаты).
package checkout

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/moviestore/backend/internal/httperr"
	"github.com/moviestore/backend/internal/mailer"
	"github.com/moviestore/backend/internal/models"
)

const (
	PaymentMethodCash        = "EFECTIVO"
	PaymentMethodMercadoPago = "MERCADOPAGO"
)

type Item struct {
	MovieID  uint `json:"peliculaId"`
	Quantity int  `json:"cantidad"`
}

type ShippingInfo struct {
	Name       string `json:"nombre"`
	Surname    string `json:"apellidos"`
	Email      string `json:"email"`
	Phone      string `json:"telefono"`
	Street     string `json:"direccion"`
	City       string `json:"ciudad"`
	Province   string `json:"provincia"`
	PostalCode string `json:"codigoPostal"`
}

type Payload struct {
	PaymentMethod string       `json:"metodoPago"`
	Shipping      ShippingInfo `json:"datosEnvio"`
	Notes         string       `json:"notas"`
	Items         []Item       `json:"items"`
}

type Service struct {
	DB     *gorm.DB
	Mailer *mailer.Mailer
}

// Create создаёт заказ из чекаута в одной транзакции: каждая позиция
// резолвится в актуальный фильм каталога, строится снимок, считаются
// итоги по правилу 21%. Любая нерезолвящаяся позиция отменяет весь
// заказ. Письмо-подтверждение ставится в очередь уже после коммита и
// на успех заказа не влияет.
func (s *Service) Create(ctx context.Context, userID uint, payload *Payload, paymentMethod string) (*models.Order, error) {
	if len(payload.Items) == 0 {
		return nil, fmt.Errorf("%w: el pedido no tiene items", httperr.ErrBadRequest)
	}

	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: usuario %d no encontrado", httperr.ErrUnauthorized, userID)
		}
		return nil, err
	}
	if !user.Active {
		return nil, fmt.Errorf("%w: usuario %d inactivo", httperr.ErrUnauthorized, userID)
	}

	order := &models.Order{
		UserID:        userID,
		Status:        models.OrderStatusPending,
		PaymentMethod: paymentMethod,
		Notes:         payload.Notes,
		Shipping: models.Address{
			Name:       payload.Shipping.Name,
			Surname:    payload.Shipping.Surname,
			Email:      payload.Shipping.Email,
			Phone:      payload.Shipping.Phone,
			Street:     payload.Shipping.Street,
			City:       payload.Shipping.City,
			Province:   payload.Shipping.Province,
			PostalCode: payload.Shipping.PostalCode,
		},
	}

	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, reqItem := range payload.Items {
			if reqItem.Quantity < 1 {
				return fmt.Errorf("%w: cantidad inválida para la película %d",
					httperr.ErrBadRequest, reqItem.MovieID)
			}

			var movie models.Movie
			if err := tx.First(&movie, reqItem.MovieID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: película %d no encontrada",
						httperr.ErrNotFound, reqItem.MovieID)
				}
				return err
			}

			order.Items = append(order.Items, models.NewOrderItem(&movie, reqItem.Quantity))
		}

		order.RecomputeTotals()
		return tx.Create(order).Error
	})
	if txErr != nil {
		return nil, txErr
	}

	if s.Mailer != nil {
		s.Mailer.EnqueueOrderConfirmation(order)
	}

	return order, nil
}

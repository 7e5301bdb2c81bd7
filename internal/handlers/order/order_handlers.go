package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/moviestore/backend/internal/httperr"
	auth "github.com/moviestore/backend/internal/middleware/auth"
	"github.com/moviestore/backend/internal/models"
	"github.com/moviestore/backend/internal/mykafka"
	"github.com/moviestore/backend/internal/util"
)

type OrderHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

func (h *OrderHandler) publish(c echo.Context, event map[string]any) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "order_events", fmt.Sprint(event["orderID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *OrderHandler) MyOrders(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var orders []models.Order
	if err := h.DB.Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, orders)
}

// GetOrder возвращает заказ только его владельцу. Чужой заказ для
// пользователя неотличим от несуществующего.
func (h *OrderHandler) GetOrder(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return httperr.JSON(c, fmt.Errorf("%w: id inválido", httperr.ErrBadRequest))
	}

	var order models.Order
	if err := h.DB.Preload("Items").
		Where("id = ? AND user_id = ?", id, userID).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httperr.JSON(c, fmt.Errorf("%w: pedido %d no encontrado", httperr.ErrNotFound, id))
		}
		return httperr.JSON(c, err)
	}

	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) AdminAllOrders(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	q := h.DB.Model(&models.Order{})
	if status := c.QueryParam("estado"); status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var orders []models.Order
	if err := q.Preload("Items").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": orders,
		"meta": map[string]any{
			"page":  page,
			"size":  limit,
			"total": total,
		},
	})
}

func (h *OrderHandler) AdminGetOrder(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return httperr.JSON(c, fmt.Errorf("%w: id inválido", httperr.ErrBadRequest))
	}

	var order models.Order
	if err := h.DB.Preload("Items").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httperr.JSON(c, fmt.Errorf("%w: pedido %d no encontrado", httperr.ErrNotFound, id))
		}
		return httperr.JSON(c, err)
	}

	return c.JSON(http.StatusOK, order)
}

// AdminUpdateStatus гоняет заказ по конечному автомату статусов.
// Недопустимый переход отклоняется, терминальный заказ неизменен.
func (h *OrderHandler) AdminUpdateStatus(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return httperr.JSON(c, fmt.Errorf("%w: id inválido", httperr.ErrBadRequest))
	}

	var req struct {
		Status string `json:"estado"`
	}
	if err := c.Bind(&req); err != nil {
		return httperr.JSON(c, fmt.Errorf("%w: %v", httperr.ErrBadRequest, err))
	}

	var order models.Order
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").First(&order, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: pedido %d no encontrado", httperr.ErrNotFound, id)
			}
			return err
		}

		switch req.Status {
		case models.OrderStatusConfirmed:
			err = order.Confirm()
		case models.OrderStatusShipped:
			err = order.Ship()
		case models.OrderStatusDelivered:
			err = order.Deliver()
		case models.OrderStatusCancelled:
			err = order.Cancel()
		default:
			return fmt.Errorf("%w: estado desconocido %q", httperr.ErrBadRequest, req.Status)
		}
		if err != nil {
			return err
		}

		return tx.Save(&order).Error
	})
	if txErr != nil {
		return httperr.JSON(c, txErr)
	}

	h.publish(c, map[string]any{
		"type":    "order_status_changed",
		"orderID": order.ID,
		"status":  order.Status,
	})

	return c.JSON(http.StatusOK, order)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

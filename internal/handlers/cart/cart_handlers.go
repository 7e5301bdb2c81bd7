package cart

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/moviestore/backend/internal/httperr"
	auth "github.com/moviestore/backend/internal/middleware/auth"
	"github.com/moviestore/backend/internal/models"
	"github.com/moviestore/backend/internal/mykafka"
	"github.com/moviestore/backend/internal/service/checkout"
)

type CartHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
	Checkout *checkout.Service
}

func (h *CartHandler) GetCart(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	cart, err := h.getOrCreateCart(h.DB, userID)
	if err != nil {
		return httperr.JSON(c, err)
	}

	return c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) AddItem(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var req struct {
		MovieID  uint `json:"peliculaId"`
		Quantity int  `json:"cantidad"`
	}
	if err := c.Bind(&req); err != nil {
		return httperr.JSON(c, fmt.Errorf("%w: %v", httperr.ErrBadRequest, err))
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	var cart *models.Cart
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		var movie models.Movie
		if err := tx.First(&movie, req.MovieID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: película %d no encontrada", httperr.ErrNotFound, req.MovieID)
			}
			return err
		}
		if !movie.Available || movie.Stock <= 0 {
			return fmt.Errorf("%w: la película %q no está disponible", httperr.ErrBadRequest, movie.Title)
		}

		cart, err = h.getOrCreateCart(tx, userID)
		if err != nil {
			return err
		}

		item := cart.AddItem(&movie, req.Quantity)
		if item.ID == 0 {
			if err := tx.Create(item).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Save(item).Error; err != nil {
				return err
			}
		}
		return saveCartTotals(tx, cart)
	})
	if txErr != nil {
		return httperr.JSON(c, txErr)
	}

	h.publish(c, map[string]any{
		"type":    "cart_item_added",
		"userID":  userID,
		"movieID": req.MovieID,
	})

	return c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) UpdateItem(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	itemID, err := strconv.Atoi(c.Param("itemId"))
	if err != nil || itemID <= 0 {
		return httperr.JSON(c, fmt.Errorf("%w: id inválido", httperr.ErrBadRequest))
	}

	var req struct {
		Quantity int `json:"cantidad"`
	}
	if err := c.Bind(&req); err != nil {
		return httperr.JSON(c, fmt.Errorf("%w: %v", httperr.ErrBadRequest, err))
	}

	var cart *models.Cart
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		cart, err = h.getOrCreateCart(tx, userID)
		if err != nil {
			return err
		}

		removed, err := cart.UpdateItemQuantity(uint(itemID), req.Quantity)
		if err != nil {
			return err
		}
		if removed != nil {
			if err := tx.Delete(&models.CartItem{}, removed.ID).Error; err != nil {
				return err
			}
		} else if item := cart.FindItem(uint(itemID)); item != nil {
			if err := tx.Save(item).Error; err != nil {
				return err
			}
		}
		return saveCartTotals(tx, cart)
	})
	if txErr != nil {
		return httperr.JSON(c, txErr)
	}

	h.publish(c, map[string]any{
		"type":   "cart_item_updated",
		"userID": userID,
		"itemID": itemID,
	})

	return c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) RemoveItem(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	itemID, err := strconv.Atoi(c.Param("itemId"))
	if err != nil || itemID <= 0 {
		return httperr.JSON(c, fmt.Errorf("%w: id inválido", httperr.ErrBadRequest))
	}

	var cart *models.Cart
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		cart, err = h.getOrCreateCart(tx, userID)
		if err != nil {
			return err
		}

		removed, err := cart.RemoveItem(uint(itemID))
		if err != nil {
			return err
		}
		if err := tx.Delete(&models.CartItem{}, removed.ID).Error; err != nil {
			return err
		}
		return saveCartTotals(tx, cart)
	})
	if txErr != nil {
		return httperr.JSON(c, txErr)
	}

	h.publish(c, map[string]any{
		"type":   "cart_item_removed",
		"userID": userID,
		"itemID": itemID,
	})

	return c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) ClearCart(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var cart *models.Cart
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		cart, err = h.getOrCreateCart(tx, userID)
		if err != nil {
			return err
		}
		return h.clearCart(tx, cart)
	})
	if txErr != nil {
		return httperr.JSON(c, txErr)
	}

	h.publish(c, map[string]any{
		"type":   "cart_cleared",
		"userID": userID,
	})

	return c.JSON(http.StatusOK, cart)
}

// CheckoutCart оформляет заказ из тела запроса. Корзина очищается
// отдельным шагом после успешного создания заказа: падение между этими
// шагами оставляет устаревшую, но безвредную корзину.
func (h *CartHandler) CheckoutCart(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var payload checkout.Payload
	if err := c.Bind(&payload); err != nil {
		return httperr.JSON(c, fmt.Errorf("%w: %v", httperr.ErrBadRequest, err))
	}

	method := payload.PaymentMethod
	if method == "" {
		method = checkout.PaymentMethodCash
	}

	order, err := h.Checkout.Create(c.Request().Context(), userID, &payload, method)
	if err != nil {
		return httperr.JSON(c, err)
	}

	if cart, err := h.getOrCreateCart(h.DB, userID); err != nil {
		c.Logger().Errorf("cart load after checkout failed: %v", err)
	} else if err := h.clearCart(h.DB, cart); err != nil {
		c.Logger().Errorf("cart clear after checkout failed: %v", err)
	}

	h.publish(c, map[string]any{
		"type":    "order_created",
		"userID":  userID,
		"orderID": order.ID,
		"total":   order.Total,
	})

	return c.JSON(http.StatusCreated, order)
}

package handlers

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
	"github.com/moviestore/backend/internal/util"
)

type UserHandler struct {
	DB *gorm.DB
}

func (h *UserHandler) GetProfile(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		return httperr.JSON(c, fmt.Errorf("%w: usuario no encontrado", httperr.ErrNotFound))
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UserHandler) ListUsers(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var total int64
	if err := h.DB.Model(&models.User{}).Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var users []models.User
	if err := h.DB.Order("id ASC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": users,
		"meta": map[string]any{
			"page":  page,
			"size":  limit,
			"total": total,
		},
	})
}

// DeactivateUser деактивирует пользователя (мягкое удаление). Последнего
// активного администратора деактивировать нельзя.
func (h *UserHandler) DeactivateUser(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return httperr.JSON(c, fmt.Errorf("%w: id inválido", httperr.ErrBadRequest))
	}

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: usuario %d no encontrado", httperr.ErrNotFound, id)
			}
			return err
		}
		if !user.Active {
			return fmt.Errorf("%w: usuario %d ya está desactivado", httperr.ErrNotFound, id)
		}

		if user.IsAdmin() {
			var activeAdmins int64
			if err := tx.Model(&models.User{}).
				Where("role = ? AND active = ?", models.RoleAdmin, true).
				Count(&activeAdmins).Error; err != nil {
				return err
			}
			if activeAdmins <= 1 {
				return fmt.Errorf("%w: no se puede desactivar el último administrador del sistema",
					httperr.ErrBadRequest)
			}
		}

		user.Active = false
		return tx.Save(&user).Error
	})
	if txErr != nil {
		return httperr.JSON(c, txErr)
	}

	return c.NoContent(http.StatusNoContent)
}

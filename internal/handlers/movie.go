package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/moviestore/backend/internal/httperr"
	"github.com/moviestore/backend/internal/models"
	"github.com/moviestore/backend/internal/mykafka"
	"github.com/moviestore/backend/internal/util"
)

type MovieHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
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

func (h *MovieHandler) publish(c echo.Context, event map[string]any) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "movie_events", fmt.Sprint(event["movieID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

type movieRequest struct {
	Title       string          `json:"titulo"`
	Description string          `json:"descripcion"`
	Director    string          `json:"director"`
	Year        int             `json:"anio"`
	DurationMin int             `json:"duracion"`
	Genre       string          `json:"genero"`
	Price       decimal.Decimal `json:"precio"`
	Stock       *int            `json:"stock"`
	Available   *bool           `json:"disponible"`
	ImageURL    string          `json:"imagenUrl"`
}

func (h *MovieHandler) GetMovie(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return httperr.JSON(c, fmt.Errorf("%w: id inválido", httperr.ErrBadRequest))
	}

	var movie models.Movie
	if err := h.DB.First(&movie, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httperr.JSON(c, fmt.Errorf("%w: película %d no encontrada", httperr.ErrNotFound, id))
		}
		return httperr.JSON(c, err)
	}

	return c.JSON(http.StatusOK, movie)
}

func (h *MovieHandler) GetMovies(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	q := h.DB.Model(&models.Movie{})
	if genre := c.QueryParam("genero"); genre != "" {
		q = q.Where("genre = ?", genre)
	}
	if c.QueryParam("disponibles") == "true" {
		q = q.Where("available = ? AND stock > 0", true)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var items []models.Movie
	if err := q.Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func (h *MovieHandler) CreateMovie(c echo.Context) error {
	var req movieRequest
	if err := c.Bind(&req); err != nil {
		return httperr.JSON(c, fmt.Errorf("%w: %v", httperr.ErrBadRequest, err))
	}

	if req.Title == "" {
		return httperr.JSON(c, fmt.Errorf("%w: el título es obligatorio", httperr.ErrBadRequest))
	}
	if req.Price.IsNegative() {
		return httperr.JSON(c, fmt.Errorf("%w: el precio no puede ser negativo", httperr.ErrBadRequest))
	}
	if req.Stock != nil && *req.Stock < 0 {
		return httperr.JSON(c, fmt.Errorf("%w: el stock no puede ser negativo", httperr.ErrBadRequest))
	}

	var existing models.Movie
	if err := h.DB.Where("title = ?", req.Title).First(&existing).Error; err == nil {
		return httperr.JSON(c, fmt.Errorf("%w: ya existe una película con el título %q",
			httperr.ErrBadRequest, req.Title))
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return httperr.JSON(c, err)
	}

	movie := models.Movie{
		Title:       req.Title,
		Description: req.Description,
		Director:    req.Director,
		Year:        req.Year,
		DurationMin: req.DurationMin,
		Genre:       req.Genre,
		Price:       req.Price,
		Available:   true,
		ImageURL:    req.ImageURL,
	}
	if req.Stock != nil {
		movie.Stock = *req.Stock
	}
	if req.Available != nil {
		movie.Available = *req.Available
	}

	if err := h.DB.Create(&movie).Error; err != nil {
		return httperr.JSON(c, err)
	}

	h.publish(c, map[string]any{
		"type":    "movie_created",
		"movieID": movie.ID,
		"title":   movie.Title,
	})

	return c.JSON(http.StatusCreated, movie)
}

func (h *MovieHandler) PatchMovie(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return httperr.JSON(c, fmt.Errorf("%w: id inválido", httperr.ErrBadRequest))
	}

	var req movieRequest
	if err := c.Bind(&req); err != nil {
		return httperr.JSON(c, fmt.Errorf("%w: %v", httperr.ErrBadRequest, err))
	}

	var movie models.Movie
	if err := h.DB.First(&movie, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httperr.JSON(c, fmt.Errorf("%w: película %d no encontrada", httperr.ErrNotFound, id))
		}
		return httperr.JSON(c, err)
	}

	if req.Stock != nil {
		if *req.Stock < 0 {
			return httperr.JSON(c, fmt.Errorf("%w: el stock no puede ser negativo", httperr.ErrBadRequest))
		}
		movie.Stock = *req.Stock
	}
	if req.Title != "" {
		movie.Title = req.Title
	}
	if req.Description != "" {
		movie.Description = req.Description
	}
	if req.Director != "" {
		movie.Director = req.Director
	}
	if req.Year != 0 {
		movie.Year = req.Year
	}
	if req.DurationMin != 0 {
		movie.DurationMin = req.DurationMin
	}
	if req.Genre != "" {
		movie.Genre = req.Genre
	}
	if !req.Price.IsZero() {
		if req.Price.IsNegative() {
			return httperr.JSON(c, fmt.Errorf("%w: el precio no puede ser negativo", httperr.ErrBadRequest))
		}
		movie.Price = req.Price
	}
	if req.Available != nil {
		movie.Available = *req.Available
	}
	if req.ImageURL != "" {
		movie.ImageURL = req.ImageURL
	}

	if err := h.DB.Save(&movie).Error; err != nil {
		return httperr.JSON(c, err)
	}

	h.publish(c, map[string]any{
		"type":    "movie_updated",
		"movieID": movie.ID,
		"title":   movie.Title,
	})

	return c.JSON(http.StatusOK, movie)
}

func (h *MovieHandler) DeleteMovie(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return httperr.JSON(c, fmt.Errorf("%w: id inválido", httperr.ErrBadRequest))
	}

	if err := h.DB.Delete(&models.Movie{}, id).Error; err != nil {
		return httperr.JSON(c, err)
	}

	h.publish(c, map[string]any{
		"type":    "movie_deleted",
		"movieID": id,
	})

	return c.NoContent(http.StatusNoContent)
}

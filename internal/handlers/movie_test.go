package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/moviestore/backend/internal/models"
)

func movieCall(t *testing.T, h func(echo.Context) error, method, path, body string, params ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	if len(params) == 2 {
		c.SetParamNames(params[0])
		c.SetParamValues(params[1])
	}
	require.NoError(t, h(c))
	return rec
}

func seedMovie(t *testing.T, db *gorm.DB, title string, stock int, available bool) *models.Movie {
	movie := &models.Movie{
		Title:     title,
		Director:  "test_director",
		Year:      1999,
		Genre:     "scifi",
		Price:     decimal.RequireFromString("10.00"),
		Stock:     stock,
		Available: available,
	}
	require.NoError(t, db.Create(movie).Error)
	return movie
}

func TestCreateMovie(t *testing.T) {
	db := newHandlerDB(t)
	h := &MovieHandler{DB: db}

	rec := movieCall(t, h.CreateMovie, http.MethodPost, "/api/peliculas",
		`{"titulo":"Matrix","director":"Wachowski","anio":1999,"precio":"10.00","stock":5}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var movie models.Movie
	require.NoError(t, db.Where("title = ?", "Matrix").First(&movie).Error)
	require.Equal(t, 5, movie.Stock)
	require.True(t, movie.Available)
	require.Equal(t, "10.00", movie.Price.StringFixed(2))
}

func TestCreateMovieValidation(t *testing.T) {
	db := newHandlerDB(t)
	h := &MovieHandler{DB: db}

	rec := movieCall(t, h.CreateMovie, http.MethodPost, "/api/peliculas", `{"precio":"10.00"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = movieCall(t, h.CreateMovie, http.MethodPost, "/api/peliculas",
		`{"titulo":"Matrix","precio":"-1.00"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = movieCall(t, h.CreateMovie, http.MethodPost, "/api/peliculas",
		`{"titulo":"Matrix","precio":"10.00","stock":-3}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateMovieDuplicateTitle(t *testing.T) {
	db := newHandlerDB(t)
	seedMovie(t, db, "Matrix", 5, true)
	h := &MovieHandler{DB: db}

	rec := movieCall(t, h.CreateMovie, http.MethodPost, "/api/peliculas",
		`{"titulo":"Matrix","precio":"10.00"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "ya existe")
}

func TestGetMovieNotFound(t *testing.T) {
	db := newHandlerDB(t)
	h := &MovieHandler{DB: db}

	rec := movieCall(t, h.GetMovie, http.MethodGet, "/api/peliculas/42", "", "id", "42")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetMoviesFilters(t *testing.T) {
	db := newHandlerDB(t)
	seedMovie(t, db, "Matrix", 5, true)
	seedMovie(t, db, "Agotada", 0, true)
	seedMovie(t, db, "Oculta", 5, false)
	h := &MovieHandler{DB: db}

	rec := movieCall(t, h.GetMovies, http.MethodGet, "/api/peliculas?disponibles=true", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []models.Movie `json:"data"`
		Meta struct {
			Total int64 `json:"total"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, int64(1), resp.Meta.Total)
	require.Equal(t, "Matrix", resp.Data[0].Title)
}

func TestPatchMoviePartialUpdate(t *testing.T) {
	db := newHandlerDB(t)
	movie := seedMovie(t, db, "Matrix", 5, true)
	h := &MovieHandler{DB: db}

	rec := movieCall(t, h.PatchMovie, http.MethodPatch,
		fmt.Sprintf("/api/peliculas/%d", movie.ID),
		`{"stock":0,"disponible":false}`, "id", fmt.Sprint(movie.ID))
	require.Equal(t, http.StatusOK, rec.Code)

	var loaded models.Movie
	require.NoError(t, db.First(&loaded, movie.ID).Error)
	require.Equal(t, 0, loaded.Stock)
	require.False(t, loaded.Available)
	require.Equal(t, "Matrix", loaded.Title)
	require.Equal(t, "10.00", loaded.Price.StringFixed(2))
}

func TestPatchMovieRejectsNegatives(t *testing.T) {
	db := newHandlerDB(t)
	movie := seedMovie(t, db, "Matrix", 5, true)
	h := &MovieHandler{DB: db}

	rec := movieCall(t, h.PatchMovie, http.MethodPatch,
		fmt.Sprintf("/api/peliculas/%d", movie.ID),
		`{"stock":-1}`, "id", fmt.Sprint(movie.ID))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = movieCall(t, h.PatchMovie, http.MethodPatch,
		fmt.Sprintf("/api/peliculas/%d", movie.ID),
		`{"precio":"-5.00"}`, "id", fmt.Sprint(movie.ID))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteMovie(t *testing.T) {
	db := newHandlerDB(t)
	movie := seedMovie(t, db, "Matrix", 5, true)
	h := &MovieHandler{DB: db}

	rec := movieCall(t, h.DeleteMovie, http.MethodDelete,
		fmt.Sprintf("/api/peliculas/%d", movie.ID), "", "id", fmt.Sprint(movie.ID))
	require.Equal(t, http.StatusNoContent, rec.Code)

	var count int64
	db.Model(&models.Movie{}).Count(&count)
	require.Equal(t, int64(0), count)
}

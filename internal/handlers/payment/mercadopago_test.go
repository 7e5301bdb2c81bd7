package payment

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/moviestore/backend/internal/config"
	"github.com/moviestore/backend/internal/mercadopago"
	auth "github.com/moviestore/backend/internal/middleware/auth"
	"github.com/moviestore/backend/internal/models"
	"github.com/moviestore/backend/internal/service/checkout"
	paymentsvc "github.com/moviestore/backend/internal/service/payment"
)

func newTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	return db
}

func newHandler(t *testing.T, db *gorm.DB, providerURL string) *MercadoPagoHandler {
	client := mercadopago.NewClient(providerURL, "test_token")
	return &MercadoPagoHandler{
		Checkout: &checkout.Service{DB: db},
		Payments: client,
		Webhook: &paymentsvc.WebhookService{
			DB:       db,
			Payments: client,
			Log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		},
		AppBaseURL:  "http://localhost:8080",
		FrontendURL: "http://localhost:3000",
	}
}

func seedCatalog(t *testing.T, db *gorm.DB) *models.Movie {
	require.NoError(t, db.Create(&models.User{
		Name: "Ana", Email: "ana@example.com",
		PasswordHash: "x", Role: models.RoleUser, Active: true,
	}).Error)
	movie := &models.Movie{
		Title: "Matrix", Director: "Wachowski", Year: 1999,
		Price: decimal.RequireFromString("10.00"), Stock: 5, Available: true,
	}
	require.NoError(t, db.Create(movie).Error)
	return movie
}

func doPost(t *testing.T, h func(echo.Context) error, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.Set(auth.ContextUserID, uint(1))
	c.Set(auth.ContextRole, models.RoleUser)
	require.NoError(t, h(c))
	return rec
}

func preferenceBody(movieID uint) string {
	return fmt.Sprintf(`{
		"datosEnvio": {"nombre":"Ana","apellidos":"García","email":"ana@example.com"},
		"items": [{"peliculaId": %d, "cantidad": 2}]
	}`, movieID)
}

func TestCreatePreferenceReturnsInitPoint(t *testing.T) {
	db := newTestDB(t)
	movie := seedCatalog(t, db)

	var gotPref mercadopago.PreferenceRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/checkout/preferences", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPref))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"pref-1","init_point":"https://mp.example/init/pref-1"}`))
	}))
	defer srv.Close()

	h := newHandler(t, db, srv.URL)
	rec := doPost(t, h.CreatePreference, "/api/payments/mercadopago/create-preference",
		preferenceBody(movie.ID))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		InitPoint string `json:"init_point"`
		OrderID   uint   `json:"pedidoId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "https://mp.example/init/pref-1", resp.InitPoint)
	require.NotZero(t, resp.OrderID)

	var order models.Order
	require.NoError(t, db.First(&order, resp.OrderID).Error)
	require.Equal(t, checkout.PaymentMethodMercadoPago, order.PaymentMethod)
	require.Equal(t, models.OrderStatusPending, order.Status)
	require.Equal(t, fmt.Sprint(order.ID), gotPref.ExternalReference)
	require.Equal(t, "http://localhost:8080/api/payments/mercadopago/webhook", gotPref.NotificationURL)
	require.Len(t, gotPref.Items, 1)
	require.Equal(t, "Matrix", gotPref.Items[0].Title)
}

func TestCreatePreferencePropagatesAPIError(t *testing.T) {
	db := newTestDB(t)
	movie := seedCatalog(t, db)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"invalid collector"}`))
	}))
	defer srv.Close()

	h := newHandler(t, db, srv.URL)
	rec := doPost(t, h.CreatePreference, "/api/payments/mercadopago/create-preference",
		preferenceBody(movie.ID))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid collector")
}

func TestCreatePreferenceUnknownMovie(t *testing.T) {
	db := newTestDB(t)
	seedCatalog(t, db)

	h := newHandler(t, db, "http://127.0.0.1:1")
	rec := doPost(t, h.CreatePreference, "/api/payments/mercadopago/create-preference",
		preferenceBody(999))
	require.Equal(t, http.StatusNotFound, rec.Code)

	var count int64
	db.Model(&models.Order{}).Count(&count)
	require.Equal(t, int64(0), count)
}

func TestWebhookConfirmsOrderEndToEnd(t *testing.T) {
	db := newTestDB(t)
	seedCatalog(t, db)
	order := &models.Order{
		UserID: 1, Status: models.OrderStatusPending,
		Subtotal: decimal.RequireFromString("20.00"),
		Tax:      decimal.RequireFromString("4.20"),
		Total:    decimal.RequireFromString("24.20"),
	}
	require.NoError(t, db.Create(order).Error)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payments/555", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":555,"status":"approved","external_reference":"%d"}`, order.ID)
	}))
	defer srv.Close()

	h := newHandler(t, db, srv.URL)
	rec := doPost(t, h.ReceiveWebhook, "/api/payments/mercadopago/webhook",
		`{"type":"payment","data":{"id":"555"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var loaded models.Order
	require.NoError(t, db.First(&loaded, order.ID).Error)
	require.Equal(t, models.OrderStatusConfirmed, loaded.Status)
	require.Equal(t, "555", loaded.TransactionID)
}

func TestWebhookAlwaysAnswers200(t *testing.T) {
	db := newTestDB(t)
	h := newHandler(t, db, "http://127.0.0.1:1")

	// Мусорное тело, нерелевантный тип и недоступный провайдер.
	require.Equal(t, http.StatusOK,
		doPost(t, h.ReceiveWebhook, "/api/payments/mercadopago/webhook", `{"type":"test"}`).Code)
	require.Equal(t, http.StatusOK,
		doPost(t, h.ReceiveWebhook, "/api/payments/mercadopago/webhook",
			`{"type":"payment","data":{"id":"1"}}`).Code)
	require.Equal(t, http.StatusOK,
		doPost(t, h.ReceiveWebhook, "/api/payments/mercadopago/webhook", `not json`).Code)
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/moviestore/backend/internal/config"
	"github.com/moviestore/backend/internal/es"
	"github.com/moviestore/backend/internal/handlers"
	"github.com/moviestore/backend/internal/handlers/cart"
	"github.com/moviestore/backend/internal/handlers/order"
	"github.com/moviestore/backend/internal/handlers/payment"
	"github.com/moviestore/backend/internal/logging"
	"github.com/moviestore/backend/internal/mailer"
	"github.com/moviestore/backend/internal/mercadopago"
	"github.com/moviestore/backend/internal/mykafka"
	"github.com/moviestore/backend/internal/service/checkout"
	paymentsvc "github.com/moviestore/backend/internal/service/payment"
	httpserver "github.com/moviestore/backend/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("Ошибка инициализации БД: %v", err)
	}

	jwtSecret := []byte(configuration.JWT_SECRET)
	refreshSecret := []byte(configuration.REFRESH_SECRET)

	var prod *mykafka.Producer
	if configuration.KAFKA_ADDRESS != "" {
		prod, err = mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
		if err != nil {
			log.Fatal(err)
		}
	}

	var searchHandler *handlers.SearchHandler
	if configuration.ES_URL != "" {
		esClient, err := es.NewClient(configuration)
		if err != nil {
			log.Fatal(err)
		}
		searchHandler = &handlers.SearchHandler{ES: esClient, Index: "peliculas"}
	} else {
		searchHandler = &handlers.SearchHandler{}
	}

	send := mailer.SMTPSender(
		configuration.SMTP_HOST,
		configuration.SMTP_PORT,
		configuration.SMTP_USER,
		configuration.SMTP_PASSWORD,
		configuration.SMTP_FROM,
	)
	mail := mailer.New(send, 64, logger)

	mpClient := mercadopago.NewClient(configuration.MP_BASE_URL, configuration.MP_ACCESS_TOKEN)
	checkoutSvc := &checkout.Service{DB: db, Mailer: mail}
	webhookSvc := &paymentsvc.WebhookService{DB: db, Payments: mpClient, Log: logger}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())

	deps := httpserver.Deps{
		DB:            db,
		JWTSecret:     jwtSecret,
		AuthHandler:   &handlers.AuthHandler{DB: db, JWTSecret: jwtSecret, RefreshSecret: refreshSecret, Producer: prod},
		UserHandler:   &handlers.UserHandler{DB: db},
		MovieHandler:  &handlers.MovieHandler{DB: db, Producer: prod},
		SearchHandler: searchHandler,
		CartHandler:   &cart.CartHandler{DB: db, Producer: prod, Checkout: checkoutSvc},
		OrderHandler:  &order.OrderHandler{DB: db, Producer: prod},
		PaymentHandler: &payment.MercadoPagoHandler{
			Checkout:    checkoutSvc,
			Payments:    mpClient,
			Webhook:     webhookSvc,
			AppBaseURL:  configuration.APP_BASE_URL,
			FrontendURL: configuration.FRONTEND_URL,
		},
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	mail.Close()

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if prod != nil {
		if err := prod.Close(); err != nil {
			log.Printf("kafka close error: %v", err)
		}
	}

	log.Println("shutdown complete")
}

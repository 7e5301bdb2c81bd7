package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/moviestore/backend/internal/handlers"
	"github.com/moviestore/backend/internal/handlers/cart"
	"github.com/moviestore/backend/internal/handlers/order"
	"github.com/moviestore/backend/internal/handlers/payment"
	auth "github.com/moviestore/backend/internal/middleware/auth"
)

type Deps struct {
	DB             *gorm.DB
	JWTSecret      []byte
	AuthHandler    *handlers.AuthHandler
	UserHandler    *handlers.UserHandler
	MovieHandler   *handlers.MovieHandler
	SearchHandler  *handlers.SearchHandler
	CartHandler    *cart.CartHandler
	OrderHandler   *order.OrderHandler
	PaymentHandler *payment.MercadoPagoHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	login := auth.RequireLogin(d.JWTSecret)
	admin := auth.RequireAdmin(d.JWTSecret)

	api := e.Group("/api")

	api.POST("/auth/registro", d.AuthHandler.Register)
	api.POST("/auth/login", d.AuthHandler.Login)
	api.POST("/auth/logout", d.AuthHandler.LogOut)

	usuarios := api.Group("/usuarios")
	usuarios.GET("/perfil", d.UserHandler.GetProfile, login)
	usuarios.GET("", d.UserHandler.ListUsers, admin)
	usuarios.DELETE("/:id", d.UserHandler.DeactivateUser, admin)

	peliculas := api.Group("/peliculas")
	peliculas.GET("", d.MovieHandler.GetMovies)
	peliculas.GET("/buscar", d.SearchHandler.Search)
	peliculas.GET("/:id", d.MovieHandler.GetMovie)
	peliculas.POST("", d.MovieHandler.CreateMovie, admin)
	peliculas.PATCH("/:id", d.MovieHandler.PatchMovie, admin)
	peliculas.DELETE("/:id", d.MovieHandler.DeleteMovie, admin)

	carrito := api.Group("/carrito", login)
	carrito.GET("", d.CartHandler.GetCart)
	carrito.POST("/agregar", d.CartHandler.AddItem)
	carrito.PUT("/actualizar/:itemId", d.CartHandler.UpdateItem)
	carrito.DELETE("/eliminar/:itemId", d.CartHandler.RemoveItem)
	carrito.POST("/vaciar", d.CartHandler.ClearCart)
	carrito.POST("/checkout", d.CartHandler.CheckoutCart)

	pedidos := api.Group("/pedidos")
	pedidos.GET("/mis-pedidos", d.OrderHandler.MyOrders, login)
	pedidos.GET("/admin/todos", d.OrderHandler.AdminAllOrders, admin)
	pedidos.GET("/admin/:id", d.OrderHandler.AdminGetOrder, admin)
	pedidos.PUT("/admin/:id/estado", d.OrderHandler.AdminUpdateStatus, admin)
	pedidos.GET("/:id", d.OrderHandler.GetOrder, login)

	mp := api.Group("/payments/mercadopago")
	mp.POST("/create-preference", d.PaymentHandler.CreatePreference, login)
	mp.POST("/webhook", d.PaymentHandler.ReceiveWebhook)
}

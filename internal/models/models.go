package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/moviestore/backend/internal/httperr"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// IVA 21%
var TaxRate = decimal.NewFromFloat(0.21)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"not null"                 json:"nombre"`
	Email        string    `gorm:"unique;not null"          json:"email"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	Role         string    `gorm:"not null;default:user"    json:"rol"`
	Active       bool      `gorm:"not null;default:true"    json:"activo"`
	CreatedAt    time.Time `json:"fechaCreacion"`
	UpdatedAt    time.Time `json:"fechaActualizacion"`
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"      json:"id"`
	Token     string    `gorm:"unique;not null" json:"token"`
	UserID    uint      `gorm:"index;not null"  json:"user_id"`
	ExpiresAt time.Time `gorm:"not null"        json:"expires_at"`
	Revoked   bool      `gorm:"default:false"   json:"revoked"`
}

type Movie struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	Title       string          `gorm:"not null;size:200"           json:"titulo"`
	Description string          `gorm:"size:1000"                   json:"descripcion"`
	Director    string          `gorm:"size:100"                    json:"director"`
	Year        int             `json:"anio"`
	DurationMin int             `json:"duracion"`
	Genre       string          `gorm:"size:50"                     json:"genero"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"precio"`
	Stock       int             `gorm:"not null;default:0"          json:"stock"`
	Available   bool            `gorm:"not null;default:true"       json:"disponible"`
	ImageURL    string          `gorm:"size:500"                    json:"imagenUrl"`
	CreatedAt   time.Time       `json:"fechaCreacion"`
	UpdatedAt   time.Time       `json:"fechaActualizacion"`
}

// Address — адрес доставки, встраивается в заказ.
type Address struct {
	Name       string `gorm:"size:100" json:"nombre"`
	Surname    string `gorm:"size:100" json:"apellidos"`
	Email      string `gorm:"size:150" json:"email"`
	Phone      string `gorm:"size:30"  json:"telefono"`
	Street     string `gorm:"size:200" json:"direccion"`
	City       string `gorm:"size:100" json:"ciudad"`
	Province   string `gorm:"size:100" json:"provincia"`
	PostalCode string `gorm:"size:20"  json:"codigoPostal"`
}

type Cart struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	UserID    uint            `gorm:"uniqueIndex;not null"        json:"usuarioId"`
	Items     []CartItem      `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	Tax       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"impuestos"`
	Total     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total"`
	CreatedAt time.Time       `json:"fechaCreacion"`
	UpdatedAt time.Time       `json:"fechaActualizacion"`
}

type CartItem struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	CartID    uint            `gorm:"index;not null"              json:"-"`
	MovieID   uint            `gorm:"not null"                    json:"peliculaId"`
	Quantity  int             `gorm:"not null;check:quantity>0"   json:"cantidad"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"precioUnitario"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"subtotal"`
}

func (i *CartItem) recompute() {
	i.Subtotal = i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity))).Round(2)
}

// AddItem добавляет фильм в корзину. Если фильм уже есть, количество
// складывается, дубликат строки не создаётся. Цена фиксируется на
// момент добавления и дальше с каталогом не сверяется.
func (c *Cart) AddItem(movie *Movie, quantity int) *CartItem {
	if quantity < 1 {
		quantity = 1
	}
	for idx := range c.Items {
		if c.Items[idx].MovieID == movie.ID {
			c.Items[idx].Quantity += quantity
			c.Items[idx].recompute()
			c.RecomputeTotals()
			return &c.Items[idx]
		}
	}
	item := CartItem{
		CartID:    c.ID,
		MovieID:   movie.ID,
		Quantity:  quantity,
		UnitPrice: movie.Price,
	}
	item.recompute()
	c.Items = append(c.Items, item)
	c.RecomputeTotals()
	return &c.Items[len(c.Items)-1]
}

// UpdateItemQuantity меняет количество позиции. Количество <= 0 удаляет
// позицию целиком; удалённая позиция возвращается для очистки строки в БД.
func (c *Cart) UpdateItemQuantity(itemID uint, quantity int) (*CartItem, error) {
	idx := c.itemIndex(itemID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: item %d no encontrado en el carrito", httperr.ErrNotFound, itemID)
	}
	if quantity <= 0 {
		item := c.Items[idx]
		c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
		c.RecomputeTotals()
		return &item, nil
	}
	c.Items[idx].Quantity = quantity
	c.Items[idx].recompute()
	c.RecomputeTotals()
	return nil, nil
}

func (c *Cart) RemoveItem(itemID uint) (*CartItem, error) {
	idx := c.itemIndex(itemID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: item %d no encontrado en el carrito", httperr.ErrNotFound, itemID)
	}
	item := c.Items[idx]
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	c.RecomputeTotals()
	return &item, nil
}

func (c *Cart) Clear() {
	c.Items = nil
	c.RecomputeTotals()
}

// RecomputeTotals пересчитывает суммы из позиций. Сохранённым значениям
// не доверяем: вызывается после каждой мутации.
func (c *Cart) RecomputeTotals() {
	subtotal := decimal.Zero
	for i := range c.Items {
		subtotal = subtotal.Add(c.Items[i].Subtotal)
	}
	c.Subtotal = subtotal.Round(2)
	c.Tax = subtotal.Mul(TaxRate).Round(2)
	c.Total = c.Subtotal.Add(c.Tax)
}

func (c *Cart) FindItem(itemID uint) *CartItem {
	if idx := c.itemIndex(itemID); idx >= 0 {
		return &c.Items[idx]
	}
	return nil
}

func (c *Cart) itemIndex(itemID uint) int {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}

func (c *Cart) TotalItems() int {
	n := 0
	for i := range c.Items {
		n += c.Items[i].Quantity
	}
	return n
}

func (c *Cart) IsEmpty() bool { return len(c.Items) == 0 }

const (
	OrderStatusPending    = "PENDIENTE"
	OrderStatusConfirmed  = "CONFIRMADO"
	OrderStatusProcessing = "PROCESANDO"
	OrderStatusShipped    = "ENVIADO"
	OrderStatusDelivered  = "ENTREGADO"
	OrderStatusCancelled  = "CANCELADO"
	OrderStatusReturned   = "DEVUELTO"
	OrderStatusRejected   = "RECHAZADO"
)

type Order struct {
	ID            uint            `gorm:"primaryKey;autoIncrement"       json:"id"`
	UserID        uint            `gorm:"index;not null"                 json:"usuarioId"`
	Status        string          `gorm:"not null;default:PENDIENTE"     json:"estado"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(10,2);not null"    json:"subtotal"`
	Tax           decimal.Decimal `gorm:"type:decimal(10,2);not null"    json:"impuestos"`
	Total         decimal.Decimal `gorm:"type:decimal(10,2);not null"    json:"total"`
	PaymentMethod string          `gorm:"size:100"                       json:"metodoPago"`
	TransactionID string          `gorm:"size:100"                       json:"transaccionId"`
	Shipping      Address         `gorm:"embedded;embeddedPrefix:envio_" json:"direccionEnvio"`
	Notes         string          `gorm:"size:500"                       json:"notas"`
	Items         []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt     time.Time       `json:"fechaCreacion"`
	UpdatedAt     time.Time       `json:"fechaActualizacion"`
	ConfirmedAt   *time.Time      `json:"fechaConfirmacion"`
	ShippedAt     *time.Time      `json:"fechaEnvio"`
	DeliveredAt   *time.Time      `json:"fechaEntrega"`
}

// OrderItem хранит снимок купленного фильма: название, режиссёр и год
// денормализованы на момент покупки, чтобы правки каталога не меняли
// историю заказа. Цена зафиксирована и из каталога больше не читается.
type OrderItem struct {
	ID            uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	OrderID       uint            `gorm:"index;not null"              json:"-"`
	MovieID       uint            `gorm:"not null"                    json:"peliculaId"`
	Quantity      int             `gorm:"not null"                    json:"cantidad"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"precioUnitario"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	MovieTitle    string          `gorm:"not null;size:200"           json:"tituloPelicula"`
	MovieDirector string          `gorm:"size:100"                    json:"directorPelicula"`
	MovieYear     int             `json:"anioPelicula"`
}

func NewOrderItem(movie *Movie, quantity int) OrderItem {
	item := OrderItem{
		MovieID:       movie.ID,
		Quantity:      quantity,
		UnitPrice:     movie.Price,
		MovieTitle:    movie.Title,
		MovieDirector: movie.Director,
		MovieYear:     movie.Year,
	}
	item.Subtotal = item.UnitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
	return item
}

func (o *Order) IsFinal() bool {
	switch o.Status {
	case OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned:
		return true
	}
	return false
}

func (o *Order) CanBeCancelled() bool {
	switch o.Status {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing:
		return true
	}
	return false
}

func (o *Order) CanBeModified() bool { return o.Status == OrderStatusPending }

// AddItem разрешён только пока заказ в статусе PENDIENTE.
func (o *Order) AddItem(item OrderItem) error {
	if !o.CanBeModified() {
		return fmt.Errorf("%w: el pedido %d ya no es modificable (estado %s)",
			httperr.ErrBadRequest, o.ID, o.Status)
	}
	item.OrderID = o.ID
	o.Items = append(o.Items, item)
	o.RecomputeTotals()
	return nil
}

func (o *Order) RemoveItem(itemID uint) error {
	if !o.CanBeModified() {
		return fmt.Errorf("%w: el pedido %d ya no es modificable (estado %s)",
			httperr.ErrBadRequest, o.ID, o.Status)
	}
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			o.Items = append(o.Items[:i], o.Items[i+1:]...)
			o.RecomputeTotals()
			return nil
		}
	}
	return fmt.Errorf("%w: item %d no encontrado en el pedido", httperr.ErrNotFound, itemID)
}

// RecomputeTotals применяет то же правило 21%, что и корзина.
func (o *Order) RecomputeTotals() {
	subtotal := decimal.Zero
	for i := range o.Items {
		subtotal = subtotal.Add(o.Items[i].Subtotal)
	}
	o.Subtotal = subtotal.Round(2)
	o.Tax = subtotal.Mul(TaxRate).Round(2)
	o.Total = o.Subtotal.Add(o.Tax)
}

func (o *Order) Confirm() error {
	if o.Status != OrderStatusPending {
		return transitionError(o, OrderStatusConfirmed)
	}
	now := time.Now()
	o.Status = OrderStatusConfirmed
	o.ConfirmedAt = &now
	return nil
}

func (o *Order) Ship() error {
	if o.Status != OrderStatusConfirmed && o.Status != OrderStatusProcessing {
		return transitionError(o, OrderStatusShipped)
	}
	now := time.Now()
	o.Status = OrderStatusShipped
	o.ShippedAt = &now
	return nil
}

func (o *Order) Deliver() error {
	if o.Status != OrderStatusShipped {
		return transitionError(o, OrderStatusDelivered)
	}
	now := time.Now()
	o.Status = OrderStatusDelivered
	o.DeliveredAt = &now
	return nil
}

func (o *Order) Cancel() error {
	if !o.CanBeCancelled() {
		return transitionError(o, OrderStatusCancelled)
	}
	o.Status = OrderStatusCancelled
	return nil
}

func transitionError(o *Order, target string) error {
	return fmt.Errorf("%w: transición de estado inválida %s -> %s",
		httperr.ErrBadRequest, o.Status, target)
}

// Package checkout confirms orders: it prices the cart from stored products,
// takes the units out of stock and notifies the store.
package checkout

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/apperror"
	"storefront/internal/metrics"
	"storefront/internal/models"
	"storefront/internal/validation"
)

type OrderRepository interface {
	Insert(ctx context.Context, order *models.Order) error
	SetEmailSent(ctx context.Context, id primitive.ObjectID, sent bool) error
	List(ctx context.Context) ([]models.Order, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type ProductReader interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
}

// Stock is the inventory side of a sale.
type Stock interface {
	Decrement(ctx context.Context, productID primitive.ObjectID, color string, quantity int) (*models.Product, error)
	Restock(ctx context.Context, productID primitive.ObjectID, color string, quantity int) (*models.Product, error)
}

type Notifier interface {
	OrderConfirmed(ctx context.Context, order models.Order) error
}

type CustomerInput struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Phone      string `json:"phone" binding:"required"`
	Address    string `json:"address" binding:"required"`
	City       string `json:"city" binding:"required"`
	PostalCode string `json:"postal_code" binding:"required"`
	Note       string `json:"note" binding:"max=500"`
}

type ItemInput struct {
	ProductID string `json:"product_id" binding:"required"`
	Color     string `json:"color" binding:"required"`
	Quantity  int    `json:"quantity" binding:"gt=0"`
}

type Request struct {
	Customer      CustomerInput `json:"customer"`
	PaymentMethod string        `json:"payment_method" binding:"required,max=40"`
	Items         []ItemInput   `json:"items" binding:"required,min=1,dive"`
}

const notifyTimeout = 15 * time.Second

type Service struct {
	products ProductReader
	stock    Stock
	orders   OrderRepository
	notifier Notifier
	metrics  *metrics.AppMetrics
	now      func() time.Time
}

func NewService(products ProductReader, stock Stock, orders OrderRepository, notifier Notifier, m *metrics.AppMetrics) *Service {
	return &Service{
		products: products,
		stock:    stock,
		orders:   orders,
		notifier: notifier,
		metrics:  m,
		now:      time.Now,
	}
}

type line struct {
	productID primitive.ObjectID
	color     string
	quantity  int
}

// Confirm validates the request, decrements stock once per distinct
// (product, color) line and records the order. When a decrement fails the
// lines already taken are put back and the error is returned. The
// confirmation email is best-effort.
func (s *Service) Confirm(ctx context.Context, req Request, userID *primitive.ObjectID) (*models.Order, error) {
	req = trimRequest(req)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	lines, err := mergeLines(req.Items)
	if err != nil {
		return nil, err
	}

	items, total, err := s.price(ctx, lines)
	if err != nil {
		return nil, err
	}

	taken := make([]line, 0, len(lines))
	for _, l := range lines {
		if _, err := s.stock.Decrement(ctx, l.productID, l.color, l.quantity); err != nil {
			log.Printf("[ORDER] [WARN] decrement failed product=%s color=%q qty=%d: %v",
				l.productID.Hex(), l.color, l.quantity, err)
			s.restock(ctx, taken)
			return nil, err
		}
		taken = append(taken, l)
	}

	now := s.now().UTC()
	order := &models.Order{
		ID:     primitive.NewObjectID(),
		Number: orderNumber(now),
		UserID: userID,
		Items:  items,
		Total:  total,
		Customer: models.OrderCustomer{
			Name:       req.Customer.Name,
			Email:      req.Customer.Email,
			Phone:      req.Customer.Phone,
			Address:    req.Customer.Address,
			City:       req.Customer.City,
			PostalCode: req.Customer.PostalCode,
			Note:       req.Customer.Note,
		},
		PaymentMethod: req.PaymentMethod,
		Status:        models.OrderStatusConfirmed,
		CreatedAt:     now,
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		log.Printf("[ORDER] [ERROR] insert order #%s failed: %v", order.Number, err)
		s.restock(ctx, taken)
		return nil, err
	}
	log.Printf("[ORDER] [INFO] order #%s confirmed lines=%d total=%.2f", order.Number, len(order.Items), order.Total)

	order.EmailSent = s.notify(ctx, *order)
	s.metrics.RecordOrderConfirmed(ctx, order.Total, order.EmailSent)
	return order, nil
}

func (s *Service) List(ctx context.Context) ([]models.Order, error) {
	return s.orders.List(ctx)
}

func (s *Service) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := s.orders.Delete(ctx, id); err != nil {
		return err
	}
	log.Println("[ORDER] [INFO] deleted:", id.Hex())
	return nil
}

// price reads each product once and computes line totals in decimal.
func (s *Service) price(ctx context.Context, lines []line) ([]models.OrderItem, float64, error) {
	items := make([]models.OrderItem, 0, len(lines))
	total := decimal.Zero
	cache := make(map[primitive.ObjectID]*models.Product, len(lines))

	for _, l := range lines {
		product, ok := cache[l.productID]
		if !ok {
			found, err := s.products.FindByID(ctx, l.productID)
			if err != nil {
				return nil, 0, err
			}
			if found.Status != models.StatusActive {
				return nil, 0, apperror.NotFound("product not found").WithDetail("product_id", l.productID.Hex())
			}
			product = found
			cache[l.productID] = found
		}

		unit := decimal.NewFromFloat(product.CurrentPrice).Round(2)
		lineTotal := unit.Mul(decimal.NewFromInt(int64(l.quantity)))
		total = total.Add(lineTotal)

		items = append(items, models.OrderItem{
			ProductID: l.productID,
			Name:      product.Name,
			Color:     l.color,
			UnitPrice: unit.InexactFloat64(),
			Quantity:  l.quantity,
			LineTotal: lineTotal.InexactFloat64(),
		})
	}
	return items, total.Round(2).InexactFloat64(), nil
}

func (s *Service) restock(ctx context.Context, taken []line) {
	for _, l := range taken {
		if _, err := s.stock.Restock(ctx, l.productID, l.color, l.quantity); err != nil {
			log.Printf("[ORDER] [ERROR] restock failed product=%s color=%q qty=%d: %v",
				l.productID.Hex(), l.color, l.quantity, err)
		}
	}
}

// notify sends the confirmation and reports whether it went out. The order
// is already stored, so failures are only logged.
func (s *Service) notify(ctx context.Context, order models.Order) bool {
	mailCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	if err := s.notifier.OrderConfirmed(mailCtx, order); err != nil {
		log.Printf("[ORDER] [WARN] confirmation email for #%s not sent: %v", order.Number, err)
		return false
	}
	if err := s.orders.SetEmailSent(mailCtx, order.ID, true); err != nil {
		log.Printf("[ORDER] [WARN] could not mark #%s as emailed: %v", order.Number, err)
	}
	return true
}

// mergeLines folds repeated (product, color) pairs into one line, keeping
// the order in which they first appeared.
func mergeLines(items []ItemInput) ([]line, error) {
	lines := make([]line, 0, len(items))
	index := make(map[string]int, len(items))

	for i, item := range items {
		productID, err := primitive.ObjectIDFromHex(item.ProductID)
		if err != nil {
			return nil, apperror.Validation(fmt.Sprintf("items[%d].product_id is invalid", i)).
				WithDetail("index", i)
		}
		key := productID.Hex() + "\x00" + item.Color
		if at, ok := index[key]; ok {
			lines[at].quantity += item.Quantity
			continue
		}
		index[key] = len(lines)
		lines = append(lines, line{productID: productID, color: item.Color, quantity: item.Quantity})
	}
	return lines, nil
}

func trimRequest(req Request) Request {
	c := &req.Customer
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Address = strings.TrimSpace(c.Address)
	c.City = strings.TrimSpace(c.City)
	c.PostalCode = strings.TrimSpace(c.PostalCode)
	c.Note = strings.TrimSpace(c.Note)
	req.PaymentMethod = strings.TrimSpace(req.PaymentMethod)

	items := make([]ItemInput, len(req.Items))
	for i, item := range req.Items {
		items[i] = ItemInput{
			ProductID: strings.TrimSpace(item.ProductID),
			Color:     strings.TrimSpace(item.Color),
			Quantity:  item.Quantity,
		}
	}
	req.Items = items
	return req
}

// orderNumber is the last six digits of the millisecond clock.
func orderNumber(now time.Time) string {
	return fmt.Sprintf("%06d", now.UnixMilli()%1000000)
}

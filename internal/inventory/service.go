package inventory

import (
	"context"
	"log"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/apperror"
	"storefront/internal/metrics"
	"storefront/internal/models"
)

// Store is the persistence the stock operations need. DecrementColorStock
// and IncrementColorStock must be single conditional updates on one document
// and report whether a document matched.
type Store interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	DecrementColorStock(ctx context.Context, id primitive.ObjectID, color string, quantity int) (bool, error)
	IncrementColorStock(ctx context.Context, id primitive.ObjectID, color string, quantity int) (bool, error)
	// RefreshAvailability recomputes the available flag from the stored
	// colors and returns the document after the write.
	RefreshAvailability(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
}

type Service struct {
	store   Store
	metrics *metrics.AppMetrics
}

func NewService(store Store, m *metrics.AppMetrics) *Service {
	return &Service{store: store, metrics: m}
}

// Decrement removes quantity units of color from sellable stock. The stock
// update and the availability refresh are two writes; the refresh always
// runs after the decrement has committed.
func (s *Service) Decrement(ctx context.Context, productID primitive.ObjectID, color string, quantity int) (*models.Product, error) {
	product, err := s.decrement(ctx, productID, color, quantity)
	s.metrics.RecordStockDecrement(ctx, decrementOutcome(err), quantity)
	return product, err
}

func (s *Service) decrement(ctx context.Context, productID primitive.ObjectID, color string, quantity int) (*models.Product, error) {
	if quantity <= 0 {
		return nil, apperror.InvalidArgument("quantity must be a positive integer")
	}

	matched, err := s.store.DecrementColorStock(ctx, productID, color, quantity)
	if err != nil {
		log.Printf("[STOCK] [ERROR] decrement product=%s color=%q: %v", productID.Hex(), color, err)
		return nil, err
	}
	if !matched {
		return nil, s.explainMiss(ctx, productID, color, quantity)
	}

	product, err := s.store.RefreshAvailability(ctx, productID)
	if err != nil {
		log.Printf("[STOCK] [ERROR] availability refresh after decrement product=%s: %v", productID.Hex(), err)
		return nil, errors.Wrap(err, "refresh availability")
	}

	log.Printf("[STOCK] [INFO] decremented product=%s color=%q by %d, available=%t", productID.Hex(), color, quantity, product.Available)
	return product, nil
}

// Restock returns quantity units of color to sellable stock. Checkout uses it
// to undo decrements of an order that could not be completed.
func (s *Service) Restock(ctx context.Context, productID primitive.ObjectID, color string, quantity int) (*models.Product, error) {
	if quantity <= 0 {
		return nil, apperror.InvalidArgument("quantity must be a positive integer")
	}

	matched, err := s.store.IncrementColorStock(ctx, productID, color, quantity)
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, s.explainMiss(ctx, productID, color, quantity)
	}

	product, err := s.store.RefreshAvailability(ctx, productID)
	if err != nil {
		return nil, errors.Wrap(err, "refresh availability")
	}

	log.Printf("[STOCK] [INFO] restocked product=%s color=%q by %d", productID.Hex(), color, quantity)
	return product, nil
}

// explainMiss reads the product back to say why a conditional update matched
// nothing. The read is only used for the error; nothing is written.
func (s *Service) explainMiss(ctx context.Context, productID primitive.ObjectID, color string, quantity int) error {
	product, err := s.store.FindByID(ctx, productID)
	if err != nil {
		return err
	}

	variant, ok := FindColor(product.Colors, color)
	if !ok {
		return apperror.Newf(apperror.KindNotFound, "color %q not found on product", color).
			WithDetail("color", color)
	}

	return apperror.Newf(apperror.KindInsufficientStock, "insufficient stock for color %q", color).
		WithDetail("color", color).
		WithDetail("requested", quantity).
		WithDetail("available", variant.Stock)
}

func decrementOutcome(err error) string {
	switch apperror.KindOf(err) {
	case "":
		return metrics.OutcomeOK
	case apperror.KindInsufficientStock:
		return metrics.OutcomeInsufficientStock
	case apperror.KindNotFound:
		return metrics.OutcomeNotFound
	case apperror.KindInvalidArgument:
		return metrics.OutcomeInvalidArgument
	default:
		return metrics.OutcomeError
	}
}

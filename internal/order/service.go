package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-payanyway/internal/logger"
	"ms-payanyway/internal/models"
)

var ErrOrderNotPayable = errors.New("order cannot be marked as paid")

type DBLayer interface {
	GetOrderByGUID(ctx context.Context, guid string) (*models.Order, error)
	UpdateOrder(ctx context.Context, order models.Order) error
	InsertOrderNote(ctx context.Context, note models.OrderNote) error
	GetOrderNotes(ctx context.Context, orderID string) ([]models.OrderNote, error)
}

type KafkaPublisher interface {
	PublishOrderPaid(order models.Order) error
}

type Service struct {
	DB    DBLayer
	Kafka KafkaPublisher
	Log   *logger.Logger
}

func NewService(db DBLayer, kafka KafkaPublisher, log *logger.Logger) *Service {
	return &Service{DB: db, Kafka: kafka, Log: log}
}

func (s *Service) GetOrderByGUID(ctx context.Context, guid string) (*models.Order, error) {
	return s.DB.GetOrderByGUID(ctx, guid)
}

func (s *Service) InsertOrderNote(ctx context.Context, note models.OrderNote) error {
	return s.DB.InsertOrderNote(ctx, note)
}

func (s *Service) GetOrderNotes(ctx context.Context, orderID string) ([]models.OrderNote, error) {
	return s.DB.GetOrderNotes(ctx, orderID)
}

// CanMarkPaid reports whether the pay transition is still open for the order.
// An already-paid or cancelled order returns false, which callers treat as an
// idempotent no-op rather than an error.
func (s *Service) CanMarkPaid(order *models.Order) bool {
	if order == nil {
		return false
	}
	return order.PaymentStatus == models.PaymentPending && order.Status != models.OrderCancelled
}

// MarkPaid performs the Pending -> Paid transition and publishes the paid
// event. Callers gate it behind CanMarkPaid; a second call for the same order
// fails the guard here too, so concurrent retries stay at-most-once-effective
// together with the conditional update below.
func (s *Service) MarkPaid(ctx context.Context, order *models.Order) error {
	if !s.CanMarkPaid(order) {
		return ErrOrderNotPayable
	}

	order.PaymentStatus = models.PaymentPaid
	order.Status = models.OrderCompleted
	order.PaidAt = time.Now().UTC()

	if err := s.DB.UpdateOrder(ctx, *order); err != nil {
		return fmt.Errorf("failed to mark order %s as paid: %w", order.OrderID, err)
	}

	s.Log.LogPayment("MARK_PAID", order.OrderID, fmt.Sprintf("order total %.2f marked as paid", order.Total))

	if s.Kafka != nil {
		if err := s.Kafka.PublishOrderPaid(*order); err != nil {
			s.Log.Warn("KAFKA", fmt.Sprintf("failed to publish order paid event for %s: %v", order.OrderID, err))
		}
	}

	return nil
}

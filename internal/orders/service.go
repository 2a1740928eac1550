// Package orders accepts product sample orders and forwards them by email.
package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pafrisco/clinic-booking/internal/notify"
	"github.com/pafrisco/clinic-booking/pkg/logging"
)

// SampleRequest is the body of a sample order.
type SampleRequest struct {
	ProductCode     string `json:"productCode"`
	ProductName     string `json:"productName"`
	Type            string `json:"type"`
	CustomerName    string `json:"customerName"`
	CustomerEmail   string `json:"customerEmail"`
	CustomerPhone   string `json:"customerPhone"`
	ShippingAddress string `json:"shippingAddress"`
}

// ValidationError lists the required fields missing from a request.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Missing, ", ")
}

// Validate reports every missing required field at once.
func (r SampleRequest) Validate() error {
	var missing []string
	check := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	check("productCode", r.ProductCode)
	check("productName", r.ProductName)
	check("type", r.Type)
	check("customerName", r.CustomerName)
	check("customerEmail", r.CustomerEmail)
	check("customerPhone", r.CustomerPhone)
	check("shippingAddress", r.ShippingAddress)
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// Confirmation is returned once the order reached the inbox.
type Confirmation struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	OrderID string `json:"orderId"`
}

// Notifier delivers orders.
type Notifier interface {
	SendToInbox(ctx context.Context, o notify.SampleOrder) error
	SendReceipt(ctx context.Context, o notify.SampleOrder) error
}

// Service handles sample orders.
type Service struct {
	notifier Notifier
	logger   *logging.Logger
	newID    func() string
}

func NewService(notifier Notifier, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{notifier: notifier, logger: logger, newID: uuid.NewString}
}

// ErrDeliveryFailed wraps failures to reach the orders inbox.
var ErrDeliveryFailed = errors.New("orders: delivery failed")

// SubmitSample validates req, emails it to the orders inbox and sends the
// customer a receipt. A receipt failure is logged and does not fail the order.
func (s *Service) SubmitSample(ctx context.Context, req SampleRequest) (*Confirmation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if s.notifier == nil {
		return nil, fmt.Errorf("%w: notifier not configured", ErrDeliveryFailed)
	}

	order := notify.SampleOrder{
		OrderID:         s.newID(),
		ProductCode:     strings.TrimSpace(req.ProductCode),
		ProductName:     strings.TrimSpace(req.ProductName),
		Type:            strings.TrimSpace(req.Type),
		CustomerName:    strings.TrimSpace(req.CustomerName),
		CustomerEmail:   strings.TrimSpace(req.CustomerEmail),
		CustomerPhone:   strings.TrimSpace(req.CustomerPhone),
		ShippingAddress: strings.TrimSpace(req.ShippingAddress),
	}

	if err := s.notifier.SendToInbox(ctx, order); err != nil {
		s.logger.Error("sample order delivery failed", "order_id", order.OrderID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	if err := s.notifier.SendReceipt(ctx, order); err != nil {
		s.logger.Warn("sample order receipt failed", "order_id", order.OrderID, "error", err)
	}

	s.logger.Info("sample order accepted", "order_id", order.OrderID, "product_code", order.ProductCode)
	return &Confirmation{
		Success: true,
		Message: "Sample order received. We will be in touch shortly.",
		OrderID: order.OrderID,
	}, nil
}

package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/pafrisco/clinic-booking/pkg/logging"
)

// SampleOrder is the order summary sent to the orders inbox and the customer.
type SampleOrder struct {
	OrderID         string
	ProductCode     string
	ProductName     string
	Type            string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	ShippingAddress string
}

// OrderNotifier emails sample orders.
type OrderNotifier struct {
	sender     EmailSender
	inbox      string
	clinicName string
	logger     *logging.Logger
}

func NewOrderNotifier(sender EmailSender, inbox, clinicName string, logger *logging.Logger) *OrderNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	if clinicName == "" {
		clinicName = DefaultFromName
	}
	return &OrderNotifier{
		sender:     sender,
		inbox:      strings.TrimSpace(inbox),
		clinicName: clinicName,
		logger:     logger,
	}
}

type orderView struct {
	SampleOrder
	ClinicName string
}

// SendToInbox emails the order to the orders inbox with reply-to set to the customer.
func (n *OrderNotifier) SendToInbox(ctx context.Context, o SampleOrder) error {
	if n.inbox == "" {
		return ErrNoRecipient
	}
	if n.sender == nil {
		return fmt.Errorf("notify: email sender not configured")
	}
	view := orderView{SampleOrder: o, ClinicName: n.clinicName}
	html, err := renderHTML(orderInboxHTMLTmpl, view)
	if err != nil {
		return err
	}
	text, err := renderText(orderInboxTextTmpl, view)
	if err != nil {
		return err
	}
	err = n.sender.Send(ctx, EmailMessage{
		To:       n.inbox,
		ReplyTo:  o.CustomerEmail,
		Subject:  fmt.Sprintf("Sample order: %s for %s", o.ProductName, o.CustomerName),
		Body:     text,
		HTML:     html,
		Category: CategorySampleOrder,
	})
	if err != nil {
		return fmt.Errorf("notify: send order %s: %w", o.OrderID, err)
	}
	n.logger.Info("sample order sent to inbox", "order_id", o.OrderID, "product_code", o.ProductCode)
	return nil
}

// SendReceipt emails a plain-text receipt to the customer.
func (n *OrderNotifier) SendReceipt(ctx context.Context, o SampleOrder) error {
	to := strings.TrimSpace(o.CustomerEmail)
	if to == "" {
		return ErrNoRecipient
	}
	if n.sender == nil {
		return fmt.Errorf("notify: email sender not configured")
	}
	text, err := renderText(orderReceiptTextTmpl, orderView{SampleOrder: o, ClinicName: n.clinicName})
	if err != nil {
		return err
	}
	if err := n.sender.Send(ctx, EmailMessage{
		To:       to,
		ToName:   o.CustomerName,
		Subject:  fmt.Sprintf("We received your sample request (%s)", o.OrderID),
		Body:     text,
		Category: CategorySampleReceipt,
	}); err != nil {
		return fmt.Errorf("notify: send receipt %s: %w", o.OrderID, err)
	}
	return nil
}

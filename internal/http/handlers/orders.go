package handlers

import (
	"errors"
	"net/http"

	"github.com/pafrisco/clinic-booking/internal/orders"
	"github.com/pafrisco/clinic-booking/pkg/logging"
)

// OrdersHandler accepts product sample orders.
type OrdersHandler struct {
	service *orders.Service
	logger  *logging.Logger
}

func NewOrdersHandler(svc *orders.Service, logger *logging.Logger) *OrdersHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &OrdersHandler{service: svc, logger: logger}
}

// SampleOrder handles POST /api/order/sample.
func (h *OrdersHandler) SampleOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.SampleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	conf, err := h.service.SubmitSample(r.Context(), req)
	var verr *orders.ValidationError
	switch {
	case errors.As(err, &verr):
		jsonError(w, verr.Error(), http.StatusBadRequest)
		return
	case err != nil:
		jsonError(w, "Failed to send order email", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, conf)
}

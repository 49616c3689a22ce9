package handlers

import (
	"net/http"
	"strconv"

	paymentssvc "github.com/kirosamy12/otrade-backend/internal/services/payments"
	"github.com/kirosamy12/otrade-backend/internal/transport/http/dto"
	httperrors "github.com/kirosamy12/otrade-backend/internal/transport/http/errors"
)

type AdminPaymentsHandler struct {
	payments *paymentssvc.Service
}

func NewAdminPaymentsHandler(payments *paymentssvc.Service) *AdminPaymentsHandler {
	return &AdminPaymentsHandler{payments: payments}
}

func (h *AdminPaymentsHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	if h.payments == nil {
		writeInternal(w, "PAYMENTS_SERVICE_UNAVAILABLE", "payments service is unavailable")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeBadRequest(w, "VALIDATION_ERROR", "limit must be an integer")
			return
		}
		limit = parsed
	}

	records, err := h.payments.ListRecent(r.Context(), limit)
	if err != nil {
		handlePaymentError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.PaymentListFromRecords(records))
}

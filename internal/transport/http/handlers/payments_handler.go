package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	authsvc "github.com/kirosamy12/otrade-backend/internal/services/auth"
	paymentssvc "github.com/kirosamy12/otrade-backend/internal/services/payments"
	"github.com/kirosamy12/otrade-backend/internal/transport/http/dto"
	httperrors "github.com/kirosamy12/otrade-backend/internal/transport/http/errors"
)

type PaymentsHandler struct {
	service *paymentssvc.Service
	logger  *zap.Logger
}

func NewPaymentsHandler(service *paymentssvc.Service, logger *zap.Logger) *PaymentsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentsHandler{service: service, logger: logger}
}

func (h *PaymentsHandler) Init(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "PAYMENTS_SERVICE_UNAVAILABLE", "payments service is unavailable")
		return
	}

	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	userID, err := uuid.Parse(identity.SubjectID)
	if err != nil {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}

	var req dto.InitPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	planID, err := uuid.Parse(req.PlanID)
	if err != nil {
		writeNotFound(w, "PLAN_NOT_FOUND", "plan not found")
		return
	}

	res, err := h.service.Init(r.Context(), userID, planID, req.SubscriptionType)
	if err != nil {
		handlePaymentError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.InitPaymentResponseFrom(res, planID.String()))
}

func (h *PaymentsHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "PAYMENTS_SERVICE_UNAVAILABLE", "payments service is unavailable")
		return
	}

	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	userID, err := uuid.Parse(identity.SubjectID)
	if err != nil {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}

	var req dto.VerifyPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	paymentID, err := uuid.Parse(req.PaymentID)
	if err != nil {
		writeNotFound(w, "PAYMENT_NOT_FOUND", "payment not found")
		return
	}

	res, err := h.service.Verify(r.Context(), userID, paymentID, req.ProcessorCode)
	if err != nil {
		h.logVerifyFailure(paymentID, userID, err)
		handlePaymentError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.VerifyPaymentResponseFrom(res))
}

// Callback handles the processor's server-to-server notification. The
// processor retries on non-200 responses, so every decodable notification
// answers 200: unknown or malformed payment ids are acknowledged with an
// error marker in the body instead of a retryable status code.
func (h *PaymentsHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "PAYMENTS_SERVICE_UNAVAILABLE", "payments service is unavailable")
		return
	}

	var req dto.PaymentCallbackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	paymentID, err := uuid.Parse(req.PaymentID)
	if err != nil {
		httperrors.Write(w, http.StatusOK, dto.PaymentCallbackResponse{
			PaymentID: req.PaymentID,
			Status:    dto.CallbackStatusUnknown,
		})
		return
	}

	res, err := h.service.HandleCallback(r.Context(), paymentssvc.CallbackInput{
		PaymentID:      paymentID,
		ResponseStatus: req.ResponseStatus,
		StatusTag:      req.StatusTag,
		TransactionID:  req.TransactionID,
		IsTest:         req.IsTest,
	})
	if err != nil {
		if errors.Is(err, paymentssvc.ErrPaymentNotFound) {
			httperrors.Write(w, http.StatusOK, dto.PaymentCallbackResponse{
				PaymentID: paymentID.String(),
				Status:    dto.CallbackStatusUnknown,
			})
			return
		}
		h.logger.Error("payment callback activation failed",
			zap.String("payment_id", paymentID.String()),
			zap.String("transaction_id", req.TransactionID),
			zap.Error(err))
		httperrors.Write(w, http.StatusOK, dto.PaymentCallbackResponse{
			PaymentID: paymentID.String(),
			Status:    paymentssvc.StatusPending,
		})
		return
	}

	httperrors.Write(w, http.StatusOK, dto.PaymentCallbackResponse{
		PaymentID: res.PaymentID.String(),
		Status:    res.Status,
	})
}

func (h *PaymentsHandler) logVerifyFailure(paymentID, userID uuid.UUID, err error) {
	if errors.Is(err, paymentssvc.ErrPaymentNotFound) || errors.Is(err, paymentssvc.ErrAlreadyFinalized) {
		return
	}
	h.logger.Error("payment verification failed",
		zap.String("payment_id", paymentID.String()),
		zap.String("user_id", userID.String()),
		zap.Error(err))
}

func handlePaymentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, paymentssvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "request validation failed")
	case errors.Is(err, paymentssvc.ErrPlanNotFound):
		writeNotFound(w, "PLAN_NOT_FOUND", "plan not found")
	case errors.Is(err, paymentssvc.ErrUserNotFound):
		writeNotFound(w, "USER_NOT_FOUND", "user not found")
	case errors.Is(err, paymentssvc.ErrPaymentNotFound):
		writeNotFound(w, "PAYMENT_NOT_FOUND", "payment not found")
	case errors.Is(err, paymentssvc.ErrAlreadyFinalized):
		writeConflict(w, "ALREADY_FINALIZED", "payment is already finalized")
	case errors.Is(err, paymentssvc.ErrProcessorFailure):
		httperrors.Write(w, http.StatusBadGateway, httperrors.APIError{
			Code:    "PROCESSOR_UNAVAILABLE",
			Message: "payment processor is unavailable",
		})
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}

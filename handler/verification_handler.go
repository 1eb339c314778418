package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Aashish23092/payslip-verification/dto"
	"github.com/Aashish23092/payslip-verification/validation"
)

// BatchVerifier is the service behind the verification endpoint.
type BatchVerifier interface {
	VerifyBatch(ctx context.Context, req *dto.VerifyBatchRequest) (*dto.VerificationReport, error)
}

type VerificationHandler struct {
	service      BatchVerifier
	logger       *zap.Logger
	maxDocuments int
}

func NewVerificationHandler(service BatchVerifier, logger *zap.Logger, maxDocuments int) *VerificationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerificationHandler{
		service:      service,
		logger:       logger,
		maxDocuments: maxDocuments,
	}
}

// RegisterRoutes mounts the handler under /api/v1/income.
func (h *VerificationHandler) RegisterRoutes(r gin.IRouter) {
	income := r.Group("/api/v1/income")
	income.POST("/verify", h.VerifyIncome)
}

// VerifyIncome handles the POST /api/v1/income/verify endpoint
func (h *VerificationHandler) VerifyIncome(c *gin.Context) {
	var req dto.VerifyBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err)
		return
	}

	if err := req.Validate(h.maxDocuments); err != nil {
		h.sendError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), err)
		return
	}

	if err := validation.ValidateStruct(&req); err != nil {
		var verr *validation.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:   "VALIDATION_FAILED",
				Message: "Validation failed",
				Code:    http.StatusBadRequest,
				Fields:  verr.Errors,
			})
			return
		}
		h.sendError(c, http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed", err)
		return
	}

	h.logger.Info("Received income verification request",
		zap.String("request_id", GetRequestID(c)),
		zap.String("claimant_id", req.ClaimantID),
		zap.Int("documents", len(req.Documents)),
	)

	report, err := h.service.VerifyBatch(c.Request.Context(), &req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, dto.ErrEmptyBatch) || errors.Is(err, dto.ErrTooManyDocuments) {
			status = http.StatusBadRequest
		}
		h.sendError(c, status, "VERIFICATION_FAILED", "Failed to verify income", err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// sendError sends a structured error response
func (h *VerificationHandler) sendError(c *gin.Context, statusCode int, code, message string, err error) {
	errorMsg := message
	if err != nil {
		errorMsg = err.Error()
		_ = c.Error(err)
		h.logger.Warn(message,
			zap.String("request_id", GetRequestID(c)),
			zap.Int("status", statusCode),
			zap.Error(err),
		)
	}

	c.JSON(statusCode, dto.ErrorResponse{
		Error:   code,
		Message: errorMsg,
		Code:    statusCode,
	})
}

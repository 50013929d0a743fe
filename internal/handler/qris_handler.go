package handler

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/skynestoffc/orderku/internal/qris"
	"github.com/skynestoffc/orderku/internal/service"
)

type QRISHandler struct {
	paymentService service.PaymentService
	validate       *validator.Validate
}

func NewQRISHandler(paymentService service.PaymentService) *QRISHandler {
	return &QRISHandler{
		paymentService: paymentService,
		validate:       validator.New(),
	}
}

type generateRequest struct {
	Username   string `json:"username" validate:"required"`
	Token      string `json:"token" validate:"required"`
	QRISStatic string `json:"qris_static" validate:"required"`
	Amount     int64  `json:"amount" validate:"required,gt=0"`
}

// Generate handles POST /api/qris/generate
func (h *QRISHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "MISSING_PARAMS", "username, token, qris_static and a positive amount are required")
		return
	}

	result, err := h.paymentService.GeneratePayment(r.Context(), req.Username, req.QRISStatic, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAmount):
			writeError(w, http.StatusBadRequest, "INVALID_AMOUNT", err.Error())
		case errors.Is(err, qris.ErrMalformedCode):
			writeError(w, http.StatusBadRequest, "INVALID_QRIS", err.Error())
		case errors.Is(err, service.ErrSuffixExhausted):
			writeError(w, http.StatusConflict, "SUFFIX_EXHAUSTED", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "GENERATE_ERROR", err.Error())
		}
		return
	}

	writeSuccess(w, result)
}

type checkRequest struct {
	Username      string `json:"username" validate:"required"`
	Token         string `json:"token" validate:"required"`
	TransactionID string `json:"transaction_id" validate:"required"`
}

// Check handles POST /api/qris/check
func (h *QRISHandler) Check(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "MISSING_PARAMS", "username, token and transaction_id required")
		return
	}

	result, err := h.paymentService.CheckPayment(r.Context(), req.Username, req.Token, req.TransactionID)
	if err != nil {
		if errors.Is(err, service.ErrFeedUnavailable) {
			writeError(w, http.StatusBadGateway, "FEED_UNAVAILABLE", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "CHECK_ERROR", err.Error())
		return
	}

	writeSuccess(w, result)
}

type imageRequest struct {
	QRISString string `json:"qris_string" validate:"required"`
	Size       int    `json:"size"`
}

// Image handles POST /api/qris/image
func (h *QRISHandler) Image(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req imageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "MISSING_PARAMS", "qris_string is required")
		return
	}

	size := req.Size
	if size == 0 {
		size = 300
	}
	if size < 100 {
		size = 100
	}
	if size > 1000 {
		size = 1000
	}

	png, err := qrcode.Encode(req.QRISString, qrcode.Medium, size)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "IMAGE_ERROR", err.Error())
		return
	}

	writeSuccess(w, map[string]interface{}{
		"qr_image": "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		"size":     size,
		"format":   "png",
	})
}

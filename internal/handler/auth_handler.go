package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/skynestoffc/orderku/internal/service"
)

// AuthHandler proxies the OrderKuota two-step login (OTP then token).
type AuthHandler struct {
	okClient service.OrderKuotaClient
	validate *validator.Validate
}

func NewAuthHandler(okClient service.OrderKuotaClient) *AuthHandler {
	return &AuthHandler{
		okClient: okClient,
		validate: validator.New(),
	}
}

type otpRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RequestOTP handles POST /api/auth/otp
func (h *AuthHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req otpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "MISSING_PARAMS", "username and password required")
		return
	}

	result, err := h.okClient.RequestOTP(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "OTP_ERROR", err.Error())
		return
	}

	writeSuccess(w, result)
}

type tokenRequest struct {
	Username string `json:"username" validate:"required"`
	OTP      string `json:"otp" validate:"required"`
}

// GetToken handles POST /api/auth/token
func (h *AuthHandler) GetToken(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "MISSING_PARAMS", "username and otp required")
		return
	}

	result, err := h.okClient.GetToken(r.Context(), req.Username, req.OTP)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "TOKEN_ERROR", err.Error())
		return
	}

	writeSuccess(w, result)
}

package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/skynestoffc/orderku/internal/service"
)

type AccountHandler struct {
	okClient service.OrderKuotaClient
	validate *validator.Validate
}

func NewAccountHandler(okClient service.OrderKuotaClient) *AccountHandler {
	return &AccountHandler{
		okClient: okClient,
		validate: validator.New(),
	}
}

type balanceRequest struct {
	Username string `json:"username" validate:"required"`
	Token    string `json:"token" validate:"required"`
}

// Balance handles POST /api/account/balance
func (h *AccountHandler) Balance(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req balanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "MISSING_PARAMS", "username and token required")
		return
	}

	balance, err := h.okClient.GetBalance(r.Context(), req.Username, req.Token)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "BALANCE_ERROR", err.Error())
		return
	}

	writeSuccess(w, balance)
}

// Health handles GET /api/health
func Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET allowed")
		return
	}

	writeSuccess(w, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}

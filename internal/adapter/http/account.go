package httpadapter

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"crowdfund-escrow/internal/core/domain"
)

type balanceResponse struct {
	Identity string `json:"identity"`
	Balance  int64  `json:"balance"`
}

// handleAccountBalance returns the total paid out to an account.
func (h *Handler) handleAccountBalance(w http.ResponseWriter, r *http.Request) {
	account, err := domain.ParseIdentity(chi.URLParam(r, "identity"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	balance, err := h.svc.AccountBalance(r.Context(), account)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Identity: string(account), Balance: int64(balance)})
}

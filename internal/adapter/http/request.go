package httpadapter

import (
	"net/http"
	"time"

	"crowdfund-escrow/internal/core/domain"
	"crowdfund-escrow/internal/core/port"
)

type createRequestBody struct {
	Description string `json:"description"`
	Value       int64  `json:"value"`
	Recipient   string `json:"recipient"`
}

type createRequestResponse struct {
	Index int `json:"index"`
}

type requestResponse struct {
	Index         int       `json:"index"`
	Description   string    `json:"description"`
	Value         int64     `json:"value"`
	Recipient     string    `json:"recipient"`
	Complete      bool      `json:"complete"`
	ApprovalCount int64     `json:"approval_count"`
	CreatedAt     time.Time `json:"created_at"`
}

type requestListResponse struct {
	Requests []requestResponse `json:"requests"`
}

func toRequestResponse(r domain.Request) requestResponse {
	return requestResponse{
		Index:         r.Index,
		Description:   r.Description,
		Value:         int64(r.Value),
		Recipient:     string(r.Recipient),
		Complete:      r.Complete,
		ApprovalCount: r.ApprovalCount,
		CreatedAt:     r.CreatedAt,
	}
}

// handleCreateRequest proposes a payout. Only the campaign manager may call
// it; anyone else gets 403. Responds 201 with the new request index.
func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	caller, _ := Caller(r.Context())
	id, err := campaignID(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	var body createRequestBody
	if err = decodeJSON(r, &body); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	recipient, err := domain.ParseIdentity(body.Recipient)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	idx, err := h.svc.CreateRequest(r.Context(), id, caller, port.CreateRequestReq{
		Description: body.Description,
		Value:       domain.Amount(body.Value),
		Recipient:   recipient,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createRequestResponse{Index: idx})
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	reqs, err := h.svc.Requests(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := requestListResponse{Requests: make([]requestResponse, 0, len(reqs))}
	for _, req := range reqs {
		out.Requests = append(out.Requests, toRequestResponse(req))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	idx, err := requestIndex(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	req, err := h.svc.Request(r.Context(), id, idx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponse(*req))
}

// handleApproveRequest records the caller's vote. Callers who never
// contributed enough get 403; a second vote gets 409.
func (h *Handler) handleApproveRequest(w http.ResponseWriter, r *http.Request) {
	caller, _ := Caller(r.Context())
	id, err := campaignID(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	idx, err := requestIndex(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if err = h.svc.ApproveRequest(r.Context(), id, idx, caller); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleFinalizeRequest pays the request out. Responds 409 without a
// majority and 422 when the payout itself cannot be made.
func (h *Handler) handleFinalizeRequest(w http.ResponseWriter, r *http.Request) {
	caller, _ := Caller(r.Context())
	id, err := campaignID(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	idx, err := requestIndex(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if err = h.svc.FinalizeRequest(r.Context(), id, idx, caller); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

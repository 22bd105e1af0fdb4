package httpadapter

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"crowdfund-escrow/internal/core/domain"
)

type createCampaignBody struct {
	MinimumContribution int64 `json:"minimum_contribution"`
}

type createCampaignResponse struct {
	ID uuid.UUID `json:"id"`
}

type campaignListResponse struct {
	Campaigns []uuid.UUID `json:"campaigns"`
}

type deployedCampaignResponse struct {
	Index int       `json:"index"`
	ID    uuid.UUID `json:"id"`
}

type summaryResponse struct {
	ID                  uuid.UUID `json:"id"`
	Manager             string    `json:"manager"`
	MinimumContribution int64     `json:"minimum_contribution"`
	Balance             int64     `json:"balance"`
	NumberOfRequests    int       `json:"number_of_requests"`
	ApproversCount      int64     `json:"approvers_count"`
}

type contributeBody struct {
	Amount int64 `json:"amount"`
}

type approverResponse struct {
	Identity string `json:"identity"`
	Approver bool   `json:"approver"`
}

// handleCreateCampaign deploys a campaign managed by the caller. Responds
// 201 with the new campaign ID.
func (h *Handler) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	caller, _ := Caller(r.Context())
	var body createCampaignBody
	if err := decodeJSON(r, &body); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	id, err := h.svc.CreateCampaign(r.Context(), domain.Amount(body.MinimumContribution), caller)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createCampaignResponse{ID: id})
}

// handleListCampaigns returns the deployment registry in order.
func (h *Handler) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	ids, err := h.svc.DeployedCampaigns(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	writeJSON(w, http.StatusOK, campaignListResponse{Campaigns: ids})
}

// handleDeployedCampaign returns the campaign at a position of the
// registry. Responds 404 past the end.
func (h *Handler) handleDeployedCampaign(w http.ResponseWriter, r *http.Request) {
	idx, err := pathIndex(r, "index")
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid registry index")
		return
	}
	id, err := h.svc.DeployedCampaign(r.Context(), idx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deployedCampaignResponse{Index: idx, ID: id})
}

func (h *Handler) handleCampaignSummary(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	s, err := h.svc.Summary(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		ID:                  s.ID,
		Manager:             string(s.Manager),
		MinimumContribution: int64(s.MinimumContribution),
		Balance:             int64(s.Balance),
		NumberOfRequests:    s.NumberOfRequests,
		ApproversCount:      s.ApproversCount,
	})
}

// handleContribute escrows the posted amount from the caller. Responds 204
// on success and 422 when the amount is below the campaign minimum.
func (h *Handler) handleContribute(w http.ResponseWriter, r *http.Request) {
	caller, _ := Caller(r.Context())
	id, err := campaignID(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	var body contributeBody
	if err = decodeJSON(r, &body); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err = h.svc.Contribute(r.Context(), id, caller, domain.Amount(body.Amount)); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleIsApprover(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	account, err := domain.ParseIdentity(chi.URLParam(r, "identity"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ok, err := h.svc.IsApprover(r.Context(), id, account)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, approverResponse{Identity: string(account), Approver: ok})
}

/*
handlers.go - HTTP API handlers for the loyalty engine

PURPOSE:
  Exposes the loyalty services via REST. Handles HTTP request/response and
  JSON serialization; all business rules live in the loyalty package.

ENDPOINTS:
  Accounts:
    GET    /api/accounts                       List accounts
    POST   /api/accounts                       Create account
    GET    /api/accounts/{id}                  Account details (with tier progress)
    GET    /api/accounts/{id}/ledger           Ledger history
    GET    /api/accounts/{id}/achievements     Granted achievements
    GET    /api/accounts/{id}/notifications    Notification feed
    POST   /api/accounts/{id}/awards           Record an earn/redeem event
    POST   /api/accounts/{id}/purchases        Earn from a purchase amount
    POST   /api/accounts/{id}/visits           Record a visit
    POST   /api/accounts/{id}/redemptions      Request a redemption
    GET    /api/accounts/{id}/redemptions      Redemption history

  Rewards / redemptions:
    GET    /api/rewards                        Catalog
    POST   /api/rewards                        Create reward
    GET    /api/achievements                   Achievement catalog
    GET    /api/redemptions/pending            Approval queue
    POST   /api/redemptions/{id}/approve       Approve (debits + decrements)
    POST   /api/redemptions/{id}/deny          Deny (no mutation)
    POST   /api/redemptions/{id}/fulfill       Mark handed over

  Admin:
    GET/PUT /api/admin/thresholds              Tier thresholds
    PUT     /api/admin/accounts/{id}/tier      Explicit tier override
    PUT     /api/rewards/{id}/active           Activate/deactivate reward

ERROR HANDLING:
  Business rejections carry a stable code (insufficient_balance,
  tier_not_met, out_of_stock, ...) so clients can explain the reason.
  - 400: malformed input
  - 404: missing account/reward/redemption
  - 409: precondition or state-machine rejection
  - 503: store unavailable (safe to retry; no partial mutation)
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/beanloop/loyalty-engine/loyalty"
)

// Handler holds the dependencies for all HTTP handlers.
type Handler struct {
	Service *loyalty.Service
}

// NewHandler creates a handler around the loyalty service.
func NewHandler(svc *loyalty.Service) *Handler {
	return &Handler{Service: svc}
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, loyalty.ErrInvalidAmount), errors.Is(err, loyalty.ErrInvalidKind):
		status = http.StatusBadRequest
	case errors.Is(err, loyalty.ErrAccountNotFound),
		errors.Is(err, loyalty.ErrRewardNotFound),
		errors.Is(err, loyalty.ErrRedemptionNotFound):
		status = http.StatusNotFound
	case loyalty.IsClientError(err):
		status = http.StatusConflict
	case errors.Is(err, loyalty.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, ErrorResponse{Code: loyalty.Code(err), Error: err.Error()})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "bad_request", Error: msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		badRequest(w, "name is required")
		return
	}
	acct, err := h.Service.CreateAccount(r.Context(), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	th, _ := h.Service.Store.ReadThresholds(r.Context())
	writeJSON(w, http.StatusCreated, accountDTO(acct, th))
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Service.Store.ListAccounts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	th, err := h.Service.Store.ReadThresholds(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]AccountDTO, 0, len(accounts))
	for i := range accounts {
		out = append(out, accountDTO(&accounts[i], th))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id := loyalty.AccountID(chi.URLParam(r, "id"))
	acct, err := h.Service.Store.ReadAccount(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	th, err := h.Service.Store.ReadThresholds(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accountDTO(acct, th))
}

func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	id := loyalty.AccountID(chi.URLParam(r, "id"))
	entries, err := h.Service.Store.LedgerEntries(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]LedgerEntryDTO, 0, len(entries))
	for i := range entries {
		out = append(out, entryDTO(&entries[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetAchievements(w http.ResponseWriter, r *http.Request) {
	id := loyalty.AccountID(chi.URLParam(r, "id"))
	grants, err := h.Service.AccountAchievements(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]GrantDTO, 0, len(grants))
	for _, g := range grants {
		out = append(out, GrantDTO{
			AccountID:     string(g.AccountID),
			AchievementID: string(g.AchievementID),
			GrantedAt:     g.GrantedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	id := loyalty.AccountID(chi.URLParam(r, "id"))
	notes, err := h.Service.Store.Notifications(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]NotificationDTO, 0, len(notes))
	for _, n := range notes {
		out = append(out, NotificationDTO{
			ID:        n.ID,
			Kind:      n.Kind,
			Message:   n.Message,
			CreatedAt: n.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// AWARDS, PURCHASES, VISITS
// =============================================================================

func (h *Handler) SubmitAward(w http.ResponseWriter, r *http.Request) {
	id := loyalty.AccountID(chi.URLParam(r, "id"))
	var req AwardRequest
	if !decodeBody(w, r, &req) {
		return
	}
	entry, err := h.Service.Award(r.Context(), id, loyalty.EntryKind(req.Kind), req.Amount, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entryDTO(entry))
}

func (h *Handler) SubmitPurchase(w http.ResponseWriter, r *http.Request) {
	id := loyalty.AccountID(chi.URLParam(r, "id"))
	var req PurchaseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	spend, err := decimal.NewFromString(req.Amount)
	if err != nil {
		badRequest(w, "invalid amount: "+req.Amount)
		return
	}
	entry, err := h.Service.AwardForPurchase(r.Context(), id, spend, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	if entry == nil {
		// Spend too small to earn a point.
		writeJSON(w, http.StatusOK, map[string]int64{"points_earned": 0})
		return
	}
	writeJSON(w, http.StatusCreated, entryDTO(entry))
}

func (h *Handler) RecordVisit(w http.ResponseWriter, r *http.Request) {
	id := loyalty.AccountID(chi.URLParam(r, "id"))
	count, err := h.Service.RecordVisit(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"visit_count": count})
}

// =============================================================================
// ACHIEVEMENT CATALOG
// =============================================================================

func (h *Handler) ListAchievementCatalog(w http.ResponseWriter, _ *http.Request) {
	out := make([]AchievementDTO, 0, len(h.Service.Catalog))
	for _, d := range h.Service.Catalog {
		out = append(out, AchievementDTO{
			ID:           string(d.ID),
			Name:         d.Name,
			Trigger:      string(d.Trigger),
			Requirement:  d.Requirement,
			TierRequired: string(d.TierRequired),
			RewardPoints: d.RewardPoints,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// REWARDS
// =============================================================================

func (h *Handler) ListRewards(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.Service.Store.ListRewards(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]RewardDTO, 0, len(rewards))
	for i := range rewards {
		out = append(out, rewardDTO(&rewards[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateReward(w http.ResponseWriter, r *http.Request) {
	var req CreateRewardRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" || req.PointsCost <= 0 {
		badRequest(w, "name and a positive points_cost are required")
		return
	}
	tier := loyalty.Tier(req.TierRequired)
	if req.TierRequired == "" {
		tier = loyalty.TierBronze
	}
	if !tier.Valid() {
		badRequest(w, "unknown tier: "+req.TierRequired)
		return
	}
	reward := loyalty.Reward{
		ID:           loyalty.NewRewardID(),
		Name:         req.Name,
		PointsCost:   req.PointsCost,
		TierRequired: tier,
		Active:       true,
		AutoApprove:  req.AutoApprove,
		Inventory:    req.Inventory,
		CreatedAt:    nowUTC(),
	}
	if err := h.Service.Store.SaveReward(r.Context(), reward); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rewardDTO(&reward))
}

func (h *Handler) SetRewardActive(w http.ResponseWriter, r *http.Request) {
	id := loyalty.RewardID(chi.URLParam(r, "id"))
	var req struct {
		Active bool `json:"active"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.Service.Store.SetRewardActive(r.Context(), id, req.Active); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// REDEMPTIONS
// =============================================================================

func (h *Handler) RequestRedemption(w http.ResponseWriter, r *http.Request) {
	id := loyalty.AccountID(chi.URLParam(r, "id"))
	var req RedemptionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	red, err := h.Service.RequestRedemption(r.Context(), id, loyalty.RewardID(req.RewardID))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, redemptionDTO(red))
}

func (h *Handler) ListAccountRedemptions(w http.ResponseWriter, r *http.Request) {
	id := loyalty.AccountID(chi.URLParam(r, "id"))
	reds, err := h.Service.Store.ListRedemptionsByAccount(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]RedemptionDTO, 0, len(reds))
	for i := range reds {
		out = append(out, redemptionDTO(&reds[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) ListPendingRedemptions(w http.ResponseWriter, r *http.Request) {
	reds, err := h.Service.Store.ListRedemptionsByStatus(r.Context(), loyalty.RedemptionPending)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]RedemptionDTO, 0, len(reds))
	for i := range reds {
		out = append(out, redemptionDTO(&reds[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) ApproveRedemption(w http.ResponseWriter, r *http.Request) {
	id := loyalty.RedemptionID(chi.URLParam(r, "id"))
	var req DecisionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	red, err := h.Service.ApproveRedemption(r.Context(), id, req.ActorID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, redemptionDTO(red))
}

func (h *Handler) DenyRedemption(w http.ResponseWriter, r *http.Request) {
	id := loyalty.RedemptionID(chi.URLParam(r, "id"))
	var req DecisionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	red, err := h.Service.DenyRedemption(r.Context(), id, req.ActorID, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, redemptionDTO(red))
}

func (h *Handler) FulfillRedemption(w http.ResponseWriter, r *http.Request) {
	id := loyalty.RedemptionID(chi.URLParam(r, "id"))
	var req DecisionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	red, err := h.Service.FulfillRedemption(r.Context(), id, req.ActorID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, redemptionDTO(red))
}

// =============================================================================
// ADMIN
// =============================================================================

func (h *Handler) GetThresholds(w http.ResponseWriter, r *http.Request) {
	th, err := h.Service.Store.ReadThresholds(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, th)
}

func (h *Handler) UpdateThresholds(w http.ResponseWriter, r *http.Request) {
	var th loyalty.TierThresholds
	if !decodeBody(w, r, &th) {
		return
	}
	if err := h.Service.UpdateThresholds(r.Context(), th); err != nil {
		var invalid *loyalty.InvalidThresholdsError
		if errors.As(err, &invalid) {
			badRequest(w, invalid.Error())
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, th)
}

func (h *Handler) OverrideTier(w http.ResponseWriter, r *http.Request) {
	id := loyalty.AccountID(chi.URLParam(r, "id"))
	var req OverrideTierRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !loyalty.Tier(req.Tier).Valid() {
		badRequest(w, "unknown tier: "+req.Tier)
		return
	}
	if err := h.Service.OverrideTier(r.Context(), id, loyalty.Tier(req.Tier), req.AdminID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

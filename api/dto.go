/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication, decoupling the domain model from
  the external contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation happens in handlers and the domain services, not in DTOs.
  DTOs are pure data carriers.
*/
package api

import (
	"time"

	"github.com/beanloop/loyalty-engine/loyalty"
)

// =============================================================================
// ACCOUNTS
// =============================================================================

type AccountDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	PointsBalance int64  `json:"points_balance"`
	VisitCount    int64  `json:"visit_count"`
	SocialCount   int64  `json:"social_count"`
	Tier          string `json:"tier"`
	// NextThreshold is the balance needed for the next tier; omitted at gold.
	NextThreshold *int64 `json:"next_threshold,omitempty"`
	CreatedAt     string `json:"created_at"`
}

type CreateAccountRequest struct {
	Name string `json:"name"`
}

func accountDTO(a *loyalty.Account, th loyalty.TierThresholds) AccountDTO {
	dto := AccountDTO{
		ID:            string(a.ID),
		Name:          a.Name,
		PointsBalance: a.PointsBalance,
		VisitCount:    a.VisitCount,
		SocialCount:   a.SocialCount,
		Tier:          string(a.Tier),
		CreatedAt:     a.CreatedAt.Format(time.RFC3339),
	}
	if next, ok := loyalty.NextThreshold(a.PointsBalance, th); ok {
		dto.NextThreshold = &next
	}
	return dto
}

// =============================================================================
// LEDGER & AWARDS
// =============================================================================

type LedgerEntryDTO struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	Kind      string `json:"kind"`
	Amount    int64  `json:"amount"`
	Reason    string `json:"reason,omitempty"`
	CreatedAt string `json:"created_at"`
}

func entryDTO(e *loyalty.LedgerEntry) LedgerEntryDTO {
	return LedgerEntryDTO{
		ID:        string(e.ID),
		AccountID: string(e.AccountID),
		Kind:      string(e.Kind),
		Amount:    e.Amount,
		Reason:    e.Reason,
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
	}
}

type AwardRequest struct {
	Kind   string `json:"kind"` // "earn" or "redeem"
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

// PurchaseRequest carries the spend as a decimal string ("4.75").
type PurchaseRequest struct {
	Amount string `json:"amount"`
	Reason string `json:"reason,omitempty"`
}

// =============================================================================
// ACHIEVEMENTS
// =============================================================================

type AchievementDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Trigger      string `json:"trigger"`
	Requirement  int64  `json:"requirement,omitempty"`
	TierRequired string `json:"tier_required,omitempty"`
	RewardPoints int64  `json:"reward_points"`
}

type GrantDTO struct {
	AccountID     string `json:"account_id"`
	AchievementID string `json:"achievement_id"`
	GrantedAt     string `json:"granted_at"`
}

// =============================================================================
// REWARDS & REDEMPTIONS
// =============================================================================

type RewardDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PointsCost   int64  `json:"points_cost"`
	TierRequired string `json:"tier_required"`
	Active       bool   `json:"active"`
	AutoApprove  bool   `json:"auto_approve"`
	Inventory    *int64 `json:"inventory,omitempty"`
}

type CreateRewardRequest struct {
	Name         string `json:"name"`
	PointsCost   int64  `json:"points_cost"`
	TierRequired string `json:"tier_required"`
	AutoApprove  bool   `json:"auto_approve"`
	Inventory    *int64 `json:"inventory,omitempty"`
}

func rewardDTO(r *loyalty.Reward) RewardDTO {
	return RewardDTO{
		ID:           string(r.ID),
		Name:         r.Name,
		PointsCost:   r.PointsCost,
		TierRequired: string(r.TierRequired),
		Active:       r.Active,
		AutoApprove:  r.AutoApprove,
		Inventory:    r.Inventory,
	}
}

type RedemptionDTO struct {
	ID           string  `json:"id"`
	AccountID    string  `json:"account_id"`
	RewardID     string  `json:"reward_id"`
	Status       string  `json:"status"`
	PointsCost   int64   `json:"points_cost"`
	DecidedBy    *string `json:"decided_by,omitempty"`
	DenialReason *string `json:"denial_reason,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

func redemptionDTO(r *loyalty.Redemption) RedemptionDTO {
	return RedemptionDTO{
		ID:           string(r.ID),
		AccountID:    string(r.AccountID),
		RewardID:     string(r.RewardID),
		Status:       string(r.Status),
		PointsCost:   r.PointsCost,
		DecidedBy:    r.DecidedBy,
		DenialReason: r.DenialReason,
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
	}
}

type RedemptionRequest struct {
	RewardID string `json:"reward_id"`
}

type DecisionRequest struct {
	ActorID string `json:"actor_id"`
	Reason  string `json:"reason,omitempty"`
}

// =============================================================================
// ADMIN
// =============================================================================

type OverrideTierRequest struct {
	Tier    string `json:"tier"`
	AdminID string `json:"admin_id"`
}

type NotificationDTO struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

// ErrorResponse is the uniform error body: a stable machine-readable code
// plus a human-readable message, so the UI can say WHY an action failed.
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func nowUTC() time.Time { return time.Now().UTC() }

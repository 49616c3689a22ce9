package dto

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/kirosamy12/otrade-backend/internal/domain/enums"
	pgrepo "github.com/kirosamy12/otrade-backend/internal/repo/postgres"
	"github.com/kirosamy12/otrade-backend/internal/services/permissions"
	userssvc "github.com/kirosamy12/otrade-backend/internal/services/users"
)

type CreateAdminRequest struct {
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Name     string          `json:"name"`
	Grants   json.RawMessage `json:"grants"`
}

type UpdateGrantsRequest struct {
	Grants json.RawMessage `json:"grants"`
}

type AdminResponse struct {
	ID     string              `json:"id"`
	Email  string              `json:"email"`
	Name   string              `json:"name"`
	Role   string              `json:"role"`
	Grants map[string][]string `json:"grants"`
}

func AdminResponseFrom(view permissions.AdminView) AdminResponse {
	grants := make(map[string][]string, len(view.Grants))
	for module, actions := range view.Grants {
		names := make([]string, 0, len(actions))
		for action := range actions {
			names = append(names, string(action))
		}
		sort.Strings(names)
		grants[module] = names
	}

	return AdminResponse{
		ID:     view.ID.String(),
		Email:  view.Email,
		Name:   view.Name,
		Role:   view.Role,
		Grants: grants,
	}
}

func AdminListFromViews(views []permissions.AdminView) []AdminResponse {
	out := make([]AdminResponse, 0, len(views))
	for _, view := range views {
		out = append(out, AdminResponseFrom(view))
	}
	return out
}

type PermissionCatalogResponse struct {
	Modules map[string][]string `json:"modules"`
}

type AssignSubscriptionRequest struct {
	PlanID           string `json:"plan_id"`
	SubscriptionType string `json:"subscription_type"`
}

type EntitlementsResponse struct {
	UserID             string     `json:"user_id"`
	Email              string     `json:"email"`
	Name               string     `json:"name"`
	PlanTier           string     `json:"plan_tier"`
	SubscriptionActive bool       `json:"subscription_active"`
	ExpiresAt          *time.Time `json:"expires_at"`
	ActivePlanKeys     []string   `json:"active_plan_keys"`
	UnlockedCourses    []string   `json:"unlocked_courses"`
	UnlockedWebinars   []string   `json:"unlocked_webinars"`
	UnlockedPsychology []string   `json:"unlocked_psychology"`
	UnlockedAnalyses   []string   `json:"unlocked_analyses"`
}

func EntitlementsResponseFrom(ent userssvc.Entitlements) EntitlementsResponse {
	keys := ent.ActivePlanKeys
	if keys == nil {
		keys = []string{string(enums.TierFree)}
	}
	return EntitlementsResponse{
		UserID:             ent.UserID.String(),
		Email:              ent.Email,
		Name:               ent.Name,
		PlanTier:           string(ent.PlanTier),
		SubscriptionActive: ent.SubscriptionActive,
		ExpiresAt:          ent.ExpiresAt,
		ActivePlanKeys:     keys,
		UnlockedCourses:    uuidStrings(ent.UnlockedCourses),
		UnlockedWebinars:   uuidStrings(ent.UnlockedWebinars),
		UnlockedPsychology: uuidStrings(ent.UnlockedPsychology),
		UnlockedAnalyses:   uuidStrings(ent.UnlockedAnalyses),
	}
}

type PaymentListItem struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	PlanID        string     `json:"plan_id"`
	Duration      string     `json:"duration"`
	AmountCents   int        `json:"amount_cents"`
	Currency      string     `json:"currency"`
	ProcessorTxID *string    `json:"processor_tx_id"`
	Status        string     `json:"status"`
	IsTest        bool       `json:"is_test"`
	StartsAt      *time.Time `json:"starts_at"`
	EndsAt        *time.Time `json:"ends_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

func PaymentListFromRecords(records []pgrepo.PaymentRecord) []PaymentListItem {
	out := make([]PaymentListItem, 0, len(records))
	for _, rec := range records {
		out = append(out, PaymentListItem{
			ID:            rec.ID.String(),
			UserID:        rec.UserID.String(),
			PlanID:        rec.PlanID.String(),
			Duration:      rec.Duration,
			AmountCents:   rec.AmountCents,
			Currency:      rec.Currency,
			ProcessorTxID: rec.ProcessorTxID,
			Status:        rec.Status,
			IsTest:        rec.IsTest,
			StartsAt:      rec.StartsAt,
			EndsAt:        rec.EndsAt,
			CreatedAt:     rec.CreatedAt,
		})
	}
	return out
}

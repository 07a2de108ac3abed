package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beanloop/loyalty-engine/api"
	"github.com/beanloop/loyalty-engine/loyalty"
	"github.com/beanloop/loyalty-engine/loyalty/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *loyalty.Service) {
	t.Helper()
	svc := loyalty.NewService(store.NewMemory())
	srv := httptest.NewServer(api.NewRouter(api.NewHandler(svc)))
	t.Cleanup(srv.Close)
	return srv, svc
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func createAccount(t *testing.T, srv *httptest.Server, name string) api.AccountDTO {
	t.Helper()
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/accounts", api.CreateAccountRequest{Name: name})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var acct api.AccountDTO
	decodeInto(t, resp, &acct)
	return acct
}

func TestAccountLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	acct := createAccount(t, srv, "Espresso Fan")
	assert.NotEmpty(t, acct.ID)
	assert.Equal(t, "bronze", acct.Tier)
	assert.Equal(t, int64(0), acct.PointsBalance)
	require.NotNil(t, acct.NextThreshold)
	assert.Equal(t, int64(200), *acct.NextThreshold)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/accounts/"+acct.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got api.AccountDTO
	decodeInto(t, resp, &got)
	assert.Equal(t, acct.ID, got.ID)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/accounts/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var errResp api.ErrorResponse
	decodeInto(t, resp, &errResp)
	assert.Equal(t, "account_not_found", errResp.Code)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/accounts", api.CreateAccountRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestAwardEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	acct := createAccount(t, srv, "Espresso Fan")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/accounts/"+acct.ID+"/awards",
		api.AwardRequest{Kind: "earn", Amount: 250, Reason: "drink purchase"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var entry api.LedgerEntryDTO
	decodeInto(t, resp, &entry)
	assert.Equal(t, "earn", entry.Kind)
	assert.Equal(t, int64(250), entry.Amount)

	// Crossing silver grants the tier badge: 250 + 50 bonus.
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/accounts/"+acct.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got api.AccountDTO
	decodeInto(t, resp, &got)
	assert.Equal(t, "silver", got.Tier)
	assert.Equal(t, int64(300), got.PointsBalance)

	// Invalid amount -> 400 with a stable code.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/accounts/"+acct.ID+"/awards",
		api.AwardRequest{Kind: "earn", Amount: -5})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var errResp api.ErrorResponse
	decodeInto(t, resp, &errResp)
	assert.Equal(t, "invalid_amount", errResp.Code)

	// Unknown kind -> 400.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/accounts/"+acct.ID+"/awards",
		api.AwardRequest{Kind: "transfer", Amount: 5})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestPurchaseEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	acct := createAccount(t, srv, "Espresso Fan")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/accounts/"+acct.ID+"/purchases",
		api.PurchaseRequest{Amount: "5.99"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var entry api.LedgerEntryDTO
	decodeInto(t, resp, &entry)
	assert.Equal(t, int64(5), entry.Amount, "5.99 at the default rate floors to 5 points")

	// Sub-point spend: 200 OK with zero points, no ledger entry.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/accounts/"+acct.ID+"/purchases",
		api.PurchaseRequest{Amount: "0.75"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var zero map[string]int64
	decodeInto(t, resp, &zero)
	assert.Equal(t, int64(0), zero["points_earned"])

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/accounts/"+acct.ID+"/purchases",
		api.PurchaseRequest{Amount: "not-a-number"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestVisitAndAchievementEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	acct := createAccount(t, srv, "Espresso Fan")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/accounts/"+acct.ID+"/visits", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var visit map[string]int64
	decodeInto(t, resp, &visit)
	assert.Equal(t, int64(1), visit["visit_count"])

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/accounts/"+acct.ID+"/achievements", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var grants []api.GrantDTO
	decodeInto(t, resp, &grants)
	require.Len(t, grants, 1)
	assert.Equal(t, "first_visit", grants[0].AchievementID)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/achievements", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var catalog []api.AchievementDTO
	decodeInto(t, resp, &catalog)
	assert.Len(t, catalog, len(loyalty.DefaultCatalog))
}

func TestRewardAndRedemptionEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	acct := createAccount(t, srv, "Espresso Fan")

	// Fund the account.
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/accounts/"+acct.ID+"/awards",
		api.AwardRequest{Kind: "earn", Amount: 100, Reason: "drink purchase"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	inv := int64(2)
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/rewards", api.CreateRewardRequest{
		Name:       "Free Latte",
		PointsCost: 50,
		Inventory:  &inv,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var reward api.RewardDTO
	decodeInto(t, resp, &reward)
	assert.True(t, reward.Active)
	assert.Equal(t, "bronze", reward.TierRequired)

	// Request, then walk the approval queue.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/accounts/"+acct.ID+"/redemptions",
		api.RedemptionRequest{RewardID: reward.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var red api.RedemptionDTO
	decodeInto(t, resp, &red)
	assert.Equal(t, "pending", red.Status)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/redemptions/pending", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pending []api.RedemptionDTO
	decodeInto(t, resp, &pending)
	require.Len(t, pending, 1)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/redemptions/"+red.ID+"/approve",
		api.DecisionRequest{ActorID: "barista-7"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var approved api.RedemptionDTO
	decodeInto(t, resp, &approved)
	assert.Equal(t, "approved", approved.Status)

	// Approving twice is a state-machine rejection: 409.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/redemptions/"+red.ID+"/approve",
		api.DecisionRequest{ActorID: "barista-8"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	var errResp api.ErrorResponse
	decodeInto(t, resp, &errResp)
	assert.Equal(t, "invalid_transition", errResp.Code)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/redemptions/"+red.ID+"/fulfill",
		api.DecisionRequest{ActorID: "barista-7"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fulfilled api.RedemptionDTO
	decodeInto(t, resp, &fulfilled)
	assert.Equal(t, "fulfilled", fulfilled.Status)

	// The debit landed.
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/accounts/"+acct.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got api.AccountDTO
	decodeInto(t, resp, &got)
	assert.Equal(t, int64(50), got.PointsBalance)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/accounts/"+acct.ID+"/ledger", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ledger []api.LedgerEntryDTO
	decodeInto(t, resp, &ledger)
	assert.Len(t, ledger, 2)
}

func TestRedemptionRejectionCodes(t *testing.T) {
	srv, svc := newTestServer(t)
	acct := createAccount(t, srv, "Espresso Fan")

	// A gold-gated, expensive reward against a broke bronze account.
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/rewards", api.CreateRewardRequest{
		Name:         "Gold Tasting",
		PointsCost:   500,
		TierRequired: "gold",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var reward api.RewardDTO
	decodeInto(t, resp, &reward)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/accounts/"+acct.ID+"/redemptions",
		api.RedemptionRequest{RewardID: reward.ID})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	var errResp api.ErrorResponse
	decodeInto(t, resp, &errResp)
	assert.Equal(t, "tier_not_met", errResp.Code)

	// Raise the tier out of band; now the balance is the blocker.
	require.NoError(t, svc.OverrideTier(context.Background(), loyalty.AccountID(acct.ID), loyalty.TierGold, "admin-1"))
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/accounts/"+acct.ID+"/redemptions",
		api.RedemptionRequest{RewardID: reward.ID})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	decodeInto(t, resp, &errResp)
	assert.Equal(t, "insufficient_balance", errResp.Code)

	// Deactivated reward.
	resp = doJSON(t, http.MethodPut, srv.URL+"/api/rewards/"+reward.ID+"/active",
		map[string]bool{"active": false})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/accounts/"+acct.ID+"/redemptions",
		api.RedemptionRequest{RewardID: reward.ID})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	decodeInto(t, resp, &errResp)
	assert.Equal(t, "reward_inactive", errResp.Code)

	// Unknown reward -> 404.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/accounts/"+acct.ID+"/redemptions",
		api.RedemptionRequest{RewardID: "missing"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	decodeInto(t, resp, &errResp)
	assert.Equal(t, "reward_not_found", errResp.Code)
}

func TestAdminEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	acct := createAccount(t, srv, "Espresso Fan")

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/admin/thresholds", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var th loyalty.TierThresholds
	decodeInto(t, resp, &th)
	assert.Equal(t, loyalty.TierThresholds{SilverMin: 200, GoldMin: 550}, th)

	resp = doJSON(t, http.MethodPut, srv.URL+"/api/admin/thresholds",
		loyalty.TierThresholds{SilverMin: 100, GoldMin: 400})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Inverted thresholds are rejected with 400.
	resp = doJSON(t, http.MethodPut, srv.URL+"/api/admin/thresholds",
		loyalty.TierThresholds{SilverMin: 400, GoldMin: 100})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPut, srv.URL+fmt.Sprintf("/api/admin/accounts/%s/tier", acct.ID),
		api.OverrideTierRequest{Tier: "gold", AdminID: "admin-1"})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/accounts/"+acct.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got api.AccountDTO
	decodeInto(t, resp, &got)
	assert.Equal(t, "gold", got.Tier)
	assert.Nil(t, got.NextThreshold, "gold has no next threshold")

	resp = doJSON(t, http.MethodPut, srv.URL+fmt.Sprintf("/api/admin/accounts/%s/tier", acct.ID),
		api.OverrideTierRequest{Tier: "platinum", AdminID: "admin-1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestNotificationFeed(t *testing.T) {
	srv, _ := newTestServer(t)
	acct := createAccount(t, srv, "Espresso Fan")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/accounts/"+acct.ID+"/awards",
		api.AwardRequest{Kind: "earn", Amount: 250, Reason: "drink purchase"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/accounts/"+acct.ID+"/notifications", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var notes []api.NotificationDTO
	decodeInto(t, resp, &notes)

	kinds := make(map[string]bool, len(notes))
	for _, n := range notes {
		kinds[n.Kind] = true
	}
	assert.True(t, kinds["tier_raised"])
	assert.True(t, kinds["achievement_unlocked"])
}

package match_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/devconnect/internal/service/match"
	"github.com/oggyb/devconnect/internal/testutil"
)

func TestDecideRoute(t *testing.T) {
	appCtx := testutil.NewAppContext(t)
	n := &recordingNotifier{}
	api := testutil.NewAPI(t, appCtx, match.NewRegistrar(appCtx, n))
	token := testutil.Token(t, appCtx, 1)

	// user3 already accepted user1
	w, body := testutil.Do(t, api, http.MethodPost, "/api/match", token, map[string]any{
		"matchedUserId": 3, "status": "accepted",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Match recorded", body["message"])

	data := body["data"].(map[string]any)
	assert.Equal(t, true, data["isMutualMatch"])
	assert.NotNil(t, data["chatId"])
	decision := data["match"].(map[string]any)
	assert.Equal(t, float64(1), decision["userId"])
	assert.Equal(t, float64(3), decision["matchedUserId"])
	assert.Equal(t, "accepted", decision["status"])
	assert.Len(t, n.calls, 1)

	w, body = testutil.Do(t, api, http.MethodPost, "/api/match", token, map[string]any{
		"matchedUserId": 3, "status": "rejected",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "conflict", body["code"])
	assert.Equal(t, "Already interacted with this user", body["message"])
}

func TestDecideRoute_RejectIsNotMutual(t *testing.T) {
	appCtx := testutil.NewAppContext(t)
	api := testutil.NewAPI(t, appCtx, match.NewRegistrar(appCtx, nil))

	w, body := testutil.Do(t, api, http.MethodPost, "/api/match", testutil.Token(t, appCtx, 1), map[string]any{
		"matchedUserId": 4, "status": "rejected",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Preference saved", body["message"])

	data := body["data"].(map[string]any)
	assert.Equal(t, false, data["isMutualMatch"])
	assert.Nil(t, data["chatId"])
}

func TestDecideRoute_BadRequests(t *testing.T) {
	appCtx := testutil.NewAppContext(t)
	api := testutil.NewAPI(t, appCtx, match.NewRegistrar(appCtx, nil))
	token := testutil.Token(t, appCtx, 1)

	cases := []struct {
		name   string
		body   map[string]any
		status int
		msg    string
	}{
		{"missing fields", map[string]any{}, http.StatusBadRequest, "Matched user ID and status are required"},
		{"bad status", map[string]any{"matchedUserId": 4, "status": "maybe"}, http.StatusBadRequest, "Status must be accepted or rejected"},
		{"self", map[string]any{"matchedUserId": 1, "status": "accepted"}, http.StatusBadRequest, "Cannot match with yourself"},
		{"unknown user", map[string]any{"matchedUserId": 999, "status": "accepted"}, http.StatusNotFound, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, body := testutil.Do(t, api, http.MethodPost, "/api/match", token, tc.body)
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, false, body["success"])
			if tc.msg != "" {
				assert.Equal(t, tc.msg, body["message"])
			}
		})
	}

	w, _ := testutil.Do(t, api, http.MethodPost, "/api/match", "", map[string]any{
		"matchedUserId": 4, "status": "accepted",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReadRoutes(t *testing.T) {
	appCtx := testutil.NewAppContext(t)
	api := testutil.NewAPI(t, appCtx, match.NewRegistrar(appCtx, nil))
	token := testutil.Token(t, appCtx, 1)

	w, body := testutil.Do(t, api, http.MethodGet, "/api/match", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	matches := body["data"].([]any)
	require.Len(t, matches, 1)
	assert.Equal(t, float64(2), matches[0].(map[string]any)["user"].(map[string]any)["id"])

	w, body = testutil.Do(t, api, http.MethodGet, "/api/match/pending", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	pending := body["data"].([]any)
	require.Len(t, pending, 1)
	assert.Equal(t, float64(3), pending[0].(map[string]any)["user"].(map[string]any)["id"])
	assert.Nil(t, body["nextCursor"])

	w, body = testutil.Do(t, api, http.MethodGet, "/api/match/pending/count", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["data"].(map[string]any)["count"])

	w, body = testutil.Do(t, api, http.MethodGet, "/api/match/pending?cursor=garbage", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid pagination token", body["message"])
}

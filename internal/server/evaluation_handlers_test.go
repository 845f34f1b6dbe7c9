package server

import (
	"fmt"
	"net/http"
	"testing"

	"campus/internal/models"
	"campus/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedResource(t *testing.T, env *testEnv) (adminToken string, resourceID, variantID uint) {
	t.Helper()
	a, token := env.user("eval-admin")
	v := testutil.CreateVariant(t, env.db, "Economics", "Macro")
	testutil.Grant(t, env.db, a.ID, v.ID, models.RoleAdmin)
	_, body := env.upload(token, syllabus(v.ID))
	require.Equal(t, true, body["ok"], body)
	return token, idOf(t, body, "id"), v.ID
}

func TestEvaluations_CreateListUpdate(t *testing.T) {
	env := newTestEnv(t, false)
	_, resourceID, _ := seedResource(t, env)
	_, token := env.user("teacher")

	_, body := env.call(http.MethodGet, fmt.Sprintf("/api/evaluations/byResource?idRecurso=%d", resourceID), token, nil)
	assert.Equal(t, "evaluations-not-found", body["msg"])

	status, body := env.call(http.MethodPost, "/api/evaluations", token, EvaluationRequest{
		ResourceID:   resourceID,
		StartsAt:     "2026-03-01T09:00",
		EndsAt:       "2026-03-01T11:00",
		Instructions: "Closed book",
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, body["ok"], body)
	evalID := idOf(t, body, "id")

	_, body = env.call(http.MethodGet, fmt.Sprintf("/api/evaluations/byResource?idRecurso=%d", resourceID), token, nil)
	listed := body["data"].([]any)
	require.Len(t, listed, 1)
	assert.Equal(t, "Closed book", listed[0].(map[string]any)["instrucciones"])

	_, body = env.call(http.MethodPut, "/api/evaluations", token, EvaluationRequest{
		EvaluationID: evalID,
		StartsAt:     "2026-03-02",
		EndsAt:       "2026-03-03",
		Instructions: "Open book",
	})
	assert.Equal(t, true, body["ok"], body)
	assert.Equal(t, "evaluation-updated", body["msg"])

	var eval models.Evaluation
	require.NoError(t, env.db.First(&eval, evalID).Error)
	assert.Equal(t, "Open book", eval.Instructions)
}

func TestEvaluations_Validation(t *testing.T) {
	env := newTestEnv(t, false)
	_, resourceID, _ := seedResource(t, env)
	_, token := env.user("careless")

	cases := []struct {
		name string
		req  EvaluationRequest
		msg  string
	}{
		{"no resource", EvaluationRequest{StartsAt: "2026-01-01", EndsAt: "2026-01-02"}, "missing-resource-id"},
		{"unknown resource", EvaluationRequest{ResourceID: 999, StartsAt: "2026-01-01", EndsAt: "2026-01-02"}, "resource-not-found"},
		{"end before start", EvaluationRequest{ResourceID: resourceID, StartsAt: "2026-01-02", EndsAt: "2026-01-01"}, "invalid-dates"},
		{"missing date", EvaluationRequest{ResourceID: resourceID, StartsAt: "2026-01-02"}, "missing-fields"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, body := env.call(http.MethodPost, "/api/evaluations", token, tc.req)
			assert.Equal(t, false, body["ok"])
			assert.Equal(t, tc.msg, body["msg"])
		})
	}

	_, body := env.call(http.MethodPut, "/api/evaluations", token, EvaluationRequest{StartsAt: "2026-01-01", EndsAt: "2026-01-02"})
	assert.Equal(t, "missing-evaluation-id", body["msg"])

	_, body = env.call(http.MethodPut, "/api/evaluations", token, EvaluationRequest{EvaluationID: 31337, StartsAt: "2026-01-01", EndsAt: "2026-01-02"})
	assert.Equal(t, "evaluation-not-found", body["msg"])

	_, body = env.call(http.MethodGet, "/api/evaluations/byResource", token, nil)
	assert.Equal(t, "missing-resource-id", body["msg"])
}

func TestEvaluations_StrictModeRequiresAdmin(t *testing.T) {
	env := newTestEnv(t, false, withFlags("strict_evaluations=on"))
	adminToken, resourceID, _ := seedResource(t, env)
	_, outsiderToken := env.user("outsider")

	req := EvaluationRequest{ResourceID: resourceID, StartsAt: "2026-05-01", EndsAt: "2026-05-02"}

	status, body := env.call(http.MethodPost, "/api/evaluations", outsiderToken, req)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "not-authorized", body["msg"])

	status, body = env.call(http.MethodPost, "/api/evaluations", adminToken, req)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["ok"], body)
}

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

func TestSubscriptions_CreateListAndToggle(t *testing.T) {
	env := newTestEnv(t, false)
	u, token := env.user("carla")
	v := testutil.CreateVariant(t, env.db, "History", "Evening")

	status, body := env.call(http.MethodPost, fmt.Sprintf("/api/subscriptions?idVariante=%d", v.ID), token, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, body["ok"], body)
	subID := idOf(t, body, "subscriptionId")
	membership := body["userVariant"].(map[string]any)
	assert.Equal(t, "suscriptor", membership["rol"])

	_, body = env.call(http.MethodPost, fmt.Sprintf("/api/subscriptions?idVariante=%d", v.ID), token, nil)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "already-subscribed", body["msg"])

	_, body = env.call(http.MethodPost, "/api/subscriptions?idVariante=4242", token, nil)
	assert.Equal(t, "variant-not-found", body["msg"])
	_, body = env.call(http.MethodPost, "/api/subscriptions", token, nil)
	assert.Equal(t, "missing-fields", body["msg"])

	statePath := fmt.Sprintf("/api/subscriptions/state?idSuscripcion=%d", subID)
	_, body = env.call(http.MethodPut, statePath, token, map[string]string{"state": "bogus"})
	assert.Equal(t, "invalid-state", body["msg"])
	var sub models.Subscription
	require.NoError(t, env.db.First(&sub, subID).Error)
	assert.Equal(t, models.SubscriptionActive, sub.State)

	_, body = env.call(http.MethodPut, statePath, token, map[string]string{"state": "inactiva"})
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "subscription-updated", body["msg"])
	require.NoError(t, env.db.First(&sub, subID).Error)
	assert.Equal(t, models.SubscriptionInactive, sub.State)

	_, body = env.call(http.MethodPut, statePath, token, map[string]string{"estado": "activa"})
	assert.Equal(t, true, body["ok"])

	_, body = env.call(http.MethodPut, "/api/subscriptions/state", token, map[string]string{"state": "activa"})
	assert.Equal(t, "missing-fields", body["msg"])
	_, body = env.call(http.MethodPut, statePath, token, map[string]string{})
	assert.Equal(t, "missing-fields", body["msg"])

	_, body = env.call(http.MethodGet, "/api/subscriptions/user", token, nil)
	require.Equal(t, true, body["ok"])
	mine := body["data"].([]any)
	require.Len(t, mine, 1)
	assert.Equal(t, float64(u.ID), mine[0].(map[string]any)["idUsuario"])

	_, body = env.call(http.MethodGet, "/api/subscriptions", token, nil)
	assert.Len(t, body["data"].([]any), 1)
}

func TestSubscriptionState_OtherUsersRowIsNotFound(t *testing.T) {
	env := newTestEnv(t, false)
	_, ownerToken := env.user("owner")
	_, otherToken := env.user("intruder")
	v := testutil.CreateVariant(t, env.db, "Art", "A")

	_, body := env.call(http.MethodPost, fmt.Sprintf("/api/subscriptions?idVariante=%d", v.ID), ownerToken, nil)
	subID := idOf(t, body, "subscriptionId")

	_, body = env.call(http.MethodPut, fmt.Sprintf("/api/subscriptions/state?idSuscripcion=%d", subID),
		otherToken, map[string]string{"state": "inactiva"})
	assert.Equal(t, "subscription-not-found", body["msg"])
}

func TestUserVariants_GrantAndUpdate(t *testing.T) {
	env := newTestEnv(t, false)
	admin, adminToken := env.user("admin-user")
	student, studentToken := env.user("student")
	v := testutil.CreateVariant(t, env.db, "Chemistry", "Lab")

	// The first admin of a variant may appoint themselves.
	_, body := env.call(http.MethodPost, "/api/userVariants", adminToken, RoleRequest{VariantID: v.ID, Role: "admin"})
	require.Equal(t, true, body["ok"], body)
	assert.Equal(t, "user-variant-created", body["msg"])
	assert.NotZero(t, body["id"])

	// A second self-grant of the same pair updates instead of duplicating.
	_, body = env.call(http.MethodPost, "/api/userVariants", adminToken, RoleRequest{VariantID: v.ID, Role: "admin"})
	assert.Equal(t, "user-variant-updated", body["msg"])

	status, body := env.call(http.MethodPost, "/api/userVariants", studentToken,
		RoleRequest{UserID: admin.ID, VariantID: v.ID, Role: "suscriptor"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "not-authorized", body["msg"])

	_, body = env.call(http.MethodPost, "/api/userVariants", adminToken,
		RoleRequest{UserID: student.ID, VariantID: v.ID, Role: "suscriptor"})
	assert.Equal(t, "user-variant-created", body["msg"])

	_, body = env.call(http.MethodPut, "/api/userVariants", adminToken,
		RoleRequest{UserID: student.ID, VariantID: v.ID, Role: "admin"})
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "user-variant-updated", body["msg"])

	var count int64
	require.NoError(t, env.db.Model(&models.Membership{}).
		Where("user_id = ? AND variant_id = ?", student.ID, v.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	_, body = env.call(http.MethodGet, "/api/userVariants", studentToken, nil)
	mine := body["data"].([]any)
	require.Len(t, mine, 1)
	assert.Equal(t, "admin", mine[0].(map[string]any)["rol"])
}

func TestUserVariants_Validation(t *testing.T) {
	env := newTestEnv(t, false)
	_, token := env.user("validator")
	v := testutil.CreateVariant(t, env.db, "Music", "Choir")

	_, body := env.call(http.MethodPost, "/api/userVariants", token, RoleRequest{VariantID: v.ID, Role: "owner"})
	assert.Equal(t, "missing-or-invalid-fields", body["msg"])

	_, body = env.call(http.MethodPost, "/api/userVariants", token, RoleRequest{Role: "admin"})
	assert.Equal(t, "missing-or-invalid-fields", body["msg"])

	_, body = env.call(http.MethodPost, "/api/userVariants", token, RoleRequest{VariantID: 777, Role: "suscriptor"})
	assert.Equal(t, "variant-not-found", body["msg"])

	status, body := env.call(http.MethodPost, "/api/userVariants", token, RoleRequest{UserID: 9999, VariantID: v.ID, Role: "suscriptor"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "missing-or-invalid-fields", body["msg"])

	_, body = env.call(http.MethodPut, "/api/userVariants", token, RoleRequest{VariantID: v.ID, Role: "suscriptor"})
	assert.Equal(t, "user-variant-not-found", body["msg"])
}

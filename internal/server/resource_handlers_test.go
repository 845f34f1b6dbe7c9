package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"campus/internal/models"
	"campus/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceLifecycle_AdminSubscriberOutsider(t *testing.T) {
	env := newTestEnv(t, false)
	a, tokenA := env.user("alice")
	b, tokenB := env.user("bob")
	_, tokenC := env.user("carol")
	v := testutil.CreateVariant(t, env.db, "Biology", "Group 1")
	testutil.Grant(t, env.db, a.ID, v.ID, models.RoleAdmin)
	testutil.Grant(t, env.db, b.ID, v.ID, models.RoleSubscriber)

	form := syllabus(v.ID)
	status, body := env.upload(tokenA, form)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, body["ok"], body)
	resourceID := idOf(t, body, "id")

	status, payload, headers := env.download(tokenB, resourceID)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, form.payload, payload)
	assert.Equal(t, "application/pdf", headers.Get("Content-Type"))
	var resource models.Resource
	require.NoError(t, env.db.First(&resource, resourceID).Error)
	assert.Equal(t, fmt.Sprintf("inline; filename=%q", resource.StorageKey()), headers.Get("Content-Disposition"))
	assert.Equal(t, "syllabus.pdf", resource.OriginalName)
	assert.Equal(t, 2, resource.PageCount)

	status, payload, _ = env.download(tokenC, resourceID)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "not-authorized", string(payload))

	status, body = env.call(http.MethodGet, fmt.Sprintf("/api/resources/byVariant?idVariante=%d", v.ID), tokenC, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "not-authorized", body["msg"])

	_, body = env.call(http.MethodGet, fmt.Sprintf("/api/resources/byVariant?idVariante=%d", v.ID), tokenB, nil)
	listed := body["resources"].([]any)
	require.Len(t, listed, 1)
	assert.Equal(t, "Syllabus", listed[0].(map[string]any)["titulo"])

	status, body = env.call(http.MethodDelete, fmt.Sprintf("/api/resources?idRecurso=%d", resourceID), tokenB, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = env.call(http.MethodDelete, fmt.Sprintf("/api/resources?idRecurso=%d", resourceID), tokenA, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "resource-deleted", body["msg"])

	status, payload, _ = env.download(tokenB, resourceID)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "resource-not-found", string(payload))

	_, body = env.call(http.MethodDelete, fmt.Sprintf("/api/resources?idRecurso=%d", resourceID), tokenA, nil)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "resource-not-found", body["msg"])

	_, err := os.Stat(filepath.Join(env.blobs.Root(), resource.StorageKey()))
	assert.True(t, os.IsNotExist(err))
}

func TestCreateResource_Validation(t *testing.T) {
	env := newTestEnv(t, false, withUploadCapMB(1))
	a, token := env.user("uploader")
	_, outsiderToken := env.user("outsider")
	v := testutil.CreateVariant(t, env.db, "Maths", "Algebra")
	testutil.Grant(t, env.db, a.ID, v.ID, models.RoleAdmin)

	form := syllabus(v.ID)
	form.titulo = "   "
	_, body := env.upload(token, form)
	assert.Equal(t, "missing-fields", body["msg"])

	form = syllabus(v.ID)
	form.payload = nil
	_, body = env.upload(token, form)
	assert.Equal(t, "file-required", body["msg"])

	form = syllabus(0)
	_, body = env.upload(token, form)
	assert.Equal(t, "missing-fields", body["msg"])

	form = syllabus(v.ID)
	form.payload = make([]byte, 1<<20+10)
	_, body = env.upload(token, form)
	assert.Equal(t, "file-too-large", body["msg"])

	status, body := env.upload(outsiderToken, syllabus(v.ID))
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "not-authorized", body["msg"])

	var count int64
	require.NoError(t, env.db.Model(&models.Resource{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateResource_RejectsTextPayload(t *testing.T) {
	env := newTestEnv(t, false)
	a, token := env.user("scribe")
	v := testutil.CreateVariant(t, env.db, "Maths", "Algebra")
	testutil.Grant(t, env.db, a.ID, v.ID, models.RoleAdmin)

	form := syllabus(v.ID)
	form.fileName = "notes.txt"
	form.payload = []byte("hello, this is plain text and not a document")
	status, body := env.upload(token, form)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "invalid-file-type", body["msg"])

	var count int64
	require.NoError(t, env.db.Model(&models.Resource{}).Count(&count).Error)
	assert.Zero(t, count)
	staged, err := env.blobs.ListStaged(context.Background())
	require.NoError(t, err)
	assert.Empty(t, staged)
	published, err := env.blobs.ListPublished(context.Background())
	require.NoError(t, err)
	assert.Empty(t, published)
}

func TestCreateResource_VariantAsFormField(t *testing.T) {
	env := newTestEnv(t, false)
	a, token := env.user("former")
	v := testutil.CreateVariant(t, env.db, "Geo", "Maps")
	testutil.Grant(t, env.db, a.ID, v.ID, models.RoleAdmin)

	form := syllabus(v.ID)
	form.variantInForm = true
	status, body := env.upload(token, form)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, body["ok"], body)

	var resource models.Resource
	require.NoError(t, env.db.First(&resource, idOf(t, body, "id")).Error)
	assert.Equal(t, v.ID, resource.VariantID)
}

func TestDownload_PlainTextErrors(t *testing.T) {
	env := newTestEnv(t, false)
	a, token := env.user("admin")
	v := testutil.CreateVariant(t, env.db, "Latin", "Prose")
	testutil.Grant(t, env.db, a.ID, v.ID, models.RoleAdmin)

	status, payload, headers := env.download("", 1)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "not-authenticated", string(payload))
	assert.Contains(t, headers.Get("Content-Type"), "text/plain")

	status, payload, _ = env.download(token, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "missing-fields", string(payload))

	status, payload, _ = env.download(token, 404)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "resource-not-found", string(payload))

	_, body := env.upload(token, syllabus(v.ID))
	resourceID := idOf(t, body, "id")
	var resource models.Resource
	require.NoError(t, env.db.First(&resource, resourceID).Error)
	require.NoError(t, os.Remove(filepath.Join(env.blobs.Root(), resource.StorageKey())))

	status, payload, _ = env.download(token, resourceID)
	assert.Equal(t, http.StatusGone, status)
	assert.Equal(t, "file-missing", string(payload))
}

func TestResourcesByUser(t *testing.T) {
	env := newTestEnv(t, false)
	a, token := env.user("creator")
	other, _ := env.user("other")
	v := testutil.CreateVariant(t, env.db, "Drama", "Stage")
	testutil.Grant(t, env.db, a.ID, v.ID, models.RoleAdmin)

	_, body := env.upload(token, syllabus(v.ID))
	require.Equal(t, true, body["ok"])

	_, body = env.call(http.MethodGet, "/api/resources/byUser", token, nil)
	assert.Len(t, body["resources"].([]any), 1)

	_, body = env.call(http.MethodGet, fmt.Sprintf("/api/resources/byUser?userId=%d", a.ID), token, nil)
	assert.Len(t, body["resources"].([]any), 1)

	status, body := env.call(http.MethodGet, fmt.Sprintf("/api/resources/byUser?userId=%d", other.ID), token, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "not-authorized", body["msg"])

	status, _ = env.call(http.MethodGet, "/api/resources/byUser?userId=abc", token, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestResourceEvents_ReachRedis(t *testing.T) {
	env := newTestEnv(t, true)
	a, token := env.user("broadcaster")
	v := testutil.CreateVariant(t, env.db, "Astronomy", "Night")
	testutil.Grant(t, env.db, a.ID, v.ID, models.RoleAdmin)

	sub := env.srv.redis.Subscribe(t.Context(), fmt.Sprintf("campus:variant:%d", v.ID))
	defer sub.Close()
	_, err := sub.Receive(t.Context())
	require.NoError(t, err)

	_, body := env.upload(token, syllabus(v.ID))
	require.Equal(t, true, body["ok"])

	msg, err := sub.ReceiveMessage(t.Context())
	require.NoError(t, err)
	assert.Contains(t, msg.Payload, `"type":"resource.created"`)
	assert.Contains(t, msg.Payload, `"titulo":"Syllabus"`)
}

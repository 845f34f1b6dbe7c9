package service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"campus/internal/featureflags"
	"campus/internal/models"
	"campus/internal/notifications"
	"campus/internal/repository"
	"campus/internal/storage"
	"campus/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordedEvent struct {
	variantID uint
	event     notifications.Event
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (p *recordingPublisher) PublishVariantEvent(_ context.Context, variantID uint, event notifications.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{variantID: variantID, event: event})
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.event.Type)
	}
	return out
}

// faultyStore wraps a BlobStore and fails selected operations.
type faultyStore struct {
	storage.BlobStore
	publishErr error
	openErr    error
	deleteErr  error
}

func (f *faultyStore) Publish(ctx context.Context, key string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	return f.BlobStore.Publish(ctx, key)
}

func (f *faultyStore) Open(ctx context.Context, key string) (*storage.Object, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.BlobStore.Open(ctx, key)
}

func (f *faultyStore) Delete(ctx context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.BlobStore.Delete(ctx, key)
}

var errInjected = errors.New("injected failure")

type fixture struct {
	db        *gorm.DB
	local     *storage.LocalStore
	blobs     *faultyStore
	events    *recordingPublisher
	members   *MembershipService
	resources *ResourceService
	repo      repository.ResourceRepository
}

func newFixture(t *testing.T, maxUpload int64) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	local, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	f := &fixture{
		db:     db,
		local:  local,
		blobs:  &faultyStore{BlobStore: local},
		events: &recordingPublisher{},
		repo:   repository.NewResourceRepository(db),
	}
	f.members = NewMembershipService(repository.NewMembershipRepository(db))
	f.resources = NewResourceService(f.repo, f.members, f.blobs, ResourceServiceConfig{
		MaxUploadBytes: maxUpload,
		Flags:          featureflags.NewManager(""),
		Events:         f.events,
	})
	return f
}

func pdfUpload(variantID uint, title string) UploadInput {
	doc := testutil.MinimalPDF(2)
	return UploadInput{
		VariantID:   variantID,
		Type:        "apuntes",
		Title:       title,
		Description: "week one",
		FileName:    "Syllabus.PDF",
		Size:        int64(len(doc)),
		File:        bytes.NewReader(doc),
	}
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func adminOf(t *testing.T, db *gorm.DB, name string, variantID uint) *models.User {
	t.Helper()
	u := testutil.CreateUser(t, db, name)
	testutil.Grant(t, db, u.ID, variantID, models.RoleAdmin)
	return u
}

package service

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"campus/internal/models"
	"campus/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrphanSweeper_RunOnce(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	variant := testutil.CreateVariant(t, f.db, "Math", "Morning")
	admin := adminOf(t, f.db, "boss", variant.ID)

	kept, err := f.resources.CreateResource(ctx, admin.ID, pdfUpload(variant.ID, "Kept"))
	require.NoError(t, err)
	lost, err := f.resources.CreateResource(ctx, admin.ID, pdfUpload(variant.ID, "Lost"))
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(f.local.Root(), lost.StorageKey())))

	// A crash between stage and commit, and a crash after a publish whose row was never kept.
	_, err = f.local.Stage(ctx, "r_1_deadbeef.pdf", bytes.NewReader([]byte("%PDF-1.4")))
	require.NoError(t, err)
	_, err = f.local.Stage(ctx, "r_2_deadbeef.pdf", bytes.NewReader([]byte("%PDF-1.4")))
	require.NoError(t, err)
	require.NoError(t, f.local.Publish(ctx, "r_2_deadbeef.pdf"))

	sweeper := NewOrphanSweeper(f.repo, f.local, SweeperConfig{StageMaxAge: time.Hour})

	// Everything is fresh: nothing is removed yet, the missing payload is still reported.
	report, err := sweeper.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepReport{MissingPayloads: 1}, report)

	sweeper.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	report, err = sweeper.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepReport{StagedRemoved: 1, UnreferencedRemoved: 1, MissingPayloads: 1}, report)

	staged, err := f.local.ListStaged(ctx)
	require.NoError(t, err)
	assert.Empty(t, staged)
	exists, err := f.local.Exists(ctx, "r_2_deadbeef.pdf")
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = f.local.Exists(ctx, kept.StorageKey())
	require.NoError(t, err)
	assert.True(t, exists, "referenced payloads survive")

	// Rows with missing payloads are reported, never deleted.
	assert.EqualValues(t, 2, countRows(t, f.db, &models.Resource{}))
}

func TestOrphanSweeper_StartRejectsBadSchedule(t *testing.T) {
	f := newFixture(t, 0)
	sweeper := NewOrphanSweeper(f.repo, f.local, SweeperConfig{Schedule: "every tuesday"})
	assert.Error(t, sweeper.Start(context.Background()))

	ok := NewOrphanSweeper(f.repo, f.local, SweeperConfig{Schedule: "@every 1h"})
	require.NoError(t, ok.Start(context.Background()))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ok.Stop(ctx)
}

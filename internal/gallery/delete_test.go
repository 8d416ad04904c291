package gallery

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lens/internal/posts"
)

func TestStorageKeyFromURL(t *testing.T) {
	const marker = "/public/images/"
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://x.supabase.co/storage/v1/object/public/images/foo.jpg", "foo.jpg", false},
		{"http://localhost:8080/public/images/1700-My_Photo.jpg", "1700-My_Photo.jpg", false},
		{"http://localhost:8080/public/images/caf%C3%A9%25.jpg", "café%.jpg", false},
		{"https://cdn.example.com/other/foo.jpg", "", false},
		{"http://localhost:8080/public/images/bad%zz", "", true},
	}
	for _, tt := range tests {
		got, err := StorageKeyFromURL(tt.url, marker)
		if tt.wantErr {
			assert.Error(t, err, tt.url)
			continue
		}
		require.NoError(t, err, tt.url)
		assert.Equal(t, tt.want, got, tt.url)
	}
}

func TestDelete_ConfirmedRemovesBlobThenRecord(t *testing.T) {
	records := newMemRecords("keep", "drop")
	f := newFixture(t, records)
	ctx := context.Background()
	require.NoError(t, f.ctrl.Refresh(ctx))
	drop := records.byCaption("drop")

	deleted, err := f.ctrl.Delete(ctx, drop.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	assert.Equal(t, []string{DeletePrompt}, f.prompts)
	assert.Equal(t, []string{"drop.jpg"}, f.blobs.deleted)
	assert.Equal(t, []uuid.UUID{drop.ID}, records.deleted)

	s := f.ctrl.Snapshot()
	require.Len(t, s.Posts, 1)
	assert.Equal(t, "keep", s.Posts[0].Caption)
}

func TestDelete_DeclinedIsNoop(t *testing.T) {
	records := newMemRecords("a")
	f := newFixture(t, records)
	f.confirm = false
	ctx := context.Background()
	require.NoError(t, f.ctrl.Refresh(ctx))

	deleted, err := f.ctrl.Delete(ctx, records.byCaption("a").ID)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Empty(t, f.blobs.deleted)
	assert.Empty(t, records.deleted)
}

func TestDelete_KeyDerivedFromLegacyURL(t *testing.T) {
	records := newMemRecords()
	legacy := records.add(posts.Payload{
		Caption:  "legacy",
		ImageURL: "https://x.supabase.co/storage/v1/object/public/images/foo%20bar.jpg",
	})
	external := records.add(posts.Payload{Caption: "external", ImageURL: "https://cdn.example.com/x.jpg"})
	f := newFixture(t, records)
	ctx := context.Background()
	require.NoError(t, f.ctrl.Refresh(ctx))

	_, err := f.ctrl.Delete(ctx, legacy.ID)
	require.NoError(t, err)
	_, err = f.ctrl.Delete(ctx, external.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"foo bar.jpg"}, f.blobs.deleted)
	assert.ElementsMatch(t, []uuid.UUID{legacy.ID, external.ID}, records.deleted)
}

func TestDelete_BlobFailureIgnored(t *testing.T) {
	records := newMemRecords("a")
	f := newFixture(t, records)
	f.blobs.deleteErr = errStore
	ctx := context.Background()
	require.NoError(t, f.ctrl.Refresh(ctx))

	deleted, err := f.ctrl.Delete(ctx, records.byCaption("a").ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Empty(t, f.alerts.all())
	assert.Empty(t, f.ctrl.Snapshot().Posts)
}

func TestDelete_RecordFailureAlerts(t *testing.T) {
	records := newMemRecords("a")
	f := newFixture(t, records)
	ctx := context.Background()
	require.NoError(t, f.ctrl.Refresh(ctx))
	records.deleteErr = errStore

	deleted, err := f.ctrl.Delete(ctx, records.byCaption("a").ID)
	require.ErrorIs(t, err, errStore)
	assert.False(t, deleted)
	assert.Equal(t, []string{"Delete failed: " + errStore.Error()}, f.alerts.all())
	assert.Len(t, f.ctrl.Snapshot().Posts, 1)
}

func TestDelete_EmptiedPageIsNotClamped(t *testing.T) {
	records := numbered(13)
	f := newFixture(t, records)
	ctx := context.Background()
	require.NoError(t, f.ctrl.SetPage(ctx, 1))

	s := f.ctrl.Snapshot()
	require.Len(t, s.Posts, 1)

	_, err := f.ctrl.Delete(ctx, s.Posts[0].ID)
	require.NoError(t, err)

	s = f.ctrl.Snapshot()
	assert.Equal(t, 1, s.Page)
	assert.Empty(t, s.Posts)
	assert.True(t, s.HasPrev)
}

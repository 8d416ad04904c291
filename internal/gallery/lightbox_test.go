package gallery

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openLightbox(t *testing.T, n, at int) (*fixture, []uuid.UUID) {
	t.Helper()
	f := newFixture(t, numbered(n))
	require.NoError(t, f.ctrl.Refresh(context.Background()))
	seq := f.ctrl.Snapshot().Sequence
	ids := make([]uuid.UUID, len(seq))
	for i, p := range seq {
		ids[i] = p.ID
	}
	require.NoError(t, f.ctrl.OpenLightbox(ids[at]))
	return f, ids
}

func TestOpenLightbox_UsesFullSequenceIndex(t *testing.T) {
	f := newFixture(t, numbered(30))
	ctx := context.Background()
	require.NoError(t, f.ctrl.SetPage(ctx, 1))

	s := f.ctrl.Snapshot()
	target := s.Posts[3]
	require.NoError(t, f.ctrl.OpenLightbox(target.ID))

	lb := f.ctrl.Snapshot().Lightbox
	assert.True(t, lb.Open)
	assert.Equal(t, 15, lb.Index)
	assert.Equal(t, 30, lb.Count)
	assert.Equal(t, target.ID, lb.Current.ID)
}

func TestOpenLightbox_UnknownID(t *testing.T) {
	f := newFixture(t, numbered(3))
	require.NoError(t, f.ctrl.Refresh(context.Background()))
	assert.ErrorIs(t, f.ctrl.OpenLightbox(uuid.New()), ErrNotInSequence)
	assert.False(t, f.ctrl.Snapshot().Lightbox.Open)
}

func TestLightbox_NavigationClamps(t *testing.T) {
	f, _ := openLightbox(t, 3, 0)

	f.ctrl.PreviousImage()
	assert.Equal(t, 0, f.ctrl.Snapshot().Lightbox.Index)

	f.ctrl.NextImage()
	f.ctrl.NextImage()
	f.ctrl.NextImage()
	assert.Equal(t, 2, f.ctrl.Snapshot().Lightbox.Index)
}

func TestLightbox_NavigationResetsZoom(t *testing.T) {
	f, _ := openLightbox(t, 3, 2)

	f.ctrl.ToggleZoom(Point{X: 150, Y: 60}, Rect{Left: 100, Top: 50, Width: 200, Height: 40})
	lb := f.ctrl.Snapshot().Lightbox
	assert.True(t, lb.Zoomed)
	assert.Equal(t, "scale(2.5)", lb.Transform)
	assert.Equal(t, "25.00% 25.00%", lb.TransformOrigin)

	// at the last item next does not move but still resets zoom
	f.ctrl.NextImage()
	lb = f.ctrl.Snapshot().Lightbox
	assert.Equal(t, 2, lb.Index)
	assert.False(t, lb.Zoomed)
	assert.Equal(t, "scale(1)", lb.Transform)
	assert.Equal(t, "center center", lb.TransformOrigin)
}

func TestLightbox_ZoomToggleRoundTrip(t *testing.T) {
	var lb Lightbox
	lb.setLength(1)
	require.NoError(t, lb.Open(0))

	lb.ToggleZoom(Point{X: 10, Y: 10}, Rect{Width: 20, Height: 40})
	assert.Equal(t, ZoomScale, lb.Scale())
	assert.Equal(t, Origin{X: 50, Y: 25}, lb.Origin())

	lb.ToggleZoom(Point{}, Rect{})
	assert.Equal(t, 1.0, lb.Scale())
	assert.Equal(t, centerOrigin, lb.Origin())

	lb.ToggleZoom(Point{X: 3}, Rect{})
	assert.Equal(t, centerOrigin, lb.Origin())
}

func TestLightbox_Keymap(t *testing.T) {
	f, _ := openLightbox(t, 3, 1)
	assert.True(t, f.ctrl.lightbox.KeysAttached())

	assert.True(t, f.ctrl.HandleKey(KeyNext))
	assert.Equal(t, 2, f.ctrl.Snapshot().Lightbox.Index)
	assert.True(t, f.ctrl.HandleKey(KeyPrev))
	assert.True(t, f.ctrl.HandleKey(KeyPrev))
	assert.Equal(t, 0, f.ctrl.Snapshot().Lightbox.Index)
	assert.False(t, f.ctrl.HandleKey("Enter"))

	assert.True(t, f.ctrl.HandleKey(KeyClose))
	assert.False(t, f.ctrl.Snapshot().Lightbox.Open)
	assert.False(t, f.ctrl.lightbox.KeysAttached())

	assert.False(t, f.ctrl.HandleKey(KeyNext))
	assert.Equal(t, 0, f.ctrl.lightbox.Index())
}

func TestLightbox_JumpAndThumbnails(t *testing.T) {
	f, ids := openLightbox(t, 5, 0)
	seq := f.ctrl.lightbox.ScrollSeq()

	assert.True(t, f.ctrl.JumpTo(3))
	assert.False(t, f.ctrl.JumpTo(5))
	assert.False(t, f.ctrl.JumpTo(-1))

	thumbs := f.ctrl.Thumbnails()
	require.Len(t, thumbs, 5)
	for i, th := range thumbs {
		assert.Equal(t, ids[i], th.Post.ID)
		assert.Equal(t, i == 3, th.Active, "thumb %d", i)
	}
	assert.Equal(t, seq+1, f.ctrl.lightbox.ScrollSeq())

	// same index keeps the scroll sequence
	f.ctrl.JumpTo(3)
	assert.Equal(t, seq+1, f.ctrl.lightbox.ScrollSeq())
}

func TestScrollOffset(t *testing.T) {
	// 20 thumbs: extent 20*56 + 19*8 = 1272
	assert.Equal(t, 0.0, ScrollOffset(0, 20, 400))
	assert.Equal(t, 10*64+28-200.0, ScrollOffset(10, 20, 400))
	assert.Equal(t, 1272-400.0, ScrollOffset(19, 20, 400))
	// strip narrower than viewport never scrolls
	assert.Equal(t, 0.0, ScrollOffset(2, 3, 864))
	assert.Equal(t, 0.0, ScrollOffset(0, 0, 864))
}

func TestLightbox_SequenceShrinksBelowIndex(t *testing.T) {
	f, ids := openLightbox(t, 3, 2)
	ctx := context.Background()

	_, err := f.ctrl.Delete(ctx, ids[2])
	require.NoError(t, err)

	assert.True(t, f.ctrl.lightbox.IsOpen())
	assert.False(t, f.ctrl.Snapshot().Lightbox.Open)
	_, ok := f.ctrl.lightbox.Current(f.ctrl.Snapshot().Sequence)
	assert.False(t, ok)

	f.ctrl.PreviousImage()
	lb := f.ctrl.Snapshot().Lightbox
	assert.True(t, lb.Open)
	assert.Equal(t, 1, lb.Index)
}

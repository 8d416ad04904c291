package gallery

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lens/internal/posts"
)

func TestUploadKey(t *testing.T) {
	now := time.Unix(1700000000, 42)
	tests := []struct {
		name string
		want string
	}{
		{"My Photo.jpg", "1700000000000000042-My_Photo.jpg"},
		{"a  b\tc.png", "1700000000000000042-a_b_c.png"},
		{`C:\Users\me\beach day.jpg`, "1700000000000000042-beach_day.jpg"},
		{"dir/sub/x.gif", "1700000000000000042-x.gif"},
		{"odd..name.jpg", "1700000000000000042-odd.name.jpg"},
		{"", "1700000000000000042-upload"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, UploadKey(now, tt.name), tt.name)
	}
}

func TestSave_CreateUploadsAndInserts(t *testing.T) {
	f := newFixture(t, newMemRecords())
	ctx := context.Background()

	f.ctrl.OpenCreate()
	f.ctrl.SetCaption("  Sunset  ")
	f.ctrl.SelectFile(fileUpload("My Photo.jpg", "jpeg-bytes"))
	require.NoError(t, f.ctrl.Save(ctx))

	key := "1700000000000000042-My_Photo.jpg"
	assert.Equal(t, []string{key}, f.blobs.keys())
	require.Len(t, f.records.inserted, 1)
	assert.Equal(t, posts.Payload{
		Caption:  "Sunset",
		ImageURL: "http://localhost:8080/public/images/" + key,
		ImageKey: key,
	}, f.records.inserted[0])

	s := f.ctrl.Snapshot()
	assert.False(t, s.Form.Open)
	assert.Empty(t, s.Form.Caption)
	assert.Empty(t, s.Form.FileName)
	assert.False(t, s.Form.Saving)
	require.Len(t, s.Posts, 1)
	assert.Equal(t, "Sunset", s.Posts[0].Caption)
	assert.Empty(t, f.alerts.all())
}

func TestSave_WhitespaceCaptionRejected(t *testing.T) {
	f := newFixture(t, newMemRecords())

	f.ctrl.OpenCreate()
	f.ctrl.SetCaption("   ")
	f.ctrl.SelectFile(fileUpload("a.jpg", "x"))

	assert.ErrorIs(t, f.ctrl.Save(context.Background()), ErrCaptionRequired)
	assert.Equal(t, []string{"Caption is required."}, f.alerts.all())
	assert.Empty(t, f.blobs.keys())
	assert.Empty(t, f.records.inserted)
	assert.True(t, f.ctrl.Snapshot().Form.Open)
}

func TestSave_CreateWithoutFileRejected(t *testing.T) {
	f := newFixture(t, newMemRecords())

	f.ctrl.OpenCreate()
	f.ctrl.SetCaption("no image")

	assert.ErrorIs(t, f.ctrl.Save(context.Background()), ErrImageRequired)
	assert.Equal(t, []string{"Please select an image to upload."}, f.alerts.all())
	assert.Empty(t, f.records.inserted)
}

func TestSave_EditWithoutFileKeepsImage(t *testing.T) {
	records := newMemRecords("before")
	f := newFixture(t, records)
	ctx := context.Background()
	require.NoError(t, f.ctrl.Refresh(ctx))
	orig := records.byCaption("before")

	require.NoError(t, f.ctrl.OpenEdit(orig.ID))
	s := f.ctrl.Snapshot()
	assert.True(t, s.Form.Editing)
	assert.Equal(t, "before", s.Form.Caption)

	f.ctrl.SetCaption("after")
	require.NoError(t, f.ctrl.Save(ctx))

	assert.Empty(t, f.blobs.keys())
	assert.Equal(t, posts.Payload{Caption: "after", ImageURL: orig.ImageURL, ImageKey: orig.ImageKey}, records.updated[orig.ID])
	assert.Equal(t, "after", f.ctrl.Snapshot().Posts[0].Caption)
}

func TestSave_EditWithFileReplacesImage(t *testing.T) {
	records := newMemRecords("before")
	f := newFixture(t, records)
	ctx := context.Background()
	require.NoError(t, f.ctrl.Refresh(ctx))
	orig := records.byCaption("before")

	require.NoError(t, f.ctrl.OpenEdit(orig.ID))
	f.ctrl.SelectFile(fileUpload("new one.png", "png"))
	require.NoError(t, f.ctrl.Save(ctx))

	got := records.updated[orig.ID]
	assert.Equal(t, "before", got.Caption)
	assert.Equal(t, "1700000000000000042-new_one.png", got.ImageKey)
	assert.NotEqual(t, orig.ImageURL, got.ImageURL)
}

func TestSave_RecordFailureKeepsFormAndBlob(t *testing.T) {
	records := newMemRecords()
	records.insertErr = errStore
	f := newFixture(t, records)

	f.ctrl.OpenCreate()
	f.ctrl.SetCaption("cap")
	f.ctrl.SelectFile(fileUpload("a.jpg", "x"))

	err := f.ctrl.Save(context.Background())
	require.ErrorIs(t, err, errStore)
	assert.Equal(t, []string{err.Error()}, f.alerts.all())

	s := f.ctrl.Snapshot()
	assert.True(t, s.Form.Open)
	assert.False(t, s.Form.Saving)
	assert.Equal(t, "cap", s.Form.Caption)
	assert.Equal(t, "a.jpg", s.Form.FileName)
	// orphaned upload stays
	assert.Len(t, f.blobs.keys(), 1)
}

func TestSave_UploadFailureSkipsRecord(t *testing.T) {
	f := newFixture(t, newMemRecords())
	f.blobs.uploadErr = errStore

	f.ctrl.OpenCreate()
	f.ctrl.SetCaption("cap")
	f.ctrl.SelectFile(fileUpload("a.jpg", "x"))

	require.ErrorIs(t, f.ctrl.Save(context.Background()), errStore)
	assert.Empty(t, f.records.inserted)
	assert.Len(t, f.alerts.all(), 1)
}

func TestSave_SecondSubmitWhileSaving(t *testing.T) {
	f := newFixture(t, newMemRecords())
	ctx := context.Background()

	opened := make(chan struct{})
	release := make(chan struct{})
	f.ctrl.OpenCreate()
	f.ctrl.SetCaption("slow")
	f.ctrl.SelectFile(&Upload{
		Name: "slow.jpg",
		Open: func() (io.ReadCloser, error) {
			close(opened)
			<-release
			return io.NopCloser(emptyReader{}), nil
		},
	})

	errc := make(chan error, 1)
	go func() { errc <- f.ctrl.Save(ctx) }()
	<-opened

	assert.True(t, f.ctrl.Snapshot().Form.Saving)
	assert.ErrorIs(t, f.ctrl.Save(ctx), ErrSaveInProgress)

	close(release)
	require.NoError(t, <-errc)
	assert.Len(t, f.records.inserted, 1)
}

func TestForm_ResetAndClose(t *testing.T) {
	records := newMemRecords("x")
	f := newFixture(t, records)
	require.NoError(t, f.ctrl.Refresh(context.Background()))

	require.NoError(t, f.ctrl.OpenEdit(records.byCaption("x").ID))
	f.ctrl.SelectFile(fileUpload("a.jpg", "x"))

	f.ctrl.CloseForm()
	s := f.ctrl.Snapshot()
	assert.False(t, s.Form.Open)
	assert.True(t, s.Form.Editing)
	assert.Equal(t, "a.jpg", s.Form.FileName)

	f.ctrl.ResetForm()
	s = f.ctrl.Snapshot()
	assert.False(t, s.Form.Editing)
	assert.Empty(t, s.Form.Caption)
	assert.Empty(t, s.Form.FileName)

	f.ctrl.OpenCreate()
	assert.True(t, f.ctrl.Snapshot().Form.Open)
}

func TestOpenEdit_UnknownPost(t *testing.T) {
	f := newFixture(t, newMemRecords())
	assert.ErrorIs(t, f.ctrl.OpenEdit(uuid.New()), posts.ErrPostNotFound)
	assert.False(t, f.ctrl.Snapshot().Form.Open)
}

type emptyReader struct{}

func (emptyReader) Read([]byte) (int, error) { return 0, io.EOF }

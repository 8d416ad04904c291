package gallery

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"lens/internal/posts"
)

// Upload is a file picked in the form. Open is called once per save.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

type formState struct {
	open    bool
	target  *posts.Post
	caption string
	file    *Upload
	saving  bool
}

func (f *formState) clear() {
	f.target = nil
	f.caption = ""
	f.file = nil
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// UploadKey derives the blob key for a file picked at now: the
// nanosecond timestamp, a dash, and the base name with whitespace runs
// replaced by underscores.
func UploadKey(now time.Time, name string) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	base = whitespaceRun.ReplaceAllString(base, "_")
	for strings.Contains(base, "..") {
		base = strings.ReplaceAll(base, "..", ".")
	}
	if base == "" || base == "." || base == "/" {
		base = "upload"
	}
	return fmt.Sprintf("%d-%s", now.UnixNano(), base)
}

// OpenCreate opens an empty form for a new post
func (c *Controller) OpenCreate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form.clear()
	c.form.open = true
	c.changed()
}

// OpenEdit opens the form prefilled with the post's caption
func (c *Controller) OpenEdit(id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.lookup(id)
	if !ok {
		return posts.ErrPostNotFound
	}
	c.form.target = &p
	c.form.caption = p.Caption
	c.form.file = nil
	c.form.open = true
	c.changed()
	return nil
}

func (c *Controller) SetCaption(caption string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form.caption = caption
	c.changed()
}

// SelectFile sets the picked file; nil clears the selection
func (c *Controller) SelectFile(u *Upload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form.file = u
	c.changed()
}

// ResetForm clears caption, file and edit target but leaves the form open
func (c *Controller) ResetForm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form.clear()
	c.changed()
}

// CloseForm hides the form and keeps what was typed
func (c *Controller) CloseForm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form.open = false
	c.changed()
}

// Save validates the form, uploads the picked file if any, then inserts or
// updates the record. Failures are alerted and leave the form open; an
// uploaded blob is not removed when the record write fails.
func (c *Controller) Save(ctx context.Context) error {
	c.mu.Lock()
	if c.form.saving {
		c.mu.Unlock()
		return ErrSaveInProgress
	}
	caption := strings.TrimSpace(c.form.caption)
	target := c.form.target
	file := c.form.file

	if caption == "" {
		c.mu.Unlock()
		c.alert("Caption is required.")
		return ErrCaptionRequired
	}
	if target == nil && file == nil {
		c.mu.Unlock()
		c.alert("Please select an image to upload.")
		return ErrImageRequired
	}

	c.form.saving = true
	c.changed()
	c.mu.Unlock()

	err := c.persist(ctx, target, caption, file)

	c.mu.Lock()
	c.form.saving = false
	if err != nil {
		c.changed()
		c.mu.Unlock()
		c.logger.Error("Failed to save post", "error", err)
		c.alert(err.Error())
		return err
	}
	c.form.open = false
	c.form.clear()
	c.changed()
	c.mu.Unlock()

	// a failed refresh is already alerted; the save itself went through
	_ = c.Refresh(ctx)
	return nil
}

func (c *Controller) persist(ctx context.Context, target *posts.Post, caption string, file *Upload) error {
	var imageURL, imageKey string
	if target != nil {
		imageURL, imageKey = target.ImageURL, target.ImageKey
	}

	if file != nil {
		key := UploadKey(c.now(), file.Name)
		if err := c.upload(ctx, key, file); err != nil {
			return err
		}
		imageURL = c.blobs.PublicURL(key)
		imageKey = key
	}

	payload := posts.Payload{Caption: caption, ImageURL: imageURL, ImageKey: imageKey}

	if target != nil {
		if _, err := c.records.Update(ctx, target.ID, payload); err != nil {
			return fmt.Errorf("update post: %w", err)
		}
		c.logger.Info("Post updated", "id", target.ID)
		return nil
	}

	created, err := c.records.Insert(ctx, payload)
	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	c.logger.Info("Post created", "id", created.ID, "image_key", imageKey)
	return nil
}

func (c *Controller) upload(ctx context.Context, key string, file *Upload) error {
	if file.Open == nil {
		return fmt.Errorf("upload %s: no content", file.Name)
	}
	body, err := file.Open()
	if err != nil {
		return fmt.Errorf("read %s: %w", file.Name, err)
	}
	defer body.Close()

	if err := c.blobs.Upload(ctx, key, body, file.Size, file.ContentType); err != nil {
		return fmt.Errorf("upload image: %w", err)
	}
	return nil
}

package gallery

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"lens/internal/posts"
)

// DeletePrompt is asked through the Confirmer before a delete
const DeletePrompt = "Delete this permanently?"

// StorageKeyFromURL returns the blob key embedded in a public image URL:
// the remainder after marker, URL-unescaped. It returns "" when the marker
// is absent.
func StorageKeyFromURL(rawURL, marker string) (string, error) {
	if marker == "" {
		return "", nil
	}
	idx := strings.Index(rawURL, marker)
	if idx < 0 {
		return "", nil
	}
	rest := rawURL[idx+len(marker):]
	key, err := url.PathUnescape(rest)
	if err != nil {
		return "", fmt.Errorf("decode storage key %q: %w", rest, err)
	}
	return key, nil
}

// Delete removes a post after operator confirmation. The blob goes first
// and its failure only logs; the record delete decides the outcome. It
// reports whether the post was deleted.
func (c *Controller) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	p, ok := c.Post(id)
	if !ok {
		return false, posts.ErrPostNotFound
	}

	if !c.confirmer.Confirm(DeletePrompt) {
		return false, nil
	}

	key := p.ImageKey
	if key == "" {
		var err error
		key, err = StorageKeyFromURL(p.ImageURL, c.marker)
		if err != nil {
			c.alert("Delete failed: " + err.Error())
			return false, err
		}
	}

	if key != "" {
		if err := c.blobs.Delete(ctx, key); err != nil {
			c.logger.Warn("Failed to delete image blob", "id", p.ID, "key", key, "error", err)
		}
	}

	if err := c.records.Delete(ctx, p.ID); err != nil {
		c.logger.Error("Failed to delete post", "id", p.ID, "error", err)
		c.alert("Delete failed: " + err.Error())
		return false, fmt.Errorf("delete post: %w", err)
	}
	c.logger.Info("Post deleted", "id", p.ID)

	_ = c.Refresh(ctx)
	return true, nil
}

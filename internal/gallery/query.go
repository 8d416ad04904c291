package gallery

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"lens/internal/posts"
)

// PageSizeForWidth maps a viewport width in CSS pixels to a page size
func PageSizeForWidth(width int) int {
	switch {
	case width <= 0:
		return DefaultPageSize
	case width < 640:
		return 6
	case width < 1024:
		return 8
	case width < 1536:
		return 12
	default:
		return 18
	}
}

// SetSearch replaces the caption filter, returns to the first page and
// refreshes.
func (c *Controller) SetSearch(ctx context.Context, text string) error {
	c.mu.Lock()
	c.search = text
	c.page = 0
	c.changed()
	c.mu.Unlock()

	return c.Refresh(ctx)
}

// SetPage jumps to page p. Pages past the end are not revalidated and
// simply show an empty slice.
func (c *Controller) SetPage(ctx context.Context, p int) error {
	if p < 0 {
		p = 0
	}

	c.mu.Lock()
	c.page = p
	c.changed()
	c.mu.Unlock()

	return c.Refresh(ctx)
}

// NextPage advances one page unless the current one is the last
func (c *Controller) NextPage(ctx context.Context) error {
	c.mu.Lock()
	if !c.hasNext() {
		c.mu.Unlock()
		return nil
	}
	c.page++
	c.changed()
	c.mu.Unlock()

	return c.Refresh(ctx)
}

// PrevPage goes back one page unless the current one is the first
func (c *Controller) PrevPage(ctx context.Context) error {
	c.mu.Lock()
	if !c.hasPrev() {
		c.mu.Unlock()
		return nil
	}
	c.page--
	c.changed()
	c.mu.Unlock()

	return c.Refresh(ctx)
}

// SetPageSize changes the page size and refreshes when it differs
func (c *Controller) SetPageSize(ctx context.Context, n int) error {
	if n <= 0 {
		return ErrInvalidPageSize
	}

	c.mu.Lock()
	if n == c.pageSize {
		c.mu.Unlock()
		return nil
	}
	c.pageSize = n
	c.changed()
	c.mu.Unlock()

	return c.Refresh(ctx)
}

func (c *Controller) HasNext() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasNext()
}

func (c *Controller) HasPrev() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasPrev()
}

func (c *Controller) hasNext() bool {
	return int64(c.page+1)*int64(c.pageSize) < c.total
}

func (c *Controller) hasPrev() bool {
	return c.page > 0
}

// Refresh re-fetches the page slice with its total and the full sequence
// for the current query. Results of a refresh that was overtaken by a newer
// one are dropped.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.issued++
	gen := c.issued
	search, page, size := c.search, c.page, c.pageSize
	c.mu.Unlock()

	var (
		slice    []posts.Post
		total    int64
		sequence []posts.Post
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		slice, total, err = c.records.Page(gctx, search, page*size, size)
		return err
	})
	g.Go(func() error {
		var err error
		sequence, err = c.records.All(gctx, search)
		return err
	})

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Error("Failed to fetch posts", "search", search, "page", page, "error", err)
		c.alert(err.Error())
		return fmt.Errorf("refresh gallery: %w", err)
	}

	if slice == nil {
		slice = []posts.Post{}
	}
	if sequence == nil {
		sequence = []posts.Post{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen < c.applied {
		c.logger.Debug("Dropping stale gallery refresh", "generation", gen, "applied", c.applied)
		return nil
	}
	c.applied = gen
	c.pageSlice = slice
	c.total = total
	c.sequence = sequence
	c.lightbox.setLength(len(sequence))
	c.changed()
	return nil
}

// Restore sets search, page and page size without fetching and reports
// whether anything changed. The caller refreshes or mounts afterwards.
// A non-positive pageSize keeps the current size.
func (c *Controller) Restore(search string, page, pageSize int) bool {
	if page < 0 {
		page = 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if pageSize <= 0 {
		pageSize = c.pageSize
	}
	if search == c.search && page == c.page && pageSize == c.pageSize {
		return false
	}
	c.search = search
	c.page = page
	c.pageSize = pageSize
	c.changed()
	return true
}

package gallery

import (
	"github.com/google/uuid"

	"lens/internal/posts"
)

// Thumbnail strip geometry in CSS pixels
const (
	ThumbSize = 56
	ThumbGap  = 8

	// DefaultStripViewport is the visible strip width at full layout width
	DefaultStripViewport = 864
)

// Thumb is one entry of the lightbox thumbnail strip
type Thumb struct {
	Post   posts.Post `json:"post"`
	Index  int        `json:"index"`
	Active bool       `json:"active"`
}

// ScrollOffset is the strip scroll position that centers thumbnail index
// within viewport, clamped to the strip extent.
func ScrollOffset(index, count int, viewport float64) float64 {
	if count <= 0 || viewport <= 0 {
		return 0
	}
	extent := float64(count*ThumbSize + (count-1)*ThumbGap)
	limit := extent - viewport
	if limit <= 0 {
		return 0
	}
	center := float64(index*(ThumbSize+ThumbGap)) + ThumbSize/2.0
	offset := center - viewport/2
	if offset < 0 {
		return 0
	}
	if offset > limit {
		return limit
	}
	return offset
}

// FormView is the admin form as the surface renders it
type FormView struct {
	Open     bool       `json:"open"`
	Editing  bool       `json:"editing"`
	TargetID *uuid.UUID `json:"target_id,omitempty"`
	Caption  string     `json:"caption"`
	FileName string     `json:"file_name,omitempty"`
	Saving   bool       `json:"saving"`
}

// LightboxView is the lightbox as the surface renders it. Open is false
// when there is no current item.
type LightboxView struct {
	Open            bool        `json:"open"`
	Index           int         `json:"index"`
	Count           int         `json:"count"`
	Current         *posts.Post `json:"current,omitempty"`
	Zoomed          bool        `json:"zoomed"`
	Transform       string      `json:"transform"`
	TransformOrigin string      `json:"transform_origin"`
	Thumbs          []Thumb     `json:"thumbs,omitempty"`
	ScrollSeq       uint64      `json:"scroll_seq"`
	ScrollOffset    float64     `json:"scroll_offset"`
}

// Snapshot is a consistent copy of the controller state
type Snapshot struct {
	Version    uint64       `json:"version"`
	Search     string       `json:"search"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	Total      int64        `json:"total"`
	TotalPages int          `json:"total_pages"`
	HasPrev    bool         `json:"has_prev"`
	HasNext    bool         `json:"has_next"`
	Posts      []posts.Post `json:"posts"`
	Sequence   []posts.Post `json:"-"`
	Mounted    bool         `json:"mounted"`
	Form       FormView     `json:"form"`
	Lightbox   LightboxView `json:"lightbox"`
}

// Snapshot copies the current state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Version:  c.version,
		Search:   c.search,
		Page:     c.page,
		PageSize: c.pageSize,
		Total:    c.total,
		HasPrev:  c.hasPrev(),
		HasNext:  c.hasNext(),
		Posts:    append([]posts.Post(nil), c.pageSlice...),
		Sequence: append([]posts.Post(nil), c.sequence...),
		Mounted:  c.mounted,
	}
	if c.pageSize > 0 {
		s.TotalPages = int((c.total + int64(c.pageSize) - 1) / int64(c.pageSize))
	}

	s.Form = FormView{
		Open:    c.form.open,
		Editing: c.form.target != nil,
		Caption: c.form.caption,
		Saving:  c.form.saving,
	}
	if c.form.target != nil {
		id := c.form.target.ID
		s.Form.TargetID = &id
	}
	if c.form.file != nil {
		s.Form.FileName = c.form.file.Name
	}

	if cur, ok := c.lightbox.Current(c.sequence); ok {
		s.Lightbox = LightboxView{
			Open:            true,
			Index:           c.lightbox.Index(),
			Count:           len(c.sequence),
			Current:         &cur,
			Zoomed:          c.lightbox.Zoomed(),
			Transform:       c.lightbox.Transform(),
			TransformOrigin: c.lightbox.TransformOrigin(),
			Thumbs:          c.thumbnails(),
			ScrollSeq:       c.lightbox.ScrollSeq(),
			ScrollOffset:    ScrollOffset(c.lightbox.Index(), len(c.sequence), DefaultStripViewport),
		}
	}
	return s
}

// Thumbnails mirrors the full sequence with the active entry flagged
func (c *Controller) Thumbnails() []Thumb {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.thumbnails()
}

func (c *Controller) thumbnails() []Thumb {
	thumbs := make([]Thumb, len(c.sequence))
	for i, p := range c.sequence {
		thumbs[i] = Thumb{Post: p, Index: i, Active: c.lightbox.IsOpen() && i == c.lightbox.Index()}
	}
	return thumbs
}

// ScrollOffset centers the active thumbnail within a strip of viewport
// pixels.
func (c *Controller) ScrollOffset(viewport float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ScrollOffset(c.lightbox.Index(), len(c.sequence), viewport)
}

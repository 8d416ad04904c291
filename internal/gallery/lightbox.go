package gallery

import (
	"fmt"

	"github.com/google/uuid"

	"lens/internal/posts"
)

// ZoomScale is the magnification applied by ToggleZoom
const ZoomScale = 2.5

// Lightbox keys
const (
	KeyNext  = "ArrowRight"
	KeyPrev  = "ArrowLeft"
	KeyClose = "Escape"
)

// Point is a pointer position in client coordinates
type Point struct {
	X, Y float64
}

// Rect is the bounding box of the displayed image in client coordinates
type Rect struct {
	Left, Top, Width, Height float64
}

// Origin is a transform origin in percent of the image box
type Origin struct {
	X, Y float64
}

var centerOrigin = Origin{X: 50, Y: 50}

type keymap map[string]func(*Lightbox)

// Lightbox is the full-screen viewer over the full sequence. The zero value
// is closed. It is not safe for concurrent use; the Controller guards it.
type Lightbox struct {
	open   bool
	index  int
	length int
	zoomed bool
	origin Origin
	keys   keymap

	// scrollSeq changes whenever the active index does
	scrollSeq uint64
}

// Open shows the item at index and attaches the key map
func (lb *Lightbox) Open(index int) error {
	if index < 0 || index >= lb.length {
		return fmt.Errorf("lightbox index %d out of range [0,%d)", index, lb.length)
	}
	lb.open = true
	lb.index = index
	lb.scrollSeq++
	lb.resetZoom()
	lb.keys = keymap{
		KeyNext:  (*Lightbox).Next,
		KeyPrev:  (*Lightbox).Previous,
		KeyClose: (*Lightbox).Close,
	}
	return nil
}

func (lb *Lightbox) Close() {
	lb.open = false
	lb.keys = nil
	lb.resetZoom()
}

// Next advances without wrapping
func (lb *Lightbox) Next() {
	if !lb.open {
		return
	}
	if lb.index+1 < lb.length {
		lb.setIndex(lb.index + 1)
	}
	lb.resetZoom()
}

// Previous goes back without wrapping
func (lb *Lightbox) Previous() {
	if !lb.open {
		return
	}
	if lb.index > 0 {
		lb.setIndex(lb.index - 1)
	}
	lb.resetZoom()
}

// Jump selects item i, as a thumbnail click does. Out of range is ignored.
func (lb *Lightbox) Jump(i int) bool {
	if !lb.open || i < 0 || i >= lb.length {
		return false
	}
	lb.setIndex(i)
	lb.resetZoom()
	return true
}

// ToggleZoom zooms in around the pointer, or back out to the plain image
func (lb *Lightbox) ToggleZoom(pointer Point, bounds Rect) {
	if !lb.open {
		return
	}
	if lb.zoomed {
		lb.resetZoom()
		return
	}
	lb.zoomed = true
	lb.origin = centerOrigin
	if bounds.Width > 0 && bounds.Height > 0 {
		lb.origin = Origin{
			X: (pointer.X - bounds.Left) / bounds.Width * 100,
			Y: (pointer.Y - bounds.Top) / bounds.Height * 100,
		}
	}
}

// HandleKey runs the action bound to key. It reports false when the key is
// unbound or the lightbox is closed.
func (lb *Lightbox) HandleKey(key string) bool {
	action, ok := lb.keys[key]
	if !ok {
		return false
	}
	action(lb)
	return true
}

func (lb *Lightbox) IsOpen() bool       { return lb.open }
func (lb *Lightbox) Index() int         { return lb.index }
func (lb *Lightbox) Zoomed() bool       { return lb.zoomed }
func (lb *Lightbox) KeysAttached() bool { return lb.keys != nil }
func (lb *Lightbox) ScrollSeq() uint64  { return lb.scrollSeq }

func (lb *Lightbox) Scale() float64 {
	if lb.zoomed {
		return ZoomScale
	}
	return 1
}

func (lb *Lightbox) Origin() Origin {
	if lb.zoomed {
		return lb.origin
	}
	return centerOrigin
}

// Transform renders the CSS transform of the image
func (lb *Lightbox) Transform() string {
	return fmt.Sprintf("scale(%g)", lb.Scale())
}

// TransformOrigin renders the CSS transform-origin of the image
func (lb *Lightbox) TransformOrigin() string {
	if !lb.zoomed {
		return "center center"
	}
	return fmt.Sprintf("%.2f%% %.2f%%", lb.origin.X, lb.origin.Y)
}

// Current returns the shown item, or false when closed or when the
// sequence shrank below the index.
func (lb *Lightbox) Current(sequence []posts.Post) (posts.Post, bool) {
	if !lb.open || lb.index < 0 || lb.index >= len(sequence) {
		return posts.Post{}, false
	}
	return sequence[lb.index], true
}

func (lb *Lightbox) setIndex(i int) {
	if i != lb.index {
		lb.index = i
		lb.scrollSeq++
	}
}

func (lb *Lightbox) resetZoom() {
	lb.zoomed = false
	lb.origin = centerOrigin
}

func (lb *Lightbox) setLength(n int) {
	lb.length = n
}

// OpenLightbox opens the lightbox on the post's position in the full
// sequence.
func (c *Controller) OpenLightbox(id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := indexOf(c.sequence, id)
	if i < 0 {
		return ErrNotInSequence
	}
	c.lightbox.setLength(len(c.sequence))
	if err := c.lightbox.Open(i); err != nil {
		return err
	}
	c.changed()
	return nil
}

func (c *Controller) NextImage() {
	c.withLightbox(func(lb *Lightbox) { lb.Next() })
}

func (c *Controller) PreviousImage() {
	c.withLightbox(func(lb *Lightbox) { lb.Previous() })
}

func (c *Controller) CloseLightbox() {
	c.withLightbox(func(lb *Lightbox) { lb.Close() })
}

// JumpTo selects a thumbnail by its index in the full sequence
func (c *Controller) JumpTo(i int) bool {
	var ok bool
	c.withLightbox(func(lb *Lightbox) { ok = lb.Jump(i) })
	return ok
}

func (c *Controller) ToggleZoom(pointer Point, bounds Rect) {
	c.withLightbox(func(lb *Lightbox) { lb.ToggleZoom(pointer, bounds) })
}

// HandleKey routes a key press to the lightbox key map
func (c *Controller) HandleKey(key string) bool {
	var ok bool
	c.withLightbox(func(lb *Lightbox) { ok = lb.HandleKey(key) })
	return ok
}

func (c *Controller) withLightbox(fn func(lb *Lightbox)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.lightbox)
	c.changed()
}

package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strconv"

	"lens/internal/gallery"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	viewerSlots = mustSlots(map[Slot]string{
		SlotSearch: "search-box",
	})
	adminSlots = mustSlots(map[Slot]string{
		SlotSearch:   "search-box",
		SlotNavRight: "admin-actions",
	})
)

// pageData is what the layout template renders
type pageData struct {
	Title    string
	Admin    bool
	BasePath string
	ReturnTo string
	State    gallery.Snapshot
	Alerts   []string
	Slots    Slots

	// Confirm is set on the delete confirmation page
	Confirm *confirmData
}

type confirmData struct {
	Prompt  string
	PostID  string
	Caption string
}

type renderer struct {
	tmpl *template.Template
}

func newRenderer() (*renderer, error) {
	r := &renderer{}
	funcs := template.FuncMap{
		"slot": r.slot,
		"add":  func(a, b int) int { return a + b },
		"pageURL": func(base, search string, page int) string {
			q := url.Values{}
			if search != "" {
				q.Set("q", search)
			}
			q.Set("page", strconv.Itoa(page))
			return base + "?" + q.Encode()
		},
		"px": func(v float64) string { return fmt.Sprintf("%.0f", v) },
		// zoomStyle renders the lightbox transform, built only from numbers
		"zoomStyle": func(lb gallery.LightboxView) template.CSS {
			return template.CSS(fmt.Sprintf("transform:%s;transform-origin:%s", lb.Transform, lb.TransformOrigin))
		},
	}

	t, err := template.New("lens").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	r.tmpl = t
	return r, nil
}

// slot renders the template filling name for data, or nothing
func (r *renderer) slot(name string, data pageData) (template.HTML, error) {
	slot := Slot(name)
	if !knownSlots[slot] {
		return "", fmt.Errorf("unknown slot %q", name)
	}
	tmplName, ok := data.Slots.Template(slot)
	if !ok {
		return "", nil
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, tmplName, data); err != nil {
		return "", fmt.Errorf("render slot %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}

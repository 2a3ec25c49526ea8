// Package web renders the admin pages. Templates and static assets are
// embedded in the binary.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const layoutFile = "templates/layout.html"

// standalone pages are rendered without the sidebar layout.
var standalone = map[string]bool{"login.html": true}

// Page is the data every page template receives.
type Page struct {
	Title        string
	Active       string
	UserEmail    string
	DisplayName  string
	AvatarURL    string
	DarkMode     bool
	PendingBadge int
	Flash        string
	FlashType    string
	Data         interface{}
}

// Renderer implements echo.Renderer over one parsed template set per page.
type Renderer struct {
	pages map[string]*template.Template
}

// New parses the embedded layout and pages.
func New() (*Renderer, error) {
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	r := &Renderer{pages: map[string]*template.Template{}}
	for _, f := range files {
		name := path.Base(f)
		if f == layoutFile {
			continue
		}
		patterns := []string{layoutFile, f}
		if standalone[name] {
			patterns = []string{f}
		}
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, patterns...)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render implements echo.Renderer.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	entry := "layout"
	if standalone[name] {
		entry = strings.TrimSuffix(name, ".html")
	}
	return t.ExecuteTemplate(w, entry, data)
}

// Static serves the embedded assets under /static.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

var funcs = template.FuncMap{
	"datetime": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Local().Format("Jan 2, 2006 3:04 PM")
	},
	"date": func(t time.Time) string { return t.Local().Format("Jan 2, 2006") },
	"label": func(s string) string {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
	"contains": func(list []string, v string) bool {
		for _, s := range list {
			if s == v {
				return true
			}
		}
		return false
	},
}

// Package web holds the embedded page templates and static assets.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"

	"github.com/kalmas/kalmas-net/internal/page"
	"github.com/kalmas/kalmas-net/internal/view"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Page is the data handed to the shell template.
type Page struct {
	Meta  *page.Meta
	Nav   view.Nav
	View  string
	Model any
}

// Message is the model for views that only show a heading and a line of text.
type Message struct {
	Heading string
	Text    string
}

// Renderer executes the site templates.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// HasPartial reports whether name is a renderable fragment.
func (r *Renderer) HasPartial(name string) bool {
	return name != "shell" && r.tmpl.Lookup(name) != nil
}

// RenderPage writes the full shell for p. Output is buffered so a template
// error never leaves a half-written page.
func (r *Renderer) RenderPage(w io.Writer, p Page) error {
	return r.execute(w, "shell", p)
}

// RenderPartial writes the named fragment for model.
func (r *Renderer) RenderPartial(w io.Writer, name string, model any) error {
	if !r.HasPartial(name) {
		return fmt.Errorf("unknown partial %q", name)
	}
	return r.execute(w, name, model)
}

func (r *Renderer) execute(w io.Writer, name string, data any) error {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// StaticHandler serves the embedded static assets. Mount it with the
// /static/ prefix stripped.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServerFS(sub)
}

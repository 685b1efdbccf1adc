// Package view renders HTML pages from an embedded template set. Templates
// are addressed by view name ("users/index", "errors/404") and receive a
// plain data map; everything else about them is presentation plumbing.
package view

import (
	"embed"
	"fmt"
	"html/template"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.tmpl
var files embed.FS

// Renderer resolves view names to templates.
type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(files, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Template exposes the parsed set for gin's HTML renderer.
func (r *Renderer) Template() *template.Template {
	return r.tmpl
}

// HTML writes the named view with the given data.
func (r *Renderer) HTML(c *gin.Context, code int, name string, data gin.H) {
	c.HTML(code, name, data)
}

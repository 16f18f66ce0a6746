// Package handlers provides the HTTP handlers for the HerbWise web
// interface.
package handlers

import (
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templatesFS embed.FS

// pageTemplates holds every page and partial, parsed once at startup.
var pageTemplates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// render executes a named template. Callers treat an error as a 500;
// with embedded templates it only fires on a template bug.
func render(w io.Writer, name string, data any) error {
	if err := pageTemplates.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	return nil
}

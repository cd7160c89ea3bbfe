// Package web holds the HTML pages served by the site.
package web

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses every page. Each page is addressed by its file name,
// for example "login.html".
func Templates() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}

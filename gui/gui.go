package gui

import (
	"embed"
	"html/template"
	"io"
	"io/fs"
)

//go:embed templates/*.html
var templateFiles embed.FS

//go:embed static
var StaticFiles embed.FS

var templates = template.Must(template.ParseFS(templateFiles, "templates/*.html"))

// StaticFS roots the embedded assets at the serving path, stripping
// the "static/" embed prefix.
func StaticFS() fs.FS {
	sub, err := fs.Sub(StaticFiles, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Render writes the named template. Callers set headers and status
// before rendering.
func Render(w io.Writer, name string, data any) error {
	return templates.ExecuteTemplate(w, name, data)
}

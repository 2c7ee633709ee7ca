// Package frontend embeds the web interface.
package frontend

import (
	"embed"
	"io/fs"
)

//go:embed index.html app.js style.css
var files embed.FS

// FS returns the static files served at the site root.
func FS() fs.FS {
	return files
}

package httpserver

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// staticFiles serves the web client from dir. Paths without an extension are
// client-side routes and get index.html.
func staticFiles(dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := path.Clean("/" + r.URL.Path)
		if !strings.Contains(path.Base(name), ".") {
			name = "/index.html"
		}
		full := filepath.Join(dir, filepath.FromSlash(name))

		fi, err := os.Stat(full)
		if err != nil || fi.IsDir() {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, full)
	}
}

// Package client embeds the browser side of stepform: the live protocol
// script and the wizard stylesheet, served under /_live/.
package client

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed src/stepform.js src/stepform.css
var src embed.FS

// Files is the asset tree with the src/ prefix stripped.
var Files = mustSub(src, "src")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

// Handler serves Files. Assets are revalidated on every load since they
// are not fingerprinted.
func Handler() http.Handler {
	files := http.FileServerFS(Files)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		files.ServeHTTP(w, r)
	})
}

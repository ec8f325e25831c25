package handler

import (
	"embed"
	"net/http"
)

//go:embed static/index.html
var staticFS embed.FS

// ChatPage serves the embedded single-page chat UI at GET /.
// The page is a plain HTML client of POST /v1/chat; response rendering
// happens entirely in the browser.
func ChatPage(w http.ResponseWriter, r *http.Request) {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, "chat page unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

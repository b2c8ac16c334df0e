// ABOUTME: Routes for the browser pages of the admin panel
// ABOUTME: Pages are shells; their scripts call /api/me and redirect to /login when signed out

package webadmin

import (
	"net/http"

	"github.com/smherdgn/turn-management/internal/assets"
)

func (a *Admin) registerPages(mux *http.ServeMux) {
	mux.Handle("GET /static/", http.StripPrefix("/static/", assets.FileServer()))

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/users", http.StatusFound)
	})
	mux.HandleFunc("GET /login", a.handlePage(pageLogin, "Login"))
	mux.HandleFunc("GET /users", a.handlePage(pageUsers, "Relay Users"))
	mux.HandleFunc("GET /status", a.handlePage(pageStatus, "Service Status"))
	mux.HandleFunc("GET /setup", a.handlePage(pageSetup, "Setup Guide"))
}

func (a *Admin) handlePage(name, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.pages.render(w, name, pageData{
			Title:       title,
			Realm:       a.users.Realm(),
			ServiceName: a.controller.ServiceName(),
		})
	}
}

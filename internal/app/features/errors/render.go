// internal/app/features/errors/render.go
package errors

import (
	"net/http"

	"github.com/dalemusser/softmanager/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/dalemusser/waffle/pantry/templates"
)

// RenderForbidden writes a 403 and shows the access error page with msg.
// If backURL is empty, it resolves a safe back URL with a default fallback.
func RenderForbidden(w http.ResponseWriter, r *http.Request, msg, backURL string) {
	if backURL == "" {
		backURL = httpnav.ResolveBackURL(r, "/")
	}
	if msg == "" {
		msg = "You don't have permission to view this page."
	}

	data := pageData{
		BaseVM:  viewdata.NewBaseVM(r, "Access denied", backURL),
		Message: msg,
	}
	data.BackURL = backURL

	w.WriteHeader(http.StatusForbidden)
	templates.Render(w, r, "error_forbidden", data)
}

// ForbiddenHandler adapts RenderForbidden for middleware that takes an
// http.Handler.
func ForbiddenHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		RenderForbidden(w, r, "", "/")
	})
}

// renderError writes status and the generic error page.
func renderError(w http.ResponseWriter, r *http.Request, status int, title, msg, backURL string) {
	data := pageData{
		BaseVM:  viewdata.NewBaseVM(r, title, "/"),
		Message: msg,
	}
	data.BackURL = backURL

	w.WriteHeader(status)
	templates.Render(w, r, "error_page", data)
}

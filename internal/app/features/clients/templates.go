// internal/app/features/clients/templates.go
package clients

import (
	"embed"

	"github.com/dalemusser/waffle/pantry/templates"
)

//go:embed templates/*.gohtml
var FS embed.FS

func init() {
	templates.Register(templates.Set{
		Name:     "clients",
		FS:       FS,
		Patterns: []string{"templates/*.gohtml"},
	})
}

// Package normalize trims and canonicalizes user-entered values before they
// reach a store.
package normalize

import (
	"strings"

	"github.com/dalemusser/softmanager/internal/domain/models"
)

// Email lowercases and trims an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace and collapses inner runs of spaces.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Role maps any accepted spelling to a canonical role; unknown values come
// back lowercased so callers can reject them.
func Role(s string) string {
	r := strings.ToLower(strings.TrimSpace(s))
	switch r {
	case "administrador":
		return models.RoleAdmin
	case "colaborador":
		return models.RoleCollaborator
	}
	return r
}

// Status trims a project status label, falling back to the default.
func Status(s string) string {
	s = Name(s)
	if s == "" {
		return models.DefaultProjectStatus
	}
	return s
}

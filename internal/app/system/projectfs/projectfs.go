// Package projectfs derives on-disk locations for project files. Every
// component that touches a project's folder goes through here.
package projectfs

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Placeholder is the folder name used for a project with a blank name.
const Placeholder = "sem_nome"

var (
	unsafeChars   = strings.NewReplacer("/", "_", `\`, "_", ":", "_", "*", "_", "?", "_", `"`, "_", "<", "_", ">", "_", "|", "_")
	whitespaceRun = regexp.MustCompile(`\s+`)
	storedPrefix  = regexp.MustCompile(`^\d+-`)
)

// SanitizeFolderName maps a project name to a single safe path segment.
// Path separators and the reserved characters : * ? " < > | become "_";
// surrounding whitespace is trimmed; an empty result becomes Placeholder.
// The names "." and ".." are also mapped to Placeholder, and any other run
// of two or more dots is broken up since storage keys may not contain "..".
func SanitizeFolderName(name string) string {
	s := strings.TrimSpace(unsafeChars.Replace(name))
	if s == "" || s == "." || s == ".." {
		return Placeholder
	}
	return breakDotRuns(s)
}

// breakDotRuns rewrites every ".." as "_." until none is left.
func breakDotRuns(s string) string {
	for strings.Contains(s, "..") {
		s = strings.ReplaceAll(s, "..", "_.")
	}
	return s
}

// Folder returns root/<SanitizeFolderName(projectName)>.
func Folder(root, projectName string) string {
	return filepath.Join(root, SanitizeFolderName(projectName))
}

// StoredName is the on-disk name for an upload received at ts:
// "<unix millis>-<original with whitespace runs replaced by _>".
// Only the base of original is used, and dot runs are broken up as in
// SanitizeFolderName.
func StoredName(ts time.Time, original string) string {
	base := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	base = breakDotRuns(unsafeChars.Replace(base))
	return strconv.FormatInt(ts.UnixMilli(), 10) + "-" + whitespaceRun.ReplaceAllString(base, "_")
}

// CleanArchiveName strips one leading "<digits>-" prefix from a stored name.
func CleanArchiveName(stored string) string {
	return storedPrefix.ReplaceAllString(stored, "")
}

// ArchiveName is the suggested download name for a project's zip.
func ArchiveName(projectName string) string {
	return SanitizeFolderName(projectName) + "_completo.zip"
}

// internal/app/system/limits/limits.go
package limits

// Request body size limits for various features.
const (
	// DefaultMaxUploadMB caps one multipart upload request (all parts) unless
	// configured otherwise.
	DefaultMaxUploadMB = 100

	// MaxEditableFileSize is the largest file the in-browser editor opens.
	MaxEditableFileSize = 2 << 20 // 2 MB

	// MaxEditFormSize bounds the editor's save form.
	MaxEditFormSize = MaxEditableFileSize + 64<<10

	// MaxSimpleFormSize bounds ordinary CRUD forms.
	MaxSimpleFormSize = 64 << 10

	// MultipartMemory is the in-memory share of a parsed upload; larger
	// parts spill to temp files.
	MultipartMemory = 32 << 20
)

// UploadBytes converts a megabyte setting into a byte limit.
func UploadBytes(mb int) int64 {
	if mb <= 0 {
		mb = DefaultMaxUploadMB
	}
	return int64(mb) << 20
}

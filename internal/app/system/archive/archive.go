// Package archive packs a project's upload folder into a single zip.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/dalemusser/softmanager/internal/app/system/projectfs"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/klauspost/compress/zip"
)

var (
	// ErrFolderMissing means storage holds nothing under the project's folder.
	ErrFolderMissing = errors.New("archive: project folder does not exist")
	// ErrFolderEmpty means the folder holds only subfolders, no files.
	ErrFolderEmpty = errors.New("archive: project folder is empty")
)

// Archive is an in-memory zip ready to stream.
type Archive struct {
	Name  string // suggested download name
	Data  []byte
	Files int
}

// BuildProjectArchive zips every file directly under the project's folder,
// naming entries with the timestamp prefix removed. A file that disappears
// between listing and reading fails the build.
func BuildProjectArchive(ctx context.Context, store storage.Store, projectName string) (*Archive, error) {
	folder := projectfs.SanitizeFolderName(projectName)

	listing, err := store.List(ctx, folder+"/", &storage.ListOptions{Delimiter: "/"})
	if err != nil {
		return nil, fmt.Errorf("list project folder: %w", err)
	}
	if len(listing.Objects) == 0 && len(listing.CommonPrefixes) == 0 {
		return nil, ErrFolderMissing
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	used := make(map[string]bool)
	count := 0

	for _, obj := range listing.Objects {
		base := path.Base(obj.Path)
		if strings.HasPrefix(base, ".tmp-") {
			continue
		}
		name := uniqueName(used, projectfs.CleanArchiveName(base))
		if err := addObject(ctx, zw, store, obj, name); err != nil {
			zw.Close()
			return nil, err
		}
		count++
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finish zip: %w", err)
	}
	if count == 0 {
		return nil, ErrFolderEmpty
	}

	return &Archive{
		Name:  projectfs.ArchiveName(projectName),
		Data:  buf.Bytes(),
		Files: count,
	}, nil
}

func addObject(ctx context.Context, zw *zip.Writer, store storage.Store, obj storage.ObjectInfo, name string) error {
	rc, err := store.Get(ctx, obj.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer rc.Close()

	hdr := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: obj.LastModified,
	}
	hdr.SetMode(0o644)

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("zip entry %s: %w", name, err)
	}
	if _, err := io.Copy(w, rc); err != nil {
		return fmt.Errorf("zip write %s: %w", name, err)
	}
	return nil
}

// uniqueName suffixes repeated names as "report (2).docx", skipping any
// suffix already taken by an earlier entry.
func uniqueName(used map[string]bool, name string) string {
	candidate := name
	if used[candidate] {
		ext := path.Ext(name)
		stem := strings.TrimSuffix(name, ext)
		for n := 2; used[candidate]; n++ {
			candidate = fmt.Sprintf("%s (%d)%s", stem, n, ext)
		}
	}
	used[candidate] = true
	return candidate
}

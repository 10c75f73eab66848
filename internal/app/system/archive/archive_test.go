package archive_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/dalemusser/softmanager/internal/app/system/archive"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func build(t *testing.T, root, projectName string) (*archive.Archive, error) {
	t.Helper()
	store, err := storage.NewLocal(storage.LocalConfig{BasePath: root})
	require.NoError(t, err)
	return archive.BuildProjectArchive(context.Background(), store, projectName)
}

func readZip(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	out := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		out[f.Name] = string(b)
	}
	return out
}

func TestBuildProjectArchive_StripsPrefixes(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "Site")
	writeFile(t, dir, "1700000000001-contrato.pdf", "pdf")
	writeFile(t, dir, "1700000000002-notes.txt", "hello")
	writeFile(t, dir, "plain.txt", "plain")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))

	a, err := build(t, root, "Site")
	require.NoError(t, err)
	require.Equal(t, "Site_completo.zip", a.Name)
	require.Equal(t, 3, a.Files)

	got := readZip(t, a.Data)
	names := make([]string, 0, len(got))
	for n := range got {
		names = append(names, n)
	}
	sort.Strings(names)
	require.Equal(t, []string{"contrato.pdf", "notes.txt", "plain.txt"}, names)
	require.Equal(t, "hello", got["notes.txt"])
}

func TestBuildProjectArchive_SanitizedFolder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Loja_Virtual"), "1-a.txt", "a")

	a, err := build(t, root, "Loja/Virtual")
	require.NoError(t, err)
	require.Equal(t, "Loja_Virtual_completo.zip", a.Name)
}

func TestBuildProjectArchive_DuplicateCleanNames(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "Site")
	writeFile(t, dir, "1-report.docx", "v1")
	writeFile(t, dir, "2-report.docx", "v2")

	a, err := build(t, root, "Site")
	require.NoError(t, err)

	got := readZip(t, a.Data)
	require.Len(t, got, 2)
	require.Equal(t, "v1", got["report.docx"])
	require.Equal(t, "v2", got["report (2).docx"])

	t.Run("suffix already taken", func(t *testing.T) {
		root := t.TempDir()
		dir := filepath.Join(root, "Site")
		writeFile(t, dir, "1-a.txt", "one")
		writeFile(t, dir, "2-a (2).txt", "two")
		writeFile(t, dir, "3-a.txt", "three")

		a, err := build(t, root, "Site")
		require.NoError(t, err)
		require.Equal(t, 3, a.Files)

		got := readZip(t, a.Data)
		require.Len(t, got, 3)
		require.Equal(t, "one", got["a.txt"])
		require.Equal(t, "two", got["a (2).txt"])
		require.Equal(t, "three", got["a (3).txt"])
	})
}

func TestBuildProjectArchive_MissingFolder(t *testing.T) {
	_, err := build(t, t.TempDir(), "Nope")
	require.ErrorIs(t, err, archive.ErrFolderMissing)
}

func TestBuildProjectArchive_EmptyFolderReadsAsMissing(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Site"), 0o755))

	_, err := build(t, root, "Site")
	require.ErrorIs(t, err, archive.ErrFolderMissing)
}

func TestBuildProjectArchive_OnlySubfolders(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Site", "nested"), "1-deep.txt", "deep")

	_, err := build(t, root, "Site")
	require.ErrorIs(t, err, archive.ErrFolderEmpty)
}

func TestBuildProjectArchive_SiblingFolderNotIncluded(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Site"), "1-a.txt", "a")
	writeFile(t, filepath.Join(root, "Site2"), "1-b.txt", "b")

	a, err := build(t, root, "Site")
	require.NoError(t, err)
	require.Equal(t, 1, a.Files)
	require.Equal(t, map[string]string{"a.txt": "a"}, readZip(t, a.Data))
}

package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	return path
}

func TestDiscoverDocuments_EmptyArgs(t *testing.T) {
	files, err := discoverDocuments([]string{}, false, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDiscoverDocuments_ExplicitFilesKeptWhateverTheType(t *testing.T) {
	dir := t.TempDir()
	png := touch(t, filepath.Join(dir, "scan.png"))
	txt := touch(t, filepath.Join(dir, "notes.txt"))

	files, err := discoverDocuments([]string{png, txt}, false, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{png, txt}, files)
}

func TestDiscoverDocuments_DirectoryOnlySupportedTypes(t *testing.T) {
	dir := t.TempDir()
	png := touch(t, filepath.Join(dir, "a.png"))
	pdf := touch(t, filepath.Join(dir, "b.pdf"))
	tif := touch(t, filepath.Join(dir, "c.tiff"))
	touch(t, filepath.Join(dir, "d.txt"))
	touch(t, filepath.Join(dir, "e.docx"))

	files, err := discoverDocuments([]string{dir}, false, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{png, pdf, tif}, files)
}

func TestDiscoverDocuments_Recursive(t *testing.T) {
	dir := t.TempDir()
	rootPng := touch(t, filepath.Join(dir, "root.png"))
	subPng := touch(t, filepath.Join(dir, "subdir", "sub.png"))
	touch(t, filepath.Join(dir, "subdir", "sub.txt"))

	files, err := discoverDocuments([]string{dir}, true, nil, nil)
	require.NoError(t, err)
	assert.Len(t, files, 2)
	assert.Contains(t, files, rootPng)
	assert.Contains(t, files, subPng)
}

func TestDiscoverDocuments_NonRecursive(t *testing.T) {
	dir := t.TempDir()
	rootPng := touch(t, filepath.Join(dir, "root.png"))
	subPng := touch(t, filepath.Join(dir, "subdir", "sub.png"))

	files, err := discoverDocuments([]string{dir}, false, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{rootPng}, files)
	assert.NotContains(t, files, subPng)
}

func TestDiscoverDocuments_IncludeExcludePatterns(t *testing.T) {
	dir := t.TempDir()
	test1 := touch(t, filepath.Join(dir, "test1.png"))
	test2 := touch(t, filepath.Join(dir, "test2.png"))
	excluded := touch(t, filepath.Join(dir, "exclude.png"))
	touch(t, filepath.Join(dir, "test3.jpg"))

	files, err := discoverDocuments([]string{dir}, false, []string{"*.png"}, []string{"*exclude*"})
	require.NoError(t, err)
	assert.Equal(t, []string{test1, test2}, files)
	assert.NotContains(t, files, excluded)
}

func TestDiscoverDocuments_NonExistentPath(t *testing.T) {
	files, err := discoverDocuments([]string{"/nonexistent/directory"}, false, nil, nil)
	require.Error(t, err)
	assert.Nil(t, files)
	assert.Contains(t, err.Error(), "cannot access")
}

func TestDiscoverInDirectory_EmptyDirectory(t *testing.T) {
	files, err := discoverInDirectory(t.TempDir(), false, []string{"*.png"}, nil)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestShouldIncludeFile(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		include  []string
		exclude  []string
		expected bool
	}{
		{"no patterns", "a.png", nil, nil, true},
		{"included", "a.png", []string{"*.png"}, nil, true},
		{"not included", "a.jpg", []string{"*.png"}, nil, false},
		{"excluded wins", "draft.png", []string{"*.png"}, []string{"draft*"}, false},
		{"exclude only", "final.png", nil, []string{"draft*"}, true},
		{"base name matched", "/deep/dir/a.png", []string{"a.*"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, shouldIncludeFile(tt.path, tt.include, tt.exclude))
		})
	}
}

func TestMatchesAnyPattern(t *testing.T) {
	assert.False(t, matchesAnyPattern("test.png", nil))

	patterns := []string{"*.png", "*.jpg", "special.*"}
	testCases := []struct {
		filename string
		expected bool
	}{
		{"test.png", true},
		{"photo.jpg", true},
		{"special.gif", true},
		{"document.pdf", false},
		{"test.PNG", false}, // case sensitive
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, matchesAnyPattern(tc.filename, patterns), "filename=%s", tc.filename)
	}
}

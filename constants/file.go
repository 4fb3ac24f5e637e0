package constants

import (
	"path"
	"strings"
)

// File types stored in file_translation_logs.file_type.
const (
	PDF  = "pdf"
	DOCX = "docx"
)

// AllowedExtensions holds the file extensions accepted for translation.
var AllowedExtensions = map[string]struct{}{
	PDF:  {},
	DOCX: {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// FileType returns the normalized extension of a file name or URL path,
// ignoring any query string.
func FileType(name string) string {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	return NormalizeExt(path.Ext(name))
}

// IsAllowed reports whether the file name has a translatable extension.
func IsAllowed(name string) bool {
	_, ok := AllowedExtensions[FileType(name)]
	return ok
}

// BaseName strips the directory and the last extension from a file name.
func BaseName(name string) string {
	name = path.Base(name)
	return strings.TrimSuffix(name, path.Ext(name))
}

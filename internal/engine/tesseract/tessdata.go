package tesseract

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// EnvTessdataPrefix is the variable Tesseract itself reads for its data
// directory.
const EnvTessdataPrefix = "TESSDATA_PREFIX"

// ResolveTessdataDir returns the language data directory to use.
// Priority: 1. explicit dir, 2. TESSDATA_PREFIX, 3. "" (the library default).
func ResolveTessdataDir(dir string) string {
	if dir != "" {
		return dir
	}
	return os.Getenv(EnvTessdataPrefix)
}

// Languages splits a Tesseract language string such as "deu+eng".
func Languages(langs string) []string {
	var out []string
	for _, lang := range strings.Split(langs, "+") {
		if lang = strings.TrimSpace(lang); lang != "" {
			out = append(out, lang)
		}
	}
	return out
}

// MissingLanguages lists the languages of langs that have no .traineddata file
// in dir. Nothing can be checked for the library default, so an empty dir
// reports nothing missing.
func MissingLanguages(dir, langs string) []string {
	if dir == "" {
		return nil
	}
	var missing []string
	for _, lang := range Languages(langs) {
		if _, err := os.Stat(filepath.Join(dir, lang+".traineddata")); errors.Is(err, os.ErrNotExist) {
			missing = append(missing, lang)
		}
	}
	return missing
}

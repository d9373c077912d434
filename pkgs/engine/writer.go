package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileWriter persists serialized output, overwriting any existing file
type FileWriter interface {
	Write(path string, data []byte) error
}

// OSFileWriter writes to the local filesystem
type OSFileWriter struct{}

// Write creates missing parent directories and writes data with mode 0644
func (OSFileWriter) Write(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// StaticPath derives the output path of the static pass: the path is
// lower-cased and "-static" is inserted before the extension.
//
//	C:\Temp\Out.JSON -> c:\temp\out-static.json
//	out              -> out-static
func StaticPath(path string) string {
	lower := strings.ToLower(path)
	sep := strings.LastIndexAny(lower, `/\`)
	if dot := strings.LastIndex(lower, "."); dot > sep {
		return lower[:dot] + "-static" + lower[dot:]
	}
	return lower + "-static"
}

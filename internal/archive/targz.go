// Package archive packs generated file bundles for download.
package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"appforge/internal/types"
)

// SafePath cleans a bundle path and reports false for paths that would
// escape the archive root.
func SafePath(p string) (string, bool) {
	clean := path.Clean("/" + strings.ReplaceAll(strings.TrimSpace(p), `\`, "/"))
	clean = strings.TrimPrefix(clean, "/")
	if clean == "" || clean == "." {
		return "", false
	}
	return clean, true
}

// WriteTarGz writes files as a gzip-compressed tarball with every entry
// placed under root. Unsafe paths are skipped.
func WriteTarGz(w io.Writer, root string, files []types.FileBundle, modTime time.Time) error {
	gz, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(gz)

	root = strings.Trim(root, "/")
	for _, f := range files {
		p, ok := SafePath(f.Path)
		if !ok {
			continue
		}
		name := p
		if root != "" {
			name = root + "/" + p
		}
		hdr := &tar.Header{
			Name:    name,
			Mode:    0o644,
			Size:    int64(len(f.Content)),
			ModTime: modTime,
			Format:  tar.FormatPAX,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("tar header %s: %w", name, err)
		}
		if _, err := io.WriteString(tw, f.Content); err != nil {
			return fmt.Errorf("tar body %s: %w", name, err)
		}
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}

// Package archive packages a job workspace into a single zip file.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/flate"

	"github.com/JakeFAU/articlegen/internal/article"
)

// FileName is the archive name inside a job workspace.
const FileName = "articles.zip"

// Builder zips article folders with maximum compression.
type Builder struct {
	level int
}

// NewBuilder returns a Builder using flate.BestCompression.
func NewBuilder() *Builder {
	return &Builder{level: flate.BestCompression}
}

var _ article.ArchiveBuilder = (*Builder)(nil)

// Build zips every subfolder of srcDir into destPath and returns destPath.
// Entries are written in lexical order. Files directly under srcDir,
// including a previous archive, are not included.
func (b *Builder) Build(ctx context.Context, srcDir, destPath string) (string, error) {
	info, err := os.Stat(srcDir)
	if err != nil {
		return "", &article.PackagingError{Op: "stat source", Err: err}
	}
	if !info.IsDir() {
		return "", &article.PackagingError{Op: "stat source", Err: fmt.Errorf("%s is not a directory", srcDir)}
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".articles-*.zip.tmp")
	if err != nil {
		return "", &article.PackagingError{Op: "create", Err: err}
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	zw := zip.NewWriter(tmp)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, b.level)
	})

	if err := b.addFolders(ctx, zw, srcDir); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", &article.PackagingError{Op: "finalize", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		return "", &article.PackagingError{Op: "sync", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return "", &article.PackagingError{Op: "close", Err: err}
	}
	if err := os.Rename(tmpName, destPath); err != nil {
		return "", &article.PackagingError{Op: "rename", Err: err}
	}
	committed = true
	return destPath, nil
}

func (b *Builder) addFolders(ctx context.Context, zw *zip.Writer, srcDir string) error {
	walkErr := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path == srcDir {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		// Only content under subfolders belongs in the archive.
		if !strings.Contains(name, "/") && !d.IsDir() {
			return nil
		}
		if d.IsDir() {
			_, err := zw.CreateHeader(&zip.FileHeader{Name: name + "/", Method: zip.Store})
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return addFile(zw, path, name)
	})
	if walkErr != nil {
		return &article.PackagingError{Op: "add entries", Err: walkErr}
	}
	return nil
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path) // #nosec G304 -- path comes from walking the job workspace.
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck // read-only file

	info, err := f.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate
	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}

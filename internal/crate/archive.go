package crate

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// Format selects the compression container for a finished package.
type Format string

const (
	FormatZip   Format = "zip"
	FormatTar   Format = "tar"
	FormatTarGz Format = "tar.gz"
)

// ParseFormat validates a format label from configuration or a request.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatZip, FormatTar, FormatTarGz:
		return Format(s), nil
	}
	return "", fmt.Errorf("unsupported archive format %q", s)
}

// Archive compresses srcDir into destDir/<base>.<format>, where base is
// srcDir's own name, which also becomes the single top-level entry of the
// archive. Returns the path of the written archive file.
func Archive(srcDir, destDir string, format Format) (string, error) {
	base := filepath.Base(filepath.Clean(srcDir))
	target := filepath.Join(destDir, base+"."+string(format))

	out, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("archive %s: %w", srcDir, err)
	}
	defer out.Close()

	switch format {
	case FormatZip:
		err = writeZip(out, srcDir, base)
	case FormatTar:
		err = writeTar(out, srcDir, base)
	case FormatTarGz:
		gz := gzip.NewWriter(out)
		if err = writeTar(gz, srcDir, base); err == nil {
			err = gz.Close()
		}
	default:
		err = fmt.Errorf("unsupported archive format %q", format)
	}
	if err != nil {
		return "", fmt.Errorf("archive %s: %w", srcDir, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("archive %s: %w", srcDir, err)
	}
	return target, nil
}

func writeZip(w io.Writer, srcDir, base string) error {
	zw := zip.NewWriter(w)
	err := walkFiles(srcDir, func(rel string, info fs.FileInfo, full string) error {
		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		hdr.Name = path.Join(base, rel)
		hdr.Method = zip.Deflate
		entry, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		return copyFile(entry, full)
	})
	if err != nil {
		return err
	}
	return zw.Close()
}

func writeTar(w io.Writer, srcDir, base string) error {
	tw := tar.NewWriter(w)
	err := walkFiles(srcDir, func(rel string, info fs.FileInfo, full string) error {
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = path.Join(base, rel)
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		return copyFile(tw, full)
	})
	if err != nil {
		return err
	}
	return tw.Close()
}

// walkFiles visits every regular file under srcDir in lexical order, passing
// its slash-separated path relative to srcDir.
func walkFiles(srcDir string, fn func(rel string, info fs.FileInfo, full string) error) error {
	return filepath.WalkDir(srcDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(srcDir, p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return fn(filepath.ToSlash(rel), info, p)
	})
}

func copyFile(w io.Writer, p string) error {
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

package compression

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
)

const defaultLevel = -1

type writeFunc func(dst io.Writer, src *os.File, info fs.FileInfo) error

type GzipCompressor struct {
	level int
}

func NewGzipCompressor(level int) *GzipCompressor {
	return &GzipCompressor{level: level}
}

func (c *GzipCompressor) Compress(source, target, _ string) error {
	return compressFile(source, target, func(dst io.Writer, src *os.File, info fs.FileInfo) error {
		gz, err := gzip.NewWriterLevel(dst, c.level)
		if err != nil {
			return fmt.Errorf("error creating gzip writer: %w", err)
		}
		gz.Name = filepath.Base(source)
		gz.ModTime = info.ModTime()

		if _, err := io.Copy(gz, src); err != nil {
			return fmt.Errorf("error writing gzip data: %w", err)
		}
		return gz.Close()
	})
}

type ZipCompressor struct {
	level int
}

func NewZipCompressor(level int) *ZipCompressor {
	return &ZipCompressor{level: level}
}

func (c *ZipCompressor) Compress(source, target, innerEntryName string) error {
	if innerEntryName == "" {
		innerEntryName = filepath.Base(source)
	}

	return compressFile(source, target, func(dst io.Writer, src *os.File, info fs.FileInfo) error {
		zw := zip.NewWriter(dst)
		zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(out, c.level)
		})

		entry, err := zw.CreateHeader(&zip.FileHeader{
			Name:     innerEntryName,
			Method:   zip.Deflate,
			Modified: info.ModTime(),
		})
		if err != nil {
			return fmt.Errorf("error creating zip entry %s: %w", innerEntryName, err)
		}

		if _, err := io.Copy(entry, src); err != nil {
			return fmt.Errorf("error writing zip data: %w", err)
		}
		return zw.Close()
	})
}

// compressFile refuses to overwrite target, never leaves a partial target behind and removes
// source once target is complete.
func compressFile(source, target string, write writeFunc) error {
	src, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("error opening source file: %w", err)
	}

	info, err := src.Stat()
	if err != nil {
		src.Close()
		return fmt.Errorf("error reading source file info: %w", err)
	}

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		src.Close()
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("target file %s already exists", target)
		}
		return fmt.Errorf("error creating target file: %w", err)
	}

	err = write(dst, src, info)
	if err == nil {
		err = dst.Sync()
	}
	closeErr := dst.Close()
	src.Close()

	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(target)
		return err
	}

	if err := os.Remove(source); err != nil {
		return fmt.Errorf("compressed into %s but could not remove the source: %w", target, err)
	}
	return nil
}

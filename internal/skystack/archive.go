package skystack

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/ulikunitz/xz"
)

// compressLogXZ writes src to destPath compressed with xz, creating the
// destination directory as needed.
func compressLogXZ(srcPath, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	xw, err := xz.NewWriter(out)
	if err != nil {
		out.Close()
		return err
	}
	if _, err := io.Copy(xw, src); err != nil {
		xw.Close()
		out.Close()
		return fmt.Errorf("compressing %s: %w", srcPath, err)
	}
	if err := xw.Close(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// writeFailureBundle tars the given files flat into destPath. The
// compression follows the destination extension: .zst gets zstd, anything
// else gzip. Files that vanished in the meantime are skipped.
func writeFailureBundle(destPath string, files []string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	out, err := os.Create(destPath)
	if err != nil {
		return err
	}

	var zw io.WriteCloser
	if filepath.Ext(destPath) == ".zst" {
		zw, err = zstd.NewWriter(out)
		if err != nil {
			out.Close()
			return err
		}
	} else {
		zw = pgzip.NewWriter(out)
	}
	tw := tar.NewWriter(zw)

	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			continue
		}
		data, err := os.ReadFile(f)
		if err != nil {
			continue
		}
		hdr := &tar.Header{
			Name:    filepath.Base(f),
			Mode:    0o644,
			Size:    int64(len(data)),
			ModTime: info.ModTime(),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			tw.Close()
			zw.Close()
			out.Close()
			return err
		}
		if _, err := tw.Write(data); err != nil {
			tw.Close()
			zw.Close()
			out.Close()
			return err
		}
	}

	if err := tw.Close(); err != nil {
		zw.Close()
		out.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Package source prepares raw file contents for loading: it strips an
// optional signature, decrypts XXTEA-wrapped images and decompresses gzip or
// zip containers.
package source

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/xxtea/xxtea-go/xxtea"
)

// ErrDecrypt is returned when XXTEA decryption fails.
var ErrDecrypt = errors.New("decryption failed")

// Options controls Unwrap.
type Options struct {
	// Key enables XXTEA decryption when non-empty.
	Key string
	// Signature is stripped from the start of the data before decryption
	// if present.
	Signature string
}

// Unwrap returns the bytecode image contained in data. Plain images are
// returned as-is without copying.
func Unwrap(data []byte, opts Options) ([]byte, error) {
	if opts.Key != "" {
		if sig := []byte(opts.Signature); len(sig) > 0 && bytes.HasPrefix(data, sig) {
			data = data[len(sig):]
		}
		decrypted := xxtea.Decrypt(data, []byte(opts.Key))
		if decrypted == nil {
			return nil, ErrDecrypt
		}
		slog.Debug("Decrypted image", "encrypted_size", len(data), "size", len(decrypted))
		data = decrypted
	}
	return decompress(data)
}

// Func returns Unwrap bound to opts, for image.WithUnwrap.
func Func(opts Options) func([]byte) ([]byte, error) {
	return func(data []byte) ([]byte, error) { return Unwrap(data, opts) }
}

// decompress checks if data is a gzip stream or zip archive and decompresses
// it.
func decompress(data []byte) ([]byte, error) {
	if len(data) < 2 {
		return data, nil
	}

	// gzip magic 1f 8b
	if data[0] == 0x1f && data[1] == 0x8b {
		reader, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gzip reader creation failed: %w", err)
		}
		defer reader.Close()

		out, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("gzip decompression failed: %w", err)
		}
		slog.Debug("Gzip decompression successful", "original_size", len(data), "decompressed_size", len(out))
		return out, nil
	}

	// zip local file header PK\x03\x04
	if len(data) >= 4 && bytes.Equal(data[:4], []byte("PK\x03\x04")) {
		reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, fmt.Errorf("zip reader creation failed: %w", err)
		}
		if len(reader.File) == 0 {
			return nil, fmt.Errorf("zip archive is empty")
		}

		// Only the first entry is considered.
		file := reader.File[0]
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open file in zip: %w", err)
		}
		defer rc.Close()

		out, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("failed to read file from zip: %w", err)
		}
		slog.Debug("ZIP decompression successful", "archive_file", file.Name,
			"original_size", len(data), "decompressed_size", len(out))
		return out, nil
	}

	return data, nil
}

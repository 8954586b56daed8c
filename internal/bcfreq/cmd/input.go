package cmd

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	pathpkg "path/filepath"

	"bcfreq/internal/bcfreq/config"
	"bcfreq/internal/image"
	"bcfreq/internal/source"
)

// openImage resolves path and loads the image, unwrapping it when a key is
// configured or the file is compressed.
func openImage(path string, cfg config.Config) (*image.Image, error) {
	absPath, err := pathpkg.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}
	if _, err := os.Stat(absPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", path)
		}
		return nil, fmt.Errorf("cannot access file: %w", err)
	}

	return image.Open(absPath, image.WithUnwrap(source.Func(source.Options{
		Key:       cfg.Key,
		Signature: cfg.Signature,
	})))
}

// fileDigest returns the hex SHA-256 of the file at path.
func fileDigest(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}

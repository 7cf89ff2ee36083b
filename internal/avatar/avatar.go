// Package avatar saves uploaded profile pictures.
package avatar

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dense-analysis/boardfolio/internal/model"
)

// MaxSize is the largest upload accepted, in bytes.
const MaxSize = 2 << 20

var (
	ErrTooLarge    = errors.New("image must be 2MB or smaller")
	ErrUnsupported = errors.New("image must be a png, jpg or gif file")
	ErrInvalid     = errors.New("file is not a valid image")
)

var extensions = map[string]string{
	".png":  "png",
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".gif":  "gif",
}

// Store writes avatars into a directory.
type Store struct {
	dir string
	log *zap.Logger
}

func NewStore(dir string, logger *zap.Logger) *Store {
	return &Store{dir: dir, log: logger}
}

// Dir returns the directory avatars are saved in.
func (store *Store) Dir() string {
	return store.dir
}

// Save checks an uploaded image and writes it under a random file name,
// which is returned.
func (store *Store) Save(filename string, content io.Reader) (string, error) {
	extension := strings.ToLower(filepath.Ext(filename))
	format, ok := extensions[extension]

	if !ok {
		return "", ErrUnsupported
	}

	data, err := io.ReadAll(io.LimitReader(content, MaxSize+1))

	if err != nil {
		return "", err
	}

	if len(data) > MaxSize {
		return "", ErrTooLarge
	}

	_, decodedFormat, err := image.DecodeConfig(bytes.NewReader(data))

	if err != nil {
		return "", ErrInvalid
	}

	if decodedFormat != format {
		return "", ErrUnsupported
	}

	if err := os.MkdirAll(store.dir, 0o755); err != nil {
		return "", err
	}

	name := uuid.NewString() + extension

	if err := os.WriteFile(filepath.Join(store.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write avatar: %w", err)
	}

	store.log.Info("Saved avatar", zap.String("file", name), zap.Int("bytes", len(data)))

	return name, nil
}

// Remove deletes a saved avatar. The default image is never removed.
func (store *Store) Remove(name string) error {
	if name == "" || name == model.DefaultAvatar || name != filepath.Base(name) {
		return nil
	}

	return os.Remove(filepath.Join(store.dir, name))
}

package avatar

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func pngBytes(t *testing.T) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})

	var buffer bytes.Buffer
	require.NoError(t, png.Encode(&buffer, img))

	return buffer.Bytes()
}

func TestSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "profile-imgs")
	store := NewStore(dir, zap.NewNop())
	data := pngBytes(t)

	name, err := store.Save("me.PNG", bytes.NewReader(data))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".png"))

	saved, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, data, saved)

	other, err := store.Save("me.png", bytes.NewReader(data))
	require.NoError(t, err)
	assert.NotEqual(t, name, other)

	require.NoError(t, store.Remove(other))
	_, err = os.Stat(filepath.Join(dir, other))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Remove("no-img.png"))
	assert.NoError(t, store.Remove("../escape.png"))
}

func TestSaveRejects(t *testing.T) {
	store := NewStore(t.TempDir(), zap.NewNop())
	data := pngBytes(t)

	_, err := store.Save("me.bmp", bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = store.Save("me.gif", bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = store.Save("me.png", strings.NewReader("not an image"))
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = store.Save("me.png", bytes.NewReader(make([]byte, MaxSize+1)))
	assert.ErrorIs(t, err, ErrTooLarge)
}

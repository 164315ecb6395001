package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/freqaug/internal/testutil"
)

func setupImageTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	testutil.WriteImageSet(t, root, 2, testutil.SmallSize, ".png")
	testutil.WriteImageSet(t, filepath.Join(root, "sub"), 1, testutil.SmallSize, ".jpg")
	testutil.WriteImageSet(t, filepath.Join(root, ".cache"), 1, testutil.SmallSize, ".png")
	testutil.SaveImage(t, testutil.GradientImage(testutil.SmallSize, 0), filepath.Join(root, ".thumb.png"))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o600))
	return root
}

func TestDiscoverImages(t *testing.T) {
	root := setupImageTree(t)

	flat, err := DiscoverImages([]string{root}, DiscoverOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "img_0.png"),
		filepath.Join(root, "img_1.png"),
	}, flat)

	deep, err := DiscoverImages([]string{root}, DiscoverOptions{Recursive: true})
	require.NoError(t, err)
	assert.Len(t, deep, 3)

	all, err := DiscoverImages([]string{root}, DiscoverOptions{Recursive: true, Hidden: true})
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestDiscoverImages_Patterns(t *testing.T) {
	root := setupImageTree(t)

	got, err := DiscoverImages([]string{root}, DiscoverOptions{Recursive: true, Include: []string{"*.jpg"}})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "sub", "img_0.jpg")}, got)

	got, err = DiscoverImages([]string{root}, DiscoverOptions{Recursive: true, Exclude: []string{"img_0.*"}})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "img_1.png")}, got)
}

func TestDiscoverImages_FileArgs(t *testing.T) {
	root := setupImageTree(t)
	file := filepath.Join(root, "img_1.png")

	got, err := DiscoverImages([]string{file, root, file}, DiscoverOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "img_0.png"), file}, got)

	_, err = DiscoverImages([]string{filepath.Join(root, "missing")}, DiscoverOptions{})
	require.ErrorContains(t, err, "cannot access")
}

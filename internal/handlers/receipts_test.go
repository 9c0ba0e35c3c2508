package handlers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidUploadType(t *testing.T) {
	assert.True(t, isValidUploadType("image/jpeg", "a.jpg"))
	assert.True(t, isValidUploadType("application/pdf", "scan.pdf"))
	assert.True(t, isValidUploadType("IMAGE/PNG", "a.png"))
	// content type unknown, trusted extension
	assert.True(t, isValidUploadType("application/octet-stream", "IMG_0042.HEIC"))
	assert.False(t, isValidUploadType("text/plain", "notes.txt"))
	assert.False(t, isValidUploadType("", "archive.zip"))
}

func TestImageContentType(t *testing.T) {
	assert.Equal(t, "image/png", imageContentType("receipts/1.png"))
	assert.Equal(t, "application/pdf", imageContentType("receipts/2.PDF"))
	assert.Equal(t, "image/heic", imageContentType("receipts/3.heif"))
	// Unknown and missing extensions fall back to jpeg.
	assert.Equal(t, "image/jpeg", imageContentType("receipts/4"))
	assert.Equal(t, "image/jpeg", imageContentType("receipts/5.jpg"))
}

func TestGenerateObjectKey(t *testing.T) {
	key := generateObjectKey("scontrino.jpeg")
	assert.True(t, strings.HasPrefix(key, "receipts/"))
	assert.True(t, strings.HasSuffix(key, ".jpeg"))

	// Missing extension falls back to jpg.
	assert.True(t, strings.HasSuffix(generateObjectKey("upload"), ".jpg"))

	// Keys are unique across calls.
	assert.NotEqual(t, generateObjectKey("a.png"), generateObjectKey("a.png"))
}

// Package media models an uploaded media asset and its content fingerprint.
package media

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/taoxee/scribeflow/errors"
)

// allowedExtensions is the upload allowlist.
var allowedExtensions = map[string]bool{
	"mp3": true, "mp4": true, "wav": true, "m4a": true,
	"webm": true, "ogg": true, "flac": true, "mpeg": true, "mpga": true,
}

// Asset is one uploaded media file.
type Asset struct {
	// Name is the original filename as supplied by the caller.
	Name string `json:"name"`
	// Ext is the lowercase extension without the dot.
	Ext string `json:"ext"`
	// Mime is the detected content type.
	Mime string `json:"mime"`
	// Size is the content length in bytes.
	Size int64 `json:"size"`
	// Fingerprint is the SHA-256 hex digest of the content. It is the
	// cache-key component: two uploads with identical bytes share it
	// regardless of filename.
	Fingerprint string `json:"fingerprint"`
	// Data is the file content.
	Data []byte `json:"-"`
}

// NewAsset validates the filename, detects the content type, and computes
// the content fingerprint.
func NewAsset(filename string, data []byte) (*Asset, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if !allowedExtensions[ext] {
		return nil, errors.InvalidInput(
			"unsupported file extension; expected one of mp3/mp4/wav/m4a/webm/ogg/flac/mpeg/mpga")
	}
	if len(data) == 0 {
		return nil, errors.InvalidInput("empty upload")
	}

	return &Asset{
		Name:        filepath.Base(filename),
		Ext:         ext,
		Mime:        mimetype.Detect(data).String(),
		Size:        int64(len(data)),
		Fingerprint: Fingerprint(data),
		Data:        data,
	}, nil
}

// Fingerprint returns the SHA-256 hex digest of content.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Package fileid derives resume identifiers from filenames and content checksums
// from file bytes.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path/filepath"
	"strings"
)

// ErrInvalid reports a filename that cannot be used as a resume identifier.
var ErrInvalid = errors.New("invalid resume filename")

// ResumeID returns the identifier for an uploaded or watched resume: the base name of
// the path with surrounding whitespace removed. Directory components are dropped so an
// identifier can never escape the upload directory.
func ResumeID(name string) (string, error) {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return "", ErrInvalid
	}
	base := strings.TrimSpace(filepath.Base(name))
	switch base {
	case "", ".", "..", "/":
		return "", ErrInvalid
	}
	if strings.ContainsRune(base, 0) {
		return "", ErrInvalid
	}
	return base, nil
}

// Checksum returns the hex sha256 of content. The watcher compares it with the stored
// checksum to skip files whose bytes did not change.
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

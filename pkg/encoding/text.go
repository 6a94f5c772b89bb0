// Package encoding provides text encoding utilities for MHX2 documents and
// the asset paths they reference.
package encoding

import (
	"bytes"
	"path"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ToUTF8 converts document bytes to UTF-8.
// A UTF-8 BOM is stripped and UTF-16 input with a BOM is transcoded; data
// without a BOM is assumed to be UTF-8 already and returned unchanged.
func ToUTF8(data []byte) ([]byte, error) {
	if !hasBOM(data) {
		return data, nil
	}
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	result, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func hasBOM(data []byte) bool {
	return bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) ||
		bytes.HasPrefix(data, []byte{0xFE, 0xFF}) ||
		bytes.HasPrefix(data, []byte{0xFF, 0xFE})
}

// NormalizeTexturePath converts a texture reference from an MHX2 file into
// a clean slash-separated relative path.
// MakeHuman exports written on Windows use backslashes.
func NormalizeTexturePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = strings.ReplaceAll(p, "\\", "/")
	return path.Clean(p)
}

// TextureCandidates returns the lookup order for a texture reference: the
// normalized path, then its base name, each also tried in lower case.
// Duplicates are removed.
func TextureCandidates(p string) []string {
	norm := NormalizeTexturePath(p)
	if norm == "" {
		return nil
	}
	base := path.Base(norm)

	var out []string
	seen := make(map[string]bool)
	for _, c := range []string{norm, strings.ToLower(norm), base, strings.ToLower(base)} {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

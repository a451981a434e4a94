// Package extract turns stored upload bytes into the text sent for licensing analysis.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/bryanwahyu/rightsdesk/internal/domain/uploads"
)

var ErrNoText = errors.New("no extractable text")

// Text returns analyzable text for an upload. Images and videos are described by their
// metadata; PDFs are parsed; everything else is read as UTF-8 with invalid bytes replaced.
// The result is cut to at most maxBytes on a rune boundary (maxBytes <= 0 means no limit).
func Text(u *uploads.Upload, data []byte, maxBytes int) (string, error) {
	var text string
	switch {
	case u.FileType == uploads.FileTypeImage || u.FileType == uploads.FileTypeVideo:
		text = describe(u)
	case isPDF(u, data):
		t, err := pdfText(data)
		if err != nil {
			return "", err
		}
		text = t
	default:
		text = strings.ToValidUTF8(string(data), "�")
	}

	text = Sanitize(text)
	if text == "" {
		return "", ErrNoText
	}
	return truncate(text, maxBytes), nil
}

// Sanitize removes NUL and non-printing control characters, keeping common whitespace.
func Sanitize(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, ch := range s {
		if ch == '\n' || ch == '\r' || ch == '\t' || ch >= 0x20 {
			b.WriteRune(ch)
		}
	}
	return strings.TrimSpace(b.String())
}

func describe(u *uploads.Upload) string {
	return fmt.Sprintf("%s file %q (content type %s, %d bytes). The file itself is binary media; assess licensing risk from its name and type.",
		strings.ToLower(string(u.FileType)), u.FileName, orUnknown(u.ContentType), u.SizeBytes)
}

func isPDF(u *uploads.Upload, data []byte) bool {
	return u.ContentType == "application/pdf" ||
		strings.EqualFold(filepath.Ext(u.FileName), ".pdf") ||
		bytes.HasPrefix(data, []byte("%PDF-"))
}

// pdfText recovers from parser panics, which ledongthuc/pdf raises on some malformed files.
func pdfText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, reader); err != nil {
		return "", fmt.Errorf("read extracted text: %w", err)
	}
	return buf.String(), nil
}

func truncate(s string, maxBytes int) string {
	if maxBytes <= 0 || len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

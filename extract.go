package testgenpro

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// DocumentKind is the format of an uploaded document
type DocumentKind string

const (
	KindPDF  DocumentKind = "pdf"
	KindText DocumentKind = "text"
)

// MaxDocumentSize bounds uploads, in bytes
const MaxDocumentSize = 20 << 20

// Document is an uploaded file
type Document struct {
	Name string
	Kind DocumentKind
	Data []byte
}

// DetectKind infers the document kind from a file name
func DetectKind(name string) (DocumentKind, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return KindPDF, nil
	case ".txt", ".text", ".md":
		return KindText, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
}

// NewDocument wraps uploaded bytes, detecting the kind from the name
func NewDocument(name string, data []byte) (Document, error) {
	kind, err := DetectKind(name)
	if err != nil {
		return Document{}, err
	}
	return Document{Name: name, Kind: kind, Data: data}, nil
}

// TextExtractor pulls plain text out of a document
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte, kind DocumentKind) (string, error)
}

// DocumentExtractor reads UTF-8 text files and PDFs
type DocumentExtractor struct{}

func (DocumentExtractor) ExtractText(ctx context.Context, data []byte, kind DocumentKind) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) > MaxDocumentSize {
		return "", fmt.Errorf("%w: document larger than %d bytes", ErrExtraction, MaxDocumentSize)
	}

	var (
		text string
		err  error
	)
	switch kind {
	case KindText:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w: text file is not valid UTF-8", ErrExtraction)
		}
		text = string(data)
	case KindPDF:
		text, err = extractPDF(data)
		if err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, kind)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: document contains no text", ErrExtraction)
	}
	return text, nil
}

func extractPDF(data []byte) (text string, err error) {
	// the pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: malformed PDF: %v", ErrExtraction, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: failed to open PDF: %v", ErrExtraction, err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: failed to read PDF text: %v", ErrExtraction, err)
	}
	out, err := readAllLimited(plain, MaxDocumentSize)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	return string(out), nil
}

func readAllLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("content larger than %d bytes", limit)
	}
	return data, nil
}

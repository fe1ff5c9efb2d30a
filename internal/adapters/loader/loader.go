// Package loader provides document loading adapters.
// Clean Architecture: adapters implementing ports.DocumentLoader.
package loader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/localdocs/docchat/internal/domain/entities"
	"github.com/localdocs/docchat/internal/domain/ports"
)

// TextLoader loads plain text documents.
type TextLoader struct{}

// NewTextLoader creates a new text document loader.
func NewTextLoader() *TextLoader {
	return &TextLoader{}
}

// Load reads a text document from the given path.
func (l *TextLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	content, info, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return newDocument(path, string(content), info.ModTime()), nil
}

// SupportedExtensions returns file extensions this loader handles.
func (l *TextLoader) SupportedExtensions() []string {
	return []string{".txt", ".md", ".markdown", ".csv"}
}

var (
	htmlScriptRe = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	htmlTagRe    = regexp.MustCompile(`(?s)<[^>]+>`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
)

// HTMLLoader loads HTML documents, stripping markup down to readable text.
type HTMLLoader struct{}

// NewHTMLLoader creates a new HTML document loader.
func NewHTMLLoader() *HTMLLoader {
	return &HTMLLoader{}
}

// Load reads an HTML document and extracts its text content.
func (l *HTMLLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	content, info, err := readFile(path)
	if err != nil {
		return nil, err
	}

	text := htmlScriptRe.ReplaceAllString(string(content), " ")
	text = htmlTagRe.ReplaceAllString(text, " ")
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}

	return newDocument(path, strings.Join(lines, "\n"), info.ModTime()), nil
}

// SupportedExtensions returns file extensions this loader handles.
func (l *HTMLLoader) SupportedExtensions() []string {
	return []string{".html", ".htm"}
}

// PDFLoader loads PDF documents through a DocumentParser.
type PDFLoader struct {
	parser ports.DocumentParser
}

// NewPDFLoader creates a PDF loader backed by the given parser.
func NewPDFLoader(parser ports.DocumentParser) *PDFLoader {
	return &PDFLoader{parser: parser}
}

// Load reads a PDF file and extracts its text.
func (l *PDFLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	text, err := l.parser.Parse(ctx, data, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("parsing pdf: %w", err)
	}

	modTime := time.Now()
	if info, err := os.Stat(path); err == nil {
		modTime = info.ModTime()
	}
	return newDocument(path, text, modTime), nil
}

// SupportedExtensions returns file extensions this loader handles.
func (l *PDFLoader) SupportedExtensions() []string {
	return []string{".pdf"}
}

// MultiLoader dispatches to the appropriate loader by file extension.
type MultiLoader struct {
	loaders map[string]ports.DocumentLoader
	exts    []string
}

// NewMultiLoader creates a loader combining the given loaders. Later loaders
// win on extension conflicts.
func NewMultiLoader(loaders ...ports.DocumentLoader) *MultiLoader {
	m := &MultiLoader{loaders: make(map[string]ports.DocumentLoader)}
	for _, l := range loaders {
		for _, ext := range l.SupportedExtensions() {
			if _, seen := m.loaders[ext]; !seen {
				m.exts = append(m.exts, ext)
			}
			m.loaders[ext] = l
		}
	}
	return m
}

// Load dispatches to the loader registered for the file's extension.
func (m *MultiLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	l, ok := m.loaders[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}
	return l.Load(ctx, path)
}

// SupportedExtensions returns all registered extensions in registration order.
func (m *MultiLoader) SupportedExtensions() []string {
	out := make([]string, len(m.exts))
	copy(out, m.exts)
	return out
}

func readFile(path string) ([]byte, os.FileInfo, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}
	return content, info, nil
}

func newDocument(path, content string, modTime time.Time) *entities.Document {
	return &entities.Document{
		ID:        generateDocID(path),
		Name:      filepath.Base(path),
		Path:      path,
		Content:   content,
		CreatedAt: modTime,
		UpdatedAt: time.Now(),
	}
}

// generateDocID creates a deterministic ID for a document path.
func generateDocID(path string) string {
	hash := sha256.Sum256([]byte(path))
	return hex.EncodeToString(hash[:8])
}

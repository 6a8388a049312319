// Package preview classifies a file and returns a displayable rendition of
// it: a data URL for images, leading text for text files.
package preview

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/fenilsonani/diskscope/internal/response"
	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
)

// Kind is the classification of a previewed file
type Kind string

const (
	KindImage   Kind = "image"
	KindText    Kind = "text"
	KindBinary  Kind = "binary"
	KindUnknown Kind = "unknown"
)

const (
	// MaxTextBytes is the longest text content returned before truncation
	MaxTextBytes = 50000
	// TruncationMarker is appended to truncated text content
	TruncationMarker = "...\n\n[Content truncated - file too large]"

	sniffLimit = 1024 * 1024
	sniffBytes = 8000
)

var (
	imageExtensions = []string{"jpg", "jpeg", "png", "gif", "bmp", "webp", "svg", "ico"}
	textExtensions  = []string{
		"txt", "md", "json", "xml", "html", "css", "js", "ts", "rs", "py",
		"java", "c", "cpp", "h", "hpp", "go", "rb", "php", "sh", "bash", "zsh",
		"yaml", "yml", "toml", "ini", "cfg", "log", "conf", "properties", "env",
		"gitignore", "dockerignore", "editorconfig",
	}
	imageMIMETypes = map[string]string{
		"png":  "image/png",
		"gif":  "image/gif",
		"bmp":  "image/bmp",
		"webp": "image/webp",
		"svg":  "image/svg+xml",
	}
)

// Preview is the payload of a successful preview
type Preview struct {
	Name     string `json:"name" yaml:"name"`
	Path     string `json:"path" yaml:"path"`
	Type     Kind   `json:"type" yaml:"type"`
	Content  string `json:"content,omitempty" yaml:"content,omitempty"`
	ImageURL string `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`
}

// Previewer reads files through an afero filesystem
type Previewer struct {
	fs afero.Fs
}

func New(fs afero.Fs) *Previewer {
	return &Previewer{fs: fs}
}

// File previews path and wraps the outcome in an envelope
func (p *Previewer) File(path string) response.Envelope {
	pv, err := p.Preview(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return response.Error("File not found")
	case err != nil:
		return response.Errorf("Failed to read file: %v", err)
	}
	return response.Success("File preview retrieved", response.Object[Preview]{V: pv})
}

// Preview classifies path and loads its content when it is an image or text
func (p *Previewer) Preview(path string) (Preview, error) {
	info, err := p.fs.Stat(path)
	if err != nil {
		return Preview{}, err
	}

	pv := Preview{
		Name: filepath.Base(path),
		Path: path,
		Type: KindUnknown,
	}
	if info.Mode().IsRegular() {
		pv.Type = p.classify(path, extension(path), info.Size())
	}

	switch pv.Type {
	case KindImage:
		data, err := afero.ReadFile(p.fs, path)
		if err != nil {
			return Preview{}, err
		}
		pv.ImageURL = dataURL(extension(path), data)

	case KindText:
		content, err := p.readText(path)
		if err != nil {
			return Preview{}, err
		}
		pv.Content = content
	}

	return pv, nil
}

// classify picks a Kind by extension, sniffing the content of files under
// 1 MiB. Unreadable content demotes text to binary.
func (p *Previewer) classify(path, ext string, size int64) Kind {
	switch {
	case slices.Contains(imageExtensions, ext):
		return KindImage

	case slices.Contains(textExtensions, ext):
		if size >= sniffLimit {
			return KindText
		}
		data, err := afero.ReadFile(p.fs, path)
		if err != nil || !utf8.Valid(data) || bytes.IndexByte(head(data), 0) >= 0 {
			return KindBinary
		}
		return KindText

	default:
		if size >= sniffLimit {
			return KindBinary
		}
		data, err := afero.ReadFile(p.fs, path)
		if err != nil {
			return KindBinary
		}
		if isText(mimetype.Detect(head(data))) {
			return KindText
		}
		return KindBinary
	}
}

// isText reports whether mt is text/plain or one of its descendants
func isText(mt *mimetype.MIME) bool {
	for ; mt != nil; mt = mt.Parent() {
		if mt.Is("text/plain") {
			return true
		}
	}
	return false
}

// readText returns at most MaxTextBytes of the file, cut on a rune
// boundary, followed by TruncationMarker when anything was dropped.
func (p *Previewer) readText(path string) (string, error) {
	f, err := p.fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	// Read a few bytes past the limit so a rune straddling it can be seen.
	data, err := io.ReadAll(io.LimitReader(f, MaxTextBytes+utf8.UTFMax))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	if len(data) <= MaxTextBytes {
		return strings.ToValidUTF8(string(data), string(utf8.RuneError)), nil
	}
	return strings.ToValidUTF8(string(truncate(data, MaxTextBytes)), string(utf8.RuneError)) + TruncationMarker, nil
}

// truncate shortens data to at most n bytes without splitting a UTF-8
// sequence.
func truncate(data []byte, n int) []byte {
	if len(data) <= n {
		return data
	}
	cut := n
	for cut > 0 && cut > n-utf8.UTFMax && !utf8.RuneStart(data[cut]) {
		cut--
	}
	if !utf8.RuneStart(data[cut]) {
		// Not UTF-8 around the limit; cut at the byte limit.
		cut = n
	}
	return data[:cut]
}

// dataURL encodes data with its sniffed image type, falling back to the
// extension when the content is not recognized as an image.
func dataURL(ext string, data []byte) string {
	mime := ""
	if mt := mimetype.Detect(head(data)); strings.HasPrefix(mt.String(), "image/") {
		mime, _, _ = strings.Cut(mt.String(), ";")
	} else if m, ok := imageMIMETypes[ext]; ok {
		mime = m
	} else {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// extension returns the lower-cased extension without the dot. Dotfiles
// such as ".gitignore" use the name after the dot.
func extension(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

func head(data []byte) []byte {
	return data[:min(len(data), sniffBytes)]
}

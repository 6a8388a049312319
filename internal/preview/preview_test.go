package preview

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/fenilsonani/diskscope/internal/response"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memFile(t *testing.T, fs afero.Fs, path string, data []byte) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, data, 0o644))
}

func TestPreview_Classification(t *testing.T) {
	fs := afero.NewMemMapFs()
	memFile(t, fs, "/f/photo.PNG", []byte{0x89, 'P', 'N', 'G'})
	memFile(t, fs, "/f/notes.md", []byte("# hello\n"))
	memFile(t, fs, "/f/nul.txt", []byte("abc\x00def"))
	memFile(t, fs, "/f/latin1.log", []byte{'c', 'a', 'f', 0xe9})
	memFile(t, fs, "/f/README", []byte("plain ascii\r\n\tindented\n"))
	memFile(t, fs, "/f/blob.dat", []byte{0x01, 0x02, 0xff})
	memFile(t, fs, "/f/huge.dat", make([]byte, 1024*1024))
	memFile(t, fs, "/f/.gitignore", []byte("*.o\n"))

	tests := []struct {
		path string
		want Kind
	}{
		{"/f/photo.PNG", KindImage},
		{"/f/notes.md", KindText},
		{"/f/nul.txt", KindBinary},
		{"/f/latin1.log", KindBinary},
		{"/f/README", KindText},
		{"/f/blob.dat", KindBinary},
		{"/f/huge.dat", KindBinary},
		{"/f/.gitignore", KindText},
	}

	p := New(fs)
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			pv, err := p.Preview(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, pv.Type)
		})
	}
}

func TestPreview_SniffsUnknownExtensions(t *testing.T) {
	fs := afero.NewMemMapFs()
	memFile(t, fs, "/s/Makefile", []byte("all:\n\tgo build ./...\n"))
	memFile(t, fs, "/s/page", []byte("<!DOCTYPE html><html><body>hi</body></html>"))
	memFile(t, fs, "/s/archive", []byte{0x1f, 0x8b, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x03})
	memFile(t, fs, "/s/picture", []byte("GIF89a\x01\x00\x01\x00"))
	require.NoError(t, fs.MkdirAll("/s/dir.txt", 0o755))

	tests := []struct {
		path string
		want Kind
	}{
		{"/s/Makefile", KindText},
		{"/s/page", KindText},
		{"/s/archive", KindBinary},
		{"/s/picture", KindBinary},
		{"/s/dir.txt", KindUnknown},
	}

	p := New(fs)
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			pv, err := p.Preview(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, pv.Type)
			assert.Empty(t, pv.ImageURL)
		})
	}
}

func TestDataURL_UsesSniffedType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	url := dataURL("jpg", png)
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"), url)

	url = dataURL("webp", []byte("not an image"))
	assert.True(t, strings.HasPrefix(url, "data:image/webp;base64,"), url)
}

func TestPreview_Image(t *testing.T) {
	fs := afero.NewMemMapFs()
	memFile(t, fs, "/img/a.svg", []byte("<svg/>"))
	memFile(t, fs, "/img/b.jpg", []byte("hi"))

	p := New(fs)

	pv, err := p.Preview("/img/a.svg")
	require.NoError(t, err)
	assert.Equal(t, "data:image/svg+xml;base64,PHN2Zy8+", pv.ImageURL)
	assert.Empty(t, pv.Content)

	pv, err = p.Preview("/img/b.jpg")
	require.NoError(t, err)
	assert.Equal(t, "data:image/jpeg;base64,aGk=", pv.ImageURL)
	assert.Equal(t, "b.jpg", pv.Name)
}

func TestPreview_TextTruncation(t *testing.T) {
	fs := afero.NewMemMapFs()

	// "é" is two bytes; the 50000 byte limit falls inside the last one.
	long := strings.Repeat("a", MaxTextBytes-1) + strings.Repeat("é", 10)
	memFile(t, fs, "/t/long.txt", []byte(long))
	memFile(t, fs, "/t/exact.txt", []byte(strings.Repeat("b", MaxTextBytes)))

	p := New(fs)

	pv, err := p.Preview("/t/long.txt")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(pv.Content, TruncationMarker))
	body := strings.TrimSuffix(pv.Content, TruncationMarker)
	assert.True(t, utf8.ValidString(body))
	assert.Equal(t, strings.Repeat("a", MaxTextBytes-1), body)

	pv, err = p.Preview("/t/exact.txt")
	require.NoError(t, err)
	assert.Len(t, pv.Content, MaxTextBytes)
	assert.NotContains(t, pv.Content, "truncated")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, []byte("abc"), truncate([]byte("abc"), 5))
	assert.Equal(t, []byte("ab"), truncate([]byte("abcd"), 2))
	assert.Equal(t, []byte("a"), truncate([]byte("a€"), 2))
	assert.Equal(t, []byte{0xff, 0xff}, truncate([]byte{0xff, 0xff, 0xff}, 2))
}

func TestFile_Envelope(t *testing.T) {
	fs := afero.NewMemMapFs()
	memFile(t, fs, "/d/a.txt", []byte("hello"))
	p := New(fs)

	env := p.File("/d/a.txt")
	assert.Equal(t, response.StatusSuccess, env.Status)
	assert.Equal(t, "File preview retrieved", env.Message)
	assert.Equal(t, response.Object[Preview]{V: Preview{Name: "a.txt", Path: "/d/a.txt", Type: KindText, Content: "hello"}}, env.Data)

	env = p.File("/d/missing.txt")
	assert.Equal(t, response.StatusError, env.Status)
	assert.Equal(t, "File not found", env.Message)
}

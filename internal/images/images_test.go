package images

import (
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapResolver map[string][]byte

func (m mapResolver) Resolve(name string) ([]byte, error) {
	b, ok := m[name]
	if !ok {
		return nil, errors.New("not found")
	}
	return b, nil
}

func TestExtract_LocalReference(t *testing.T) {
	raw := []byte{0x89, 0x50, 0x4E, 0x47}
	e := &Extractor{Resolver: mapResolver{"diagram.png": raw}}

	got := e.Extract("see ![[diagram.png|the diagram]] above")

	require.Len(t, got, 1)
	assert.Equal(t, base64.StdEncoding.EncodeToString(raw), got[0].Data)
	assert.Equal(t, "image/png", got[0].MimeType)
}

func TestExtract_UnresolvableLocalSkippedSilently(t *testing.T) {
	e := &Extractor{Resolver: mapResolver{}}
	got := e.Extract("![[missing.png]] and some text")
	assert.Empty(t, got)
}

func TestExtract_RemoteReference(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpegbytes"))
	}))
	defer ts.Close()

	e := &Extractor{Client: ts.Client()}
	got := e.Extract("![photo](" + ts.URL + "/photo.jpg)")

	require.Len(t, got, 1)
	assert.Equal(t, "image/jpeg", got[0].MimeType)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("jpegbytes")), got[0].Data)
}

func TestExtract_RemoteNonImageContentTypeSkipped(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>not an image</html>"))
	}))
	defer ts.Close()

	e := &Extractor{Client: ts.Client()}
	assert.Empty(t, e.Extract("![page]("+ts.URL+")"))
}

func TestExtract_MissingContentTypeDefaultsToPng(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// suppress net/http's automatic content-type sniffing
		w.Header()["Content-Type"] = nil
		w.Write([]byte{0x89})
	}))
	defer ts.Close()

	e := &Extractor{Client: ts.Client()}
	got := e.Extract("![raw](" + ts.URL + ")")
	require.Len(t, got, 1)
	assert.Equal(t, "image/png", got[0].MimeType)
}

func TestExtract_LocalSurvivesRemoteFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	e := &Extractor{
		Resolver: mapResolver{"ok.gif": []byte("gifdata")},
		Client:   ts.Client(),
	}
	got := e.Extract("![[ok.gif]] plus ![gone](" + ts.URL + "/gone.png)")

	require.Len(t, got, 1)
	assert.Equal(t, "image/gif", got[0].MimeType)
}

func TestExtract_OrderLocalPassFirst(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("remote"))
	}))
	defer ts.Close()

	e := &Extractor{
		Resolver: mapResolver{"a.png": []byte("local")},
		Client:   ts.Client(),
	}
	// remote reference appears first in the body, local pass still wins
	got := e.Extract("![r](" + ts.URL + ") then ![[a.png]]")

	require.Len(t, got, 2)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("local")), got[0].Data)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("remote")), got[1].Data)
}

func TestMimeFromName(t *testing.T) {
	cases := map[string]string{
		"a.png":       "image/png",
		"b.JPG":       "image/jpeg",
		"c.jpeg":      "image/jpeg",
		"d.gif":       "image/gif",
		"e.webp":      "image/webp",
		"f.svg":       "image/png",
		"noextension": "image/png",
	}
	for name, want := range cases {
		assert.Equal(t, want, MimeFromName(name), name)
	}
}

func TestDirResolver(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "assets", "deep")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "pic.png"), []byte("pixels"), 0o644))

	r := DirResolver{Root: root}

	b, err := r.Resolve("assets/deep/pic.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("pixels"), b)

	// bare name is found anywhere under the root
	b, err = r.Resolve("pic.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("pixels"), b)

	_, err = r.Resolve("nope.png")
	assert.Error(t, err)
}

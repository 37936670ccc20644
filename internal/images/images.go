// Package images resolves inline image references in turn bodies into
// base64 payloads. It never fails, a broken or slow image link degrades
// by omission so the rest of the conversation can still be sent.
package images

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/baalimago/go_away_boilerplate/pkg/ancli"
	"github.com/youruser/chatdoc/internal/models"
)

// AttachmentResolver looks up a local attachment reference to its raw
// bytes. Implemented by the host's vault collaborator, see DirResolver
// for the file-backed default.
type AttachmentResolver interface {
	Resolve(name string) ([]byte, error)
}

var (
	localRe  = regexp.MustCompile(`!\[\[([^\]]+)\]\]`)
	remoteRe = regexp.MustCompile(`!\[[^\]]*\]\((https?://[^)\s]+)\)`)
)

var mimeByExt = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// Extractor finds local '![[name|alias]]' and remote '![alt](https://..)'
// references. The local pass runs first, then the remote pass, each in
// left-to-right body order.
type Extractor struct {
	Resolver AttachmentResolver
	Client   *http.Client
}

// Extract returns every resolvable image in the body. Unresolvable
// references are skipped silently, transport failures are skipped with
// a warning.
func (e *Extractor) Extract(body string) []models.Image {
	var out []models.Image
	out = append(out, e.extractLocal(body)...)
	out = append(out, e.extractRemote(body)...)
	return out
}

func (e *Extractor) extractLocal(body string) []models.Image {
	if e.Resolver == nil {
		return nil
	}
	var out []models.Image
	for _, match := range localRe.FindAllStringSubmatch(body, -1) {
		name := match[1]
		// the part after '|' is a display alias, not part of the lookup key
		if idx := strings.Index(name, "|"); idx != -1 {
			name = name[:idx]
		}
		name = strings.TrimSpace(name)
		data, err := e.Resolver.Resolve(name)
		if err != nil {
			continue
		}
		out = append(out, models.Image{
			Data:     base64.StdEncoding.EncodeToString(data),
			MimeType: MimeFromName(name),
		})
	}
	return out
}

func (e *Extractor) extractRemote(body string) []models.Image {
	client := e.Client
	if client == nil {
		client = http.DefaultClient
	}
	var out []models.Image
	for _, match := range remoteRe.FindAllStringSubmatch(body, -1) {
		url := match[1]
		resp, err := client.Get(url)
		if err != nil {
			ancli.PrintWarn(fmt.Sprintf("failed to fetch image '%v': %v\n", url, err))
			continue
		}
		img, ok := imageFromResponse(resp)
		resp.Body.Close()
		if !ok {
			continue
		}
		out = append(out, img)
	}
	return out
}

func imageFromResponse(resp *http.Response) (models.Image, bool) {
	if resp.StatusCode != http.StatusOK {
		return models.Image{}, false
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	if !strings.HasPrefix(contentType, "image/") {
		return models.Image{}, false
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		ancli.PrintWarn(fmt.Sprintf("failed to read image body: %v\n", err))
		return models.Image{}, false
	}
	return models.Image{
		Data:     base64.StdEncoding.EncodeToString(data),
		MimeType: contentType,
	}, true
}

// MimeFromName maps an attachment file extension to its mime type,
// falling back to image/png for anything unrecognized.
func MimeFromName(name string) string {
	if mime, ok := mimeByExt[strings.ToLower(filepath.Ext(name))]; ok {
		return mime
	}
	return "image/png"
}

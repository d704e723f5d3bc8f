package mirror

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
)

// URLSet - множество посещённых URL
type URLSet struct {
	m map[string]struct{}
}

// NewURLSet - создаёт новый set
func NewURLSet() *URLSet {
	return &URLSet{m: make(map[string]struct{})}
}

// Add - добавляет URL, возвращает true если URL новый
func (s *URLSet) Add(u string) bool {
	u = normalizeURL(u)
	if u == "" {
		return false
	}
	if _, ok := s.m[u]; ok {
		return false
	}
	s.m[u] = struct{}{}
	return true
}

func (s *URLSet) Size() int {
	return len(s.m)
}

// normalizeURL - убирает пробелы и фрагменты (#), приводит URL к нормальной форме
func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	u.Fragment = ""
	return u.String()
}

// ensureDir - создаёт директорию
func ensureDir(p string) error {
	return os.MkdirAll(p, 0755)
}

// writeFileAtomic - сохраняет файл атомарно: сначала tmp, потом rename
func writeFileAtomic(p string, data []byte) error {
	if err := atomic.WriteFile(p, bytes.NewReader(data)); err != nil {
		return err
	}
	// временный файл создаётся с 0600
	return os.Chmod(p, 0644)
}

// FileExists - true, если по пути лежит обычный файл
func FileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && st.Mode().IsRegular()
}

// LocalPath - локальный путь ресурса: путь из URL без хоста и query, внутри root.
// URL, отличающиеся только query, дают один и тот же путь.
func LocalPath(root, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return localPath(root, u)
}

func localPath(root string, u *url.URL) (string, error) {
	// путь каталога дал бы файл, который закрывает все ресурсы внутри него
	if strings.HasSuffix(u.Path, "/") {
		return "", fmt.Errorf("%q is a directory path", u.String())
	}
	// path.Clean от "/" не даёт выйти выше root через ".."
	p := strings.TrimPrefix(path.Clean("/"+u.Path), "/")
	if p == "" {
		return "", fmt.Errorf("no file path in %q", u.String())
	}
	return filepath.Join(root, filepath.FromSlash(p)), nil
}

// mediaType - тип из Content-Type без параметров
func mediaType(contentType string) string {
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

// isCodeType - скрипт или стиль, в которых ищутся ссылки на другие ресурсы
func isCodeType(contentType string) bool {
	switch mediaType(contentType) {
	case "application/javascript", "text/javascript", "text/css":
		return true
	}
	return false
}

// isStylesheet - text/css
func isStylesheet(contentType string) bool {
	return mediaType(contentType) == "text/css"
}

// ErrHTMLErrorPage - сервер вернул HTML вместо ресурса (обычно страница 404)
var ErrHTMLErrorPage = errors.New("MIME type is text/html (likely a 404 page)")

// isHTMLErrorPage - text/html для URL, который не заканчивается на .html
func isHTMLErrorPage(contentType, rawURL string) bool {
	return strings.Contains(strings.ToLower(contentType), "text/html") && !strings.HasSuffix(rawURL, ".html")
}

// resolveRef - Преобразует ссылку на странице в абсолютный URL, игнорирует фрагменты, data:, mailto:, javascript: и tel:
func resolveRef(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return ""
	}
	lower := strings.ToLower(ref)
	for _, scheme := range []string{"data:", "mailto:", "tel:", "javascript:"} {
		if strings.HasPrefix(lower, scheme) {
			return ""
		}
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	res := base.ResolveReference(u)
	res.Fragment = ""
	if res.Scheme != "http" && res.Scheme != "https" {
		return ""
	}
	return res.String()
}

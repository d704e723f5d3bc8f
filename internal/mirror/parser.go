package mirror

import (
	"net/url"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

var (
	cspSelector    = cascadia.MustCompile(`meta[http-equiv="Content-Security-Policy"]`)
	assetSelector  = cascadia.MustCompile(`img[src], link[href], script[src]`)
	scriptSelector = cascadia.MustCompile(`script`)
)

// RemoveCSP - удаляет <meta http-equiv="Content-Security-Policy">, возвращает число удалённых тегов
func RemoveCSP(doc *html.Node) int {
	metas := cspSelector.MatchAll(doc)
	for _, n := range metas {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
	return len(metas)
}

// ExtractAssets - скачивает src/href тегов img, link и script, затем ссылки на хост
// во встроенных скриптах. Во встроенных скриптах абсолютные ссылки заменяются относительными.
func ExtractAssets(d *Downloader, doc *html.Node, base *url.URL) {
	for _, n := range assetSelector.MatchAll(doc) {
		key := "src"
		if n.Data == "link" {
			key = "href"
		}
		if abs := resolveRef(base, attr(n, key)); abs != "" {
			d.Download(abs)
		}
	}

	for _, n := range scriptSelector.MatchAll(doc) {
		text := n.FirstChild
		if text == nil || text.NextSibling != nil || text.Type != html.TextNode {
			continue
		}
		updated := text.Data
		for _, ref := range d.disc.Inline(text.Data) {
			if abs := resolveRef(base, ref.Relative); abs != "" {
				d.Download(abs)
			}
			updated = strings.ReplaceAll(updated, ref.URL, ref.Relative)
		}
		text.Data = updated
	}
}

// attr - значение атрибута или пустая строка
func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

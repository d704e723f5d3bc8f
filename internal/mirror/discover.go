package mirror

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
)

// relativeRe - корневые пути сборки: /build/..., /css/..., /js/...
var relativeRe = regexp.MustCompile(`/(?:build|css|js)/[^'"\s\)\]]+`)

// Discoverer - поиск ссылок на ресурсы хоста по регулярным выражениям
type Discoverer struct {
	host     string
	absolute *regexp.Regexp
	inline   *regexp.Regexp
	uploads  *regexp.Regexp
}

// NewDiscoverer - компилирует выражения для хоста без завершающего слэша
func NewDiscoverer(host string) *Discoverer {
	q := regexp.QuoteMeta(host)
	return &Discoverer{
		host:     host,
		absolute: regexp.MustCompile(q + `/[^'"\s\)\]]+`),
		inline:   regexp.MustCompile(q + `/([^'"\s]+)`),
		uploads:  regexp.MustCompile(q + `/uploads/[^\s'"\)\]&>/]+`),
	}
}

// SameHost - ссылка указывает на хост-источник
func (d *Discoverer) SameHost(rawURL string) bool {
	return strings.HasPrefix(rawURL, d.host+"/")
}

// Links - абсолютные ссылки на хост плюс корневые пути build/css/js, дополненные хостом.
// Дубликаты не убираются.
func (d *Discoverer) Links(text string) []string {
	found := d.absolute.FindAllString(text, -1)
	for _, p := range relativeRe.FindAllString(text, -1) {
		found = append(found, d.host+p)
	}
	return found
}

// InlineRef - абсолютная ссылка во встроенном скрипте и её путь относительно хоста
type InlineRef struct {
	URL      string
	Relative string
}

// Inline - абсолютные ссылки на хост внутри текста встроенного скрипта
func (d *Discoverer) Inline(text string) []InlineRef {
	var refs []InlineRef
	for _, m := range d.inline.FindAllStringSubmatch(text, -1) {
		refs = append(refs, InlineRef{URL: m[0], Relative: m[1]})
	}
	return refs
}

// Uploads - загруженные пользователем файлы (/uploads/...)
func (d *Discoverer) Uploads(text string) []string {
	return d.uploads.FindAllString(text, -1)
}

var (
	cssURLRe    = regexp.MustCompile(`url\(\s*(?:'([^']*)'|"([^"]*)"|([^)'"\s]+))\s*\)`)
	cssImportRe = regexp.MustCompile(`^\s*['"]([^'"]+)['"]`)
)

// StylesheetLinks - ссылки url(...) и @import из CSS, разрешённые относительно адреса стиля
func StylesheetLinks(base *url.URL, text string) ([]string, error) {
	sheet, err := parser.Parse(text)
	if err != nil {
		return nil, err
	}

	var found []string
	add := func(ref string) {
		if abs := resolveRef(base, ref); abs != "" {
			found = append(found, abs)
		}
	}

	var walk func([]*css.Rule)
	walk = func(rules []*css.Rule) {
		for _, rule := range rules {
			if rule == nil {
				continue
			}
			if rule.Kind == css.AtRule && strings.EqualFold(strings.TrimSpace(rule.Name), "@import") {
				refs := cssURLs(rule.Prelude)
				if len(refs) == 0 {
					if m := cssImportRe.FindStringSubmatch(rule.Prelude); m != nil {
						refs = []string{m[1]}
					}
				}
				for _, ref := range refs {
					add(ref)
				}
			}
			for _, decl := range rule.Declarations {
				for _, ref := range cssURLs(decl.Value) {
					add(ref)
				}
			}
			walk(rule.Rules)
		}
	}
	walk(sheet.Rules)
	return found, nil
}

// cssURLs - аргументы всех url(...) в значении
func cssURLs(value string) []string {
	var out []string
	for _, m := range cssURLRe.FindAllStringSubmatch(value, -1) {
		for _, g := range m[1:] {
			if g != "" {
				out = append(out, g)
				break
			}
		}
	}
	return out
}

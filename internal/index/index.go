// Пакет index - страница со списком всех скачанных презентаций.
package index

import (
	"bytes"
	"html/template"
	"os"
	"path/filepath"
	"sort"

	"github.com/natefinch/atomic"

	"hedgemirror/internal/mirror"
)

// Entry - одна скачанная презентация
type Entry struct {
	Name       string
	SinglePage bool
}

var page = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Presentations</title>
<style>
body { font-family: sans-serif; max-width: 40em; margin: 2em auto; color: #222; }
h1 { font-size: 1.6em; border-bottom: 1px solid #ccc; padding-bottom: .3em; }
ul { list-style: none; padding: 0; }
li { margin: .5em 0; }
a { color: #0366d6; text-decoration: none; }
a:hover { text-decoration: underline; }
.single { font-size: .85em; margin-left: .8em; color: #666; }
</style>
</head>
<body>
<h1>Presentations</h1>
<ul>
{{- range .}}
<li><a href="{{.Name}}/index.html">{{.Name}}</a>{{if .SinglePage}} <a class="single" href="{{.Name}}/single-page.html">(single page)</a>{{end}}</li>
{{- end}}
</ul>
</body>
</html>
`))

// Scan - подкаталоги root, в которых есть index.html, отсортированные по имени
func Scan(root string) ([]Entry, error) {
	items, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, it := range items {
		if !it.IsDir() {
			continue
		}
		dir := filepath.Join(root, it.Name())
		if !mirror.FileExists(filepath.Join(dir, mirror.PresentationFile)) {
			continue
		}
		entries = append(entries, Entry{
			Name:       it.Name(),
			SinglePage: mirror.FileExists(filepath.Join(dir, mirror.SinglePageFile)),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Render - HTML страницы со списком
func Render(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := page.Execute(&buf, entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Build - пересобирает root/index.html, возвращает число презентаций в списке
func Build(root string) (int, error) {
	entries, err := Scan(root)
	if err != nil {
		return 0, err
	}
	data, err := Render(entries)
	if err != nil {
		return 0, err
	}
	target := filepath.Join(root, mirror.PresentationFile)
	if err := atomic.WriteFile(target, bytes.NewReader(data)); err != nil {
		return 0, err
	}
	return len(entries), os.Chmod(target, 0644)
}

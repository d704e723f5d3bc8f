package mirror

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hedgemirror/internal/config"
	"hedgemirror/internal/fetch"
)

const presentationPage = `<!DOCTYPE html>
<html><head>
<meta http-equiv="Content-Security-Policy" content="default-src 'self' {{host}}">
<link rel="stylesheet" href="{{host}}/build/slide.css">
<script src="build/app.js"></script>
<script>window.mathjaxSrc = "{{host}}/build/MathJax/MathJax.js?config=TeX"</script>
</head><body>
<div class="slides"><section>
<img src="{{host}}/uploads/upload_abc.png">
<p>See <a href="{{host}}/uploads/upload_def.pdf">notes</a> and {{host}}/uploads/upload_ghi.jpg for details</p>
</section></div>
</body></html>`

func presentationSite(t *testing.T) *testSite {
	return newTestSite(t, map[string]resource{
		"/p/talk-1":                 {"text/html; charset=utf-8", presentationPage},
		"/s/talk-1":                 {"text/html; charset=utf-8", strings.Replace(presentationPage, `<div class="slides">`, `<div class="single">`, 1)},
		"/build/slide.css":          {"text/css", `@font-face{font-family:s;src:url(fonts/s.woff2)} .bg{background:url(/build/bg.png)}`},
		"/build/fonts/s.woff2":      {"font/woff2", "W2"},
		"/build/bg.png":             {"image/png", "PNG"},
		"/build/app.js":             {"application/javascript", `var x="/js/extra.js",y="{{host}}/build/missing.js"`},
		"/js/extra.js":              {"application/javascript", `1`},
		"/build/missing.js":         {"text/html", `<html>not found</html>`},
		"/build/MathJax/MathJax.js": {"application/javascript", `2`},
		"/uploads/upload_abc.png":   {"image/png", "A"},
		"/uploads/upload_def.pdf":   {"application/pdf", "D"},
		"/uploads/upload_ghi.jpg":   {"image/jpeg", "G"},
		"/build/MathJax/config.js":  {"application/javascript", `3`},
		"/build/extra-font.ttf":     {"font/ttf", "TTF"},
	})
}

func testConfig(host string) config.Config {
	cfg := config.Default()
	cfg.Host = host
	cfg.Assets = []string{"build/MathJax/config.js?V=2.7.9", "build/extra-font.ttf", "build/gone.woff"}
	return cfg
}

// TestDownloadPresentation проверяет полное зеркалирование презентации
func TestDownloadPresentation(t *testing.T) {
	site := presentationSite(t)
	dir := filepath.Join(t.TempDir(), "talk")
	logger, _ := testLogger()
	m := New(testConfig(site.URL()), logger)

	require.NoError(t, m.DownloadPresentation("talk-1", dir))

	page := readFile(t, filepath.Join(dir, "index.html"))
	assert.NotContains(t, page, "Content-Security-Policy")
	assert.NotContains(t, page, site.URL()+"/")
	assert.Contains(t, page, `href="./build/slide.css"`)
	assert.Contains(t, page, `src="./uploads/upload_abc.png"`)
	assert.Contains(t, page, `href="./uploads/upload_def.pdf"`)
	assert.Contains(t, page, `window.mathjaxSrc = "build/MathJax/MathJax.js?config=TeX"`)

	for _, p := range []string{
		"build/slide.css", "build/fonts/s.woff2", "build/bg.png", "build/app.js", "js/extra.js",
		"build/MathJax/MathJax.js", "uploads/upload_abc.png", "uploads/upload_def.pdf",
		"uploads/upload_ghi.jpg", "build/MathJax/config.js", "build/extra-font.ttf",
	} {
		assert.FileExists(t, filepath.Join(dir, filepath.FromSlash(p)))
	}
	assert.NoFileExists(t, filepath.Join(dir, "build", "missing.js"))
	assert.NoFileExists(t, filepath.Join(dir, "build", "gone.woff"))
	assert.NoFileExists(t, filepath.Join(dir, "single-page.html"))
	assert.Equal(t, 1, site.Hits("/build/app.js"))
}

// TestDownloadPresentationTwice проверяет, что повторный запуск даёт тот же index.html
func TestDownloadPresentationTwice(t *testing.T) {
	site := presentationSite(t)
	dir := filepath.Join(t.TempDir(), "talk")
	logger, _ := testLogger()
	m := New(testConfig(site.URL()), logger)

	require.NoError(t, m.DownloadPresentation("talk-1", dir))
	first := readFile(t, filepath.Join(dir, "index.html"))
	require.NoError(t, m.DownloadPresentation("talk-1", dir))
	assert.Equal(t, first, readFile(t, filepath.Join(dir, "index.html")))
	assert.Equal(t, 2, site.Hits("/build/app.js"))
}

// TestDownloadPresentationPageError проверяет, что ошибка загрузки страницы возвращается
func TestDownloadPresentationPageError(t *testing.T) {
	site := presentationSite(t)
	dir := filepath.Join(t.TempDir(), "talk")
	logger, _ := testLogger()
	m := New(testConfig(site.URL()), logger)

	err := m.DownloadPresentation("missing", dir)
	require.Error(t, err)
	var se *fetch.StatusError
	assert.True(t, errors.As(err, &se))
	assert.NoDirExists(t, dir)
}

// TestMirrorSinglePage проверяет выбор файла и пропуск уже скачанных ресурсов
func TestMirrorSinglePage(t *testing.T) {
	site := presentationSite(t)
	root := t.TempDir()
	logger, _ := testLogger()
	m := New(testConfig(site.URL()), logger)

	// без полной презентации одностраничный вариант становится index.html
	fresh := filepath.Join(root, "fresh")
	require.NoError(t, m.MirrorSinglePage("talk-1", fresh))
	assert.Contains(t, readFile(t, filepath.Join(fresh, "index.html")), `class="single"`)
	assert.NoFileExists(t, filepath.Join(fresh, "single-page.html"))
	assert.NoFileExists(t, filepath.Join(fresh, "build", "extra-font.ttf"))

	full := filepath.Join(root, "full")
	require.NoError(t, m.DownloadPresentation("talk-1", full))
	appHits := site.Hits("/build/app.js")
	cssHits := site.Hits("/build/slide.css")
	require.NoError(t, os.WriteFile(filepath.Join(full, "build", "app.js"), []byte("local"), 0644))

	require.NoError(t, m.MirrorSinglePage("talk-1", full))
	single := readFile(t, filepath.Join(full, "single-page.html"))
	assert.Contains(t, single, `class="single"`)
	assert.NotContains(t, single, site.URL()+"/")
	assert.Contains(t, readFile(t, filepath.Join(full, "index.html")), `class="slides"`)

	// ресурсы уже на диске: запросов нет, файлы не тронуты
	assert.Equal(t, appHits, site.Hits("/build/app.js"))
	assert.Equal(t, cssHits, site.Hits("/build/slide.css"))
	assert.Equal(t, "local", readFile(t, filepath.Join(full, "build", "app.js")))
}

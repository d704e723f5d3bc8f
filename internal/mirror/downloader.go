// Пакет mirror - зеркалирование презентации HedgeDoc в локальную директорию.
package mirror

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"hedgemirror/internal/config"
	"hedgemirror/internal/fetch"
)

// chunkSize - размер куска при потоковой записи; правки применяются к каждому куску отдельно
const chunkSize = 8192

// Options - настройки загрузчика
type Options struct {
	SkipExisting   bool
	MaxDepth       int
	Patches        []config.Patch
	WholeFilePatch bool
}

// downloadTask - одна задача для очереди (URL + глубина)
type downloadTask struct {
	URL   string
	Depth int
}

// Downloader - очередь загрузки ресурсов в root с множеством посещённых URL
type Downloader struct {
	client  *fetch.Client
	disc    *Discoverer
	root    string
	opts    Options
	log     *log.Logger
	queue   []downloadTask
	visited *URLSet
	results map[string]string
	saved   int
}

// NewDownloader - создаёт Downloader; logger == nil означает log.Default()
func NewDownloader(client *fetch.Client, disc *Discoverer, root string, opts Options, logger *log.Logger) *Downloader {
	if logger == nil {
		logger = log.Default()
	}
	if opts.MaxDepth < 0 {
		opts.MaxDepth = 0
	}
	return &Downloader{
		client:  client,
		disc:    disc,
		root:    root,
		opts:    opts,
		log:     logger,
		visited: NewURLSet(),
		results: make(map[string]string),
	}
}

// Download - скачивает ресурс и всё, что найдено в скриптах и стилях, до опустошения очереди.
// Возвращает локальный путь ресурса; ошибки только логируются.
func (d *Downloader) Download(rawURL string) (string, bool) {
	n := normalizeURL(rawURL)
	if n == "" {
		return "", false
	}
	if d.visited.Add(n) {
		d.queue = append(d.queue, downloadTask{URL: n, Depth: 0})
		d.run()
	}
	p, ok := d.results[n]
	return p, ok
}

// Visited - число различных URL, поставленных в очередь
func (d *Downloader) Visited() int { return d.visited.Size() }

// Saved - число записанных файлов
func (d *Downloader) Saved() int { return d.saved }

func (d *Downloader) run() {
	for len(d.queue) > 0 {
		task := d.queue[0]
		d.queue = d.queue[1:]
		d.processTask(task)
	}
}

func (d *Downloader) enqueue(rawURL string, depth int) {
	n := normalizeURL(rawURL)
	if n == "" || !(strings.HasPrefix(n, "http://") || strings.HasPrefix(n, "https://")) {
		return
	}
	if d.visited.Add(n) {
		d.queue = append(d.queue, downloadTask{URL: n, Depth: depth})
	}
}

// processTask - скачивает ресурс, сохраняет локально, ищет ссылки в JS/CSS
func (d *Downloader) processTask(task downloadTask) {
	indent := strings.Repeat("    ", task.Depth)
	u, err := url.Parse(task.URL)
	if err != nil {
		d.log.Printf("%sFailed to download %s: %v", indent, task.URL, err)
		return
	}
	local, err := localPath(d.root, u)
	if err != nil {
		d.log.Printf("%sFailed to download %s: %v", indent, task.URL, err)
		return
	}
	if d.opts.SkipExisting && FileExists(local) {
		d.results[task.URL] = local
		return
	}

	content, contentType, err := d.save(task.URL, local)
	if errors.Is(err, ErrHTMLErrorPage) {
		d.log.Printf("%s!! Skipped downloading %s: %v", indent, task.URL, err)
		return
	}
	if err != nil {
		d.log.Printf("%sFailed to download %s: %v", indent, task.URL, err)
		return
	}
	d.results[task.URL] = local
	d.saved++
	d.log.Printf("%sSaving %s to %s (%s)", indent, u.Path, local, humanize.Bytes(uint64(len(content))))

	if !isCodeType(contentType) {
		return
	}
	if d.opts.MaxDepth > 0 && task.Depth >= d.opts.MaxDepth {
		d.log.Printf("%sNot following links in %s: depth limit %d", indent, task.URL, d.opts.MaxDepth)
		return
	}
	if !utf8.Valid(content) {
		d.log.Printf("%sFailed to scan %s: content is not valid UTF-8", indent, task.URL)
		return
	}
	text := string(content)
	for _, l := range d.disc.Links(text) {
		if strings.HasSuffix(l, "/") {
			continue
		}
		d.enqueue(l, task.Depth+1)
	}
	if isStylesheet(contentType) {
		links, err := StylesheetLinks(u, text)
		if err != nil {
			d.log.Printf("%sFailed to parse stylesheet %s: %v", indent, task.URL, err)
			return
		}
		for _, l := range links {
			// только ресурсы хоста-источника
			if !d.disc.SameHost(l) {
				continue
			}
			d.enqueue(l, task.Depth+1)
		}
	}
}

// save - потоково пишет тело ответа в local и возвращает полное содержимое и Content-Type
func (d *Downloader) save(rawURL, local string) ([]byte, string, error) {
	resp, err := d.client.Get(rawURL)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if isHTMLErrorPage(contentType, rawURL) {
		return nil, contentType, ErrHTMLErrorPage
	}

	if err := ensureDir(filepath.Dir(local)); err != nil {
		return nil, contentType, err
	}
	f, err := os.Create(local)
	if err != nil {
		return nil, contentType, err
	}

	content, err := d.copyBody(f, resp.Body, d.patchesFor(local))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		// недокачанный файл не должен остаться на диске
		os.Remove(local)
		return nil, contentType, err
	}
	return content, contentType, nil
}

// copyBody - пишет тело кусками по chunkSize, применяя правки к каждому куску
// или, при WholeFilePatch, ко всему содержимому; возвращает записанное содержимое
func (d *Downloader) copyBody(w io.Writer, r io.Reader, patches []config.Patch) ([]byte, error) {
	chunked := len(patches) > 0 && !d.opts.WholeFilePatch
	whole := len(patches) > 0 && d.opts.WholeFilePatch

	var content bytes.Buffer
	buf := make([]byte, chunkSize)
	for {
		n, rerr := readChunk(r, buf)
		if n > 0 {
			chunk := buf[:n]
			if chunked {
				chunk = applyPatches(chunk, patches)
			}
			content.Write(chunk)
			if !whole {
				if _, err := w.Write(chunk); err != nil {
					return nil, err
				}
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, fmt.Errorf("read body: %w", rerr)
		}
	}

	data := content.Bytes()
	if whole {
		data = applyPatches(data, patches)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
	}
	return data, nil
}

// readChunk - заполняет buf целиком или до io.EOF. Любая другая ошибка, включая
// io.ErrUnexpectedEOF от оборванной передачи, возвращается как есть.
func readChunk(r io.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// patchesFor - правки для файла с точно таким именем
func (d *Downloader) patchesFor(local string) []config.Patch {
	name := filepath.Base(local)
	var out []config.Patch
	for _, p := range d.opts.Patches {
		if p.File == name {
			out = append(out, p)
		}
	}
	return out
}

func applyPatches(data []byte, patches []config.Patch) []byte {
	for _, p := range patches {
		data = bytes.ReplaceAll(data, []byte(p.Find), []byte(p.Replace))
	}
	return data
}

package mirror

import (
	"bytes"
	"fmt"
	"log"
	"net/url"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"hedgemirror/internal/config"
	"hedgemirror/internal/fetch"
)

const (
	// PresentationFile - файл полной презентации в директории зеркала
	PresentationFile = "index.html"
	// SinglePageFile - файл одностраничного варианта рядом с полной презентацией
	SinglePageFile = "single-page.html"
)

// Mirror - зеркалирование презентаций с одного хоста
type Mirror struct {
	cfg    config.Config
	client *fetch.Client
	disc   *Discoverer
	log    *log.Logger
}

// New - создаёт Mirror; cfg должен пройти Validate
func New(cfg config.Config, logger *log.Logger) *Mirror {
	if logger == nil {
		logger = log.Default()
	}
	return &Mirror{
		cfg:    cfg,
		client: fetch.New(cfg.Timeout),
		disc:   NewDiscoverer(cfg.Host),
		log:    logger,
	}
}

// DownloadPresentation - полная презентация /p/{id} в dir/index.html вместе с дополнительным списком ресурсов
func (m *Mirror) DownloadPresentation(id, dir string) error {
	return m.download("p", id, dir, PresentationFile, false, true)
}

// DownloadSinglePage - одностраничный вариант /s/{id} в dir/output.
// skipExisting не скачивает ресурсы, которые уже лежат на диске.
func (m *Mirror) DownloadSinglePage(id, dir, output string, skipExisting bool) error {
	return m.download("s", id, dir, output, skipExisting, false)
}

// MirrorSinglePage - одностраничный вариант с выбором файла: single-page.html рядом
// с уже скачанной полной презентацией (без повторной загрузки ресурсов), иначе index.html
func (m *Mirror) MirrorSinglePage(id, dir string) error {
	if FileExists(filepath.Join(dir, PresentationFile)) {
		return m.DownloadSinglePage(id, dir, SinglePageFile, true)
	}
	return m.DownloadSinglePage(id, dir, PresentationFile, false)
}

func (m *Mirror) download(kind, id, dir, output string, skipExisting, withAssets bool) error {
	base, err := url.Parse(m.cfg.Host)
	if err != nil {
		return fmt.Errorf("parse host: %w", err)
	}
	pageURL := m.cfg.Host + "/" + kind + "/" + url.PathEscape(id)

	m.log.Printf("Fetching %s", pageURL)
	resp, err := m.client.Get(pageURL)
	if err != nil {
		return fmt.Errorf("fetch page: %w", err)
	}
	doc, err := html.Parse(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("parse page: %w", err)
	}

	RemoveCSP(doc)

	d := NewDownloader(m.client, m.disc, dir, Options{
		SkipExisting:   skipExisting,
		MaxDepth:       m.cfg.MaxDepth,
		Patches:        m.cfg.Patches,
		WholeFilePatch: m.cfg.WholeFilePatch,
	}, m.log)
	ExtractAssets(d, doc, base)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	page := buf.String()

	for _, u := range m.disc.Uploads(page) {
		d.Download(u)
	}

	if withAssets {
		for _, p := range m.cfg.Assets {
			if abs := resolveRef(base, p); abs != "" {
				d.Download(abs)
			}
		}
	}

	page = strings.ReplaceAll(page, m.cfg.Host+"/", "./")

	if err := ensureDir(dir); err != nil {
		return err
	}
	target := filepath.Join(dir, output)
	if err := writeFileAtomic(target, []byte(page)); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	m.log.Printf("Wrote %s (visited %d urls, saved %d files)", target, d.Visited(), d.Saved())
	return nil
}

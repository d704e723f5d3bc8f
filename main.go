// hedgemirror - сохраняет презентацию HedgeDoc (slide mode) со всеми ресурсами в локальную директорию
// и пересобирает страницу со списком всех сохранённых презентаций.
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"hedgemirror/internal/config"
	"hedgemirror/internal/index"
	"hedgemirror/internal/mirror"
)

// errUsage - не хватает обязательных флагов
var errUsage = errors.New("both --id and --dir are required unless --index-only is set")

// options - значения флагов командной строки
type options struct {
	ID             string
	Dir            string
	Out            string
	SinglePage     bool
	IndexOnly      bool
	Host           string
	Assets         string
	Timeout        int
	MaxDepth       int
	WholeFilePatch bool
}

// parseFlags - разбирает аргументы; ошибка означает неверный вызов
func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := pflag.NewFlagSet("hedgemirror", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&o.ID, "id", "i", "", "presentation id on the source host")
	fs.StringVarP(&o.Dir, "dir", "d", "", "directory name for the presentation inside --out")
	fs.StringVarP(&o.Out, "out", "o", ".", "output root holding all presentations and the index page")
	fs.BoolVarP(&o.SinglePage, "single-page", "s", false, "download only the single page variant")
	fs.BoolVar(&o.IndexOnly, "index-only", false, "only regenerate the index page")
	fs.StringVar(&o.Host, "host", config.DefaultHost, "source host")
	fs.StringVar(&o.Assets, "assets", "", "YAML file with additional assets and patches (default: built-in list)")
	fs.IntVar(&o.Timeout, "timeout", 0, "http client timeout seconds (0 = no timeout)")
	fs.IntVar(&o.MaxDepth, "max-depth", config.DefaultMaxDepth, "max link depth inside scripts and styles (0 = unlimited)")
	fs.BoolVar(&o.WholeFilePatch, "whole-file-patch", false, "apply bundle patches to the whole file instead of each chunk")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s -i <id> -d <dir> [flags]\n       %s --index-only [-o <out>]\n", fs.Name(), fs.Name())
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if !o.IndexOnly && (o.ID == "" || o.Dir == "") {
		fs.Usage()
		return o, errUsage
	}
	return o, nil
}

// loadConfig - конфигурация зеркалирования из флагов
func loadConfig(o options) (config.Config, error) {
	assets, err := config.LoadAssets(o.Assets)
	if err != nil {
		return config.Config{}, err
	}
	cfg := config.Config{
		Host:           o.Host,
		Assets:         assets.Paths,
		Patches:        assets.Patches,
		Timeout:        time.Duration(o.Timeout) * time.Second,
		MaxDepth:       o.MaxDepth,
		WholeFilePatch: o.WholeFilePatch,
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// run - выполняет выбранный режим; код возврата для os.Exit
func run(args []string, logger *log.Logger, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	if !o.IndexOnly {
		cfg, err := loadConfig(o)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
		m := mirror.New(cfg, logger)
		target := filepath.Join(o.Out, o.Dir)
		if o.SinglePage {
			err = m.MirrorSinglePage(o.ID, target)
		} else {
			err = m.DownloadPresentation(o.ID, target)
		}
		if err != nil {
			logger.Printf("download error: %v", err)
			return 1
		}
	}

	n, err := index.Build(o.Out)
	if err != nil {
		logger.Printf("index error: %v", err)
		return 1
	}
	logger.Printf("Index: %d presentations in %s", n, filepath.Join(o.Out, "index.html"))
	return 0
}

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(0)
	os.Exit(run(os.Args[1:], log.Default(), os.Stderr))
}

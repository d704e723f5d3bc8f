// Пакет config - конфигурация зеркалирования: хост-источник, дополнительные ресурсы и правки бандлов.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultHost - хост HedgeDoc, с которого зеркалируются презентации
const DefaultHost = "https://pad.gwdg.de"

// DefaultMaxDepth - ограничение глубины обхода ресурсов по умолчанию
const DefaultMaxDepth = 8

//go:embed assets.yaml
var defaultAssets []byte

// Patch - замена строки внутри файла с точно совпадающим именем
type Patch struct {
	File    string `yaml:"file"`
	Find    string `yaml:"find"`
	Replace string `yaml:"replace"`
}

// Assets - содержимое YAML-файла со списком ресурсов и правок
type Assets struct {
	Paths   []string `yaml:"assets"`
	Patches []Patch  `yaml:"patches"`
}

// Config - конфигурация одного запуска
type Config struct {
	Host           string
	Assets         []string
	Patches        []Patch
	Timeout        time.Duration
	MaxDepth       int
	WholeFilePatch bool
}

// Default - конфигурация со встроенным списком ресурсов
func Default() Config {
	a, err := parseAssets(defaultAssets)
	if err != nil {
		// встроенный файл проверяется тестами
		panic(err)
	}
	return Config{
		Host:     DefaultHost,
		Assets:   a.Paths,
		Patches:  a.Patches,
		MaxDepth: DefaultMaxDepth,
	}
}

// LoadAssets - читает YAML со списком ресурсов; пустой путь возвращает встроенный список
func LoadAssets(path string) (Assets, error) {
	if path == "" {
		return parseAssets(defaultAssets)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Assets{}, fmt.Errorf("read assets: %w", err)
	}
	a, err := parseAssets(data)
	if err != nil {
		return Assets{}, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

func parseAssets(data []byte) (Assets, error) {
	var a Assets
	if err := yaml.Unmarshal(data, &a); err != nil {
		return Assets{}, fmt.Errorf("parse assets: %w", err)
	}
	for i, p := range a.Patches {
		if p.File == "" || p.Find == "" {
			return Assets{}, fmt.Errorf("patch %d: file and find are required", i)
		}
	}
	return a, nil
}

// Validate - проверяет и нормализует конфигурацию
func (c *Config) Validate() error {
	host, err := NormalizeHost(c.Host)
	if err != nil {
		return err
	}
	c.Host = host
	if c.MaxDepth < 0 {
		c.MaxDepth = 0
	}
	if c.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	return nil
}

// NormalizeHost - проверяет, что хост абсолютный http(s) URL, и убирает завершающий слэш
func NormalizeHost(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid host %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid host %q: need absolute http(s) url", raw)
	}
	return strings.TrimRight(raw, "/"), nil
}

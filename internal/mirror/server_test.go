package mirror

import (
	"bytes"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// resource - ответ тестового сервера
type resource struct {
	contentType string
	body        string
}

// testSite - httptest-сервер, подставляющий свой адрес вместо {{host}} и считающий запросы
type testSite struct {
	srv   *httptest.Server
	mu    sync.Mutex
	pages map[string]resource
	hits  map[string]int
}

func newTestSite(t *testing.T, pages map[string]resource) *testSite {
	t.Helper()
	s := &testSite{pages: pages, hits: make(map[string]int)}
	s.srv = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *testSite) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	res, ok := s.pages[r.URL.Path]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", res.contentType)
	io.WriteString(w, strings.ReplaceAll(res.body, "{{host}}", s.srv.URL))
}

func (s *testSite) URL() string { return s.srv.URL }

func (s *testSite) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *testSite) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.hits {
		n += c
	}
	return n
}

// testLogger - логгер в буфер без префиксов
func testLogger() (*log.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return log.New(&buf, "", 0), &buf
}

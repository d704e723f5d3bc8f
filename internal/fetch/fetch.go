// Пакет fetch - обёртка над HTTP GET для скачивания страниц и ресурсов.
package fetch

import (
	"net/http"
	"strconv"
	"time"
)

// UserAgent - заголовок User-Agent для всех запросов
const UserAgent = "HedgeMirror/1.0"

// Client - HTTP-клиент, считающий ошибкой любой ответ вне 2xx
type Client struct {
	http *http.Client
}

// New - создаёт клиент; timeout == 0 оставляет поведение клиента по умолчанию
func New(timeout time.Duration) *Client {
	return &Client{http: &http.Client{Timeout: timeout}}
}

// Get - выполняет GET-запрос. Тело ответа не читается: вызывающий читает его потоком и закрывает.
func (c *Client) Get(u string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, URL: u}
	}
	return resp, nil
}

// StatusError - ошибка HTTP кода
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return "http status " + strconv.Itoa(e.Code) + " for " + e.URL
}

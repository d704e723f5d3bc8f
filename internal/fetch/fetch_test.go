package fetch

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGet проверяет успешный запрос и заголовки
func TestGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/css")
		io.WriteString(w, "body{}")
	}))
	defer srv.Close()

	resp, err := New(0).Get(srv.URL + "/build/a.css")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/css", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "body{}", string(body))
}

// TestGetStatus проверяет, что ответы вне 2xx превращаются в StatusError
func TestGetStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := New(0).Get(srv.URL + "/missing.js")
	require.Error(t, err)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Contains(t, err.Error(), "http status 404")
}

// TestGetInvalidURL проверяет ошибку для некорректного URL
func TestGetInvalidURL(t *testing.T) {
	_, err := New(0).Get("://bad")
	assert.Error(t, err)
}

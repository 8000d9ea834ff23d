package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aoideee/library-api/internal/data"
	"github.com/aoideee/library-api/internal/ratelimit"
	"github.com/aoideee/library-api/internal/validator"
)

var fixedNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func newTestApp(t *testing.T) (*applicationDependencies, *fakeStores) {
	t.Helper()

	now := func() time.Time { return fixedNow }
	stores := newFakeStores(now)

	app := &applicationDependencies{
		config:  serverConfig{environment: "testing"},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		models:  stores.models(),
		limiter: ratelimit.NewStore(100, 100),
		now:     now,
	}
	return app, stores
}

// send runs one request through the full router and middleware chain.
func send(t *testing.T, app *applicationDependencies, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	app.routes().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type errorBody struct {
	Error string `json:"error"`
}

type validationBody struct {
	Error map[string]string `json:"error"`
}

func seedAuthor(t *testing.T, stores *fakeStores, name string) *data.Author {
	t.Helper()
	a, err := stores.authors.Create(context.Background(), data.AuthorInput{Name: name, Nationality: "Brasileira"})
	require.NoError(t, err)
	return a
}

func seedPublisher(t *testing.T, stores *fakeStores, name string) *data.Publisher {
	t.Helper()
	p, err := stores.publishers.Create(context.Background(), data.PublisherInput{Name: name, Address: "Rua do Ouvidor, 1"})
	require.NoError(t, err)
	return p
}

func seedBook(t *testing.T, stores *fakeStores, title, isbn string, year int, authorID, publisherID int64) *data.Book {
	t.Helper()
	b, err := stores.books.Create(context.Background(), data.BookInput{
		Title:           title,
		ISBN:            isbn,
		PublicationYear: year,
		Genre:           "Romance",
		Pages:           200,
		AuthorID:        authorID,
		PublisherID:     publisherID,
	})
	require.NoError(t, err)
	return b
}

func seedUser(t *testing.T, stores *fakeStores, email, cpf string) *data.User {
	t.Helper()
	u, err := stores.users.Create(context.Background(), data.UserInput{
		Name:    "Leitora",
		Email:   email,
		Address: "Rua A, 10",
		CPF:     cpf,
	})
	require.NoError(t, err)
	return u
}

func TestReadJSON(t *testing.T) {
	app, _ := newTestApp(t)

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "valid", body: `{"nome": "Ana"}`},
		{name: "trailing newline", body: "{\"nome\": \"Ana\"}\n"},
		{name: "empty", body: "", wantErr: "body must not be empty"},
		{name: "unknown field", body: `{"nome": "Ana", "idade": 3}`, wantErr: "badly-formed"},
		{name: "trailing whitespace", body: "{\"nome\": \"Ana\"}\r\n\t  "},
		{name: "two values", body: `{"nome": "Ana"}{"nome": "Bia"}`, wantErr: "single JSON value"},
		{name: "stray brace", body: `{"nome": "Ana"}}`, wantErr: "single JSON value"},
		{name: "stray bracket", body: `{"nome": "Ana"}]`, wantErr: "single JSON value"},
		{name: "trailing garbage", body: `{"nome": "Ana"} x`, wantErr: "single JSON value"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			var dst struct {
				Name string `json:"nome"`
			}

			err := app.readJSON(httptest.NewRecorder(), req, &dst)
			if tc.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "Ana", dst.Name)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestWriteJSON(t *testing.T) {
	app, _ := newTestApp(t)
	rec := httptest.NewRecorder()

	headers := make(http.Header)
	headers.Set("Location", "/autores/7")
	err := app.writeJSON(rec, http.StatusCreated, envelope{"status": "healthy", "ids": []int{1, 2}}, headers)

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "/autores/7", rec.Header().Get("Location"))
	assert.Contains(t, rec.Body.String(), "\n  \"status\": \"healthy\"")
	assert.True(t, strings.HasSuffix(rec.Body.String(), "}\n"))

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, []any{float64(1), float64(2)}, body["ids"])
}

func TestReadFilters(t *testing.T) {
	app, _ := newTestApp(t)

	v := validator.New()
	f := app.readFilters(map[string][]string{}, v)
	assert.True(t, v.Valid())
	assert.Equal(t, data.Filters{Skip: 0, Limit: data.DefaultLimit}, f)

	v = validator.New()
	app.readFilters(map[string][]string{"skip": {"-1"}, "limit": {"abc"}}, v)
	assert.Contains(t, v.Errors, "skip")
	assert.Equal(t, "deve ser um número inteiro", v.Errors["limit"])

	v = validator.New()
	app.readFilters(map[string][]string{"limit": {"1001"}}, v)
	assert.Contains(t, v.Errors, "limit")
}

func TestLocation(t *testing.T) {
	assert.Equal(t, "/livros/7", location("/livros/", 7).Get("Location"))
}

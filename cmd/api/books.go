// cmd/api/books.go
// This file contains the HTTP handlers for the /livros resource.
package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/aoideee/library-api/internal/data"
	"github.com/aoideee/library-api/internal/validator"
)

const (
	bookNotFound  = "Livro não encontrado"
	duplicateISBN = "ISBN já cadastrado"
)

// createBookHandler handles POST /livros/.
// The author and the publisher must exist and the ISBN must not be in use.
func (app *applicationDependencies) createBookHandler(w http.ResponseWriter, r *http.Request) {
	var input data.BookInput
	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	book := input.Build()
	v := validator.New()
	if data.ValidateBook(v, &book, app.now()); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	if !app.checkBookReferences(w, r, &input.AuthorID, &input.PublisherID) {
		return
	}

	taken, err := app.isbnTaken(r.Context(), input.ISBN, 0)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
	if taken {
		app.conflictResponse(w, r, duplicateISBN)
		return
	}

	created, err := app.models.Books.Create(r.Context(), input)
	if err != nil {
		app.storeErrorResponse(w, r, err, bookNotFound)
		return
	}

	err = app.writeJSON(w, http.StatusCreated, created, location("/livros/", created.ID))
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listBooksHandler handles GET /livros/.
// The first filter present wins: titulo, genero, autor_id, then the
// publication year range ano_inicio..ano_fim. ano_fim defaults to ano_inicio.
func (app *applicationDependencies) listBooksHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	v := validator.New()

	filters := app.readFilters(qs, v)
	title := app.readString(qs, "titulo", "")
	genre := app.readString(qs, "genero", "")
	authorID := app.readOptionalInt(qs, "autor_id", v)
	fromYear := app.readOptionalInt(qs, "ano_inicio", v)
	toYear := app.readOptionalInt(qs, "ano_fim", v)

	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	var (
		books []*data.Book
		err   error
	)
	switch {
	case title != "":
		books, err = app.models.Books.GetByTitle(r.Context(), title)
	case genre != "":
		books, err = app.models.Books.GetByGenre(r.Context(), genre)
	case authorID != nil && *authorID != 0:
		books, err = app.models.Books.GetByAuthor(r.Context(), int64(*authorID))
	case fromYear != nil && *fromYear != 0:
		books, err = app.models.Books.GetByYearRange(r.Context(), *fromYear, toYear)
	default:
		books, err = app.models.Books.List(r.Context(), filters)
	}
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, books, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// countBooksHandler handles GET /livros/count.
func (app *applicationDependencies) countBooksHandler(w http.ResponseWriter, r *http.Request) {
	n, err := app.models.Books.Count(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"quantidade": n}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showBookHandler handles GET /livros/:id.
func (app *applicationDependencies) showBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	book, err := app.models.Books.Get(r.Context(), id)
	if err != nil {
		app.storeErrorResponse(w, r, err, bookNotFound)
		return
	}

	err = app.writeJSON(w, http.StatusOK, book, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// updateBookHandler handles PUT /livros/:id.
// A new author or publisher must exist; a new ISBN must not be in use.
func (app *applicationDependencies) updateBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input data.BookUpdate
	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	book, err := app.models.Books.Get(r.Context(), id)
	if err != nil {
		app.storeErrorResponse(w, r, err, bookNotFound)
		return
	}

	merged := *book
	input.Apply(&merged)
	v := validator.New()
	if data.ValidateBook(v, &merged, app.now()); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	if !app.checkBookReferences(w, r, input.AuthorID, input.PublisherID) {
		return
	}

	if input.ISBN != nil && *input.ISBN != book.ISBN {
		taken, err := app.isbnTaken(r.Context(), *input.ISBN, book.ID)
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}
		if taken {
			app.conflictResponse(w, r, duplicateISBN)
			return
		}
	}

	updated, err := app.models.Books.Update(r.Context(), book, input)
	if err != nil {
		app.storeErrorResponse(w, r, err, bookNotFound)
		return
	}

	err = app.writeJSON(w, http.StatusOK, updated, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deleteBookHandler handles DELETE /livros/:id.
func (app *applicationDependencies) deleteBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	_, err = app.models.Books.Remove(r.Context(), id)
	if err != nil {
		app.storeErrorResponse(w, r, err, bookNotFound)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"message": "Livro deletado com sucesso"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// checkBookReferences looks up the supplied author and publisher. A nil id
// is skipped. When a reference is missing the response is written and false
// is returned.
func (app *applicationDependencies) checkBookReferences(w http.ResponseWriter, r *http.Request, authorID, publisherID *int64) bool {
	if authorID != nil {
		if _, err := app.models.Authors.Get(r.Context(), *authorID); err != nil {
			app.storeErrorResponse(w, r, err, authorNotFound)
			return false
		}
	}

	if publisherID != nil {
		if _, err := app.models.Publishers.Get(r.Context(), *publisherID); err != nil {
			app.storeErrorResponse(w, r, err, publisherNotFound)
			return false
		}
	}

	return true
}

// isbnTaken reports whether another book than self already uses isbn.
func (app *applicationDependencies) isbnTaken(ctx context.Context, isbn string, self int64) (bool, error) {
	existing, err := app.models.Books.GetByISBN(ctx, isbn)
	switch {
	case errors.Is(err, data.ErrRecordNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	return existing.ID != self, nil
}

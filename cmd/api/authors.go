// cmd/api/authors.go
// This file contains the HTTP handlers for the /autores resource.
// Each handler is a method on *applicationDependencies so it has access
// to the logger and the stores.
package main

import (
	"net/http"

	"github.com/aoideee/library-api/internal/data"
	"github.com/aoideee/library-api/internal/validator"
)

const authorNotFound = "Autor não encontrado"

// createAuthorHandler handles POST /autores/.
// It validates the payload, inserts the author and responds 201 with the
// stored row, including its generated id and creation date.
func (app *applicationDependencies) createAuthorHandler(w http.ResponseWriter, r *http.Request) {
	var input data.AuthorInput
	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	author := input.Build()
	v := validator.New()
	if data.ValidateAuthor(v, &author); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	created, err := app.models.Authors.Create(r.Context(), input)
	if err != nil {
		app.storeErrorResponse(w, r, err, authorNotFound)
		return
	}

	err = app.writeJSON(w, http.StatusCreated, created, location("/autores/", created.ID))
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listAuthorsHandler handles GET /autores/.
// The first filter present wins: nome (substring), then nacionalidade.
// Without filters one page of authors is returned.
func (app *applicationDependencies) listAuthorsHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	v := validator.New()

	filters := app.readFilters(qs, v)
	name := app.readString(qs, "nome", "")
	nationality := app.readString(qs, "nacionalidade", "")

	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	var (
		authors []*data.Author
		err     error
	)
	switch {
	case name != "":
		authors, err = app.models.Authors.GetByName(r.Context(), name)
	case nationality != "":
		authors, err = app.models.Authors.GetByNationality(r.Context(), nationality)
	default:
		authors, err = app.models.Authors.List(r.Context(), filters)
	}
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, authors, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// countAuthorsHandler handles GET /autores/count.
func (app *applicationDependencies) countAuthorsHandler(w http.ResponseWriter, r *http.Request) {
	n, err := app.models.Authors.Count(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"quantidade": n}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showAuthorHandler handles GET /autores/:id.
func (app *applicationDependencies) showAuthorHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	author, err := app.models.Authors.Get(r.Context(), id)
	if err != nil {
		app.storeErrorResponse(w, r, err, authorNotFound)
		return
	}

	err = app.writeJSON(w, http.StatusOK, author, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// updateAuthorHandler handles PUT /autores/:id.
// Only the fields present in the body are changed; the merged author is
// validated before anything is written.
func (app *applicationDependencies) updateAuthorHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input data.AuthorUpdate
	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	author, err := app.models.Authors.Get(r.Context(), id)
	if err != nil {
		app.storeErrorResponse(w, r, err, authorNotFound)
		return
	}

	merged := *author
	input.Apply(&merged)
	v := validator.New()
	if data.ValidateAuthor(v, &merged); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	updated, err := app.models.Authors.Update(r.Context(), author, input)
	if err != nil {
		app.storeErrorResponse(w, r, err, authorNotFound)
		return
	}

	err = app.writeJSON(w, http.StatusOK, updated, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deleteAuthorHandler handles DELETE /autores/:id.
// An author that still has books cannot be removed.
func (app *applicationDependencies) deleteAuthorHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	_, err = app.models.Authors.Remove(r.Context(), id)
	if err != nil {
		app.storeErrorResponse(w, r, err, authorNotFound)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"message": "Autor deletado com sucesso"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

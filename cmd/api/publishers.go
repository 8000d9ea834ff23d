// cmd/api/publishers.go
// This file contains the HTTP handlers for the /editoras resource.
package main

import (
	"net/http"

	"github.com/aoideee/library-api/internal/data"
	"github.com/aoideee/library-api/internal/validator"
)

const publisherNotFound = "Editora não encontrada"

// createPublisherHandler handles POST /editoras/.
func (app *applicationDependencies) createPublisherHandler(w http.ResponseWriter, r *http.Request) {
	var input data.PublisherInput
	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	publisher := input.Build()
	v := validator.New()
	if data.ValidatePublisher(v, &publisher); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	created, err := app.models.Publishers.Create(r.Context(), input)
	if err != nil {
		app.storeErrorResponse(w, r, err, publisherNotFound)
		return
	}

	err = app.writeJSON(w, http.StatusCreated, created, location("/editoras/", created.ID))
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listPublishersHandler handles GET /editoras/, optionally filtered by nome.
func (app *applicationDependencies) listPublishersHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	v := validator.New()

	filters := app.readFilters(qs, v)
	name := app.readString(qs, "nome", "")

	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	var (
		publishers []*data.Publisher
		err        error
	)
	if name != "" {
		publishers, err = app.models.Publishers.GetByName(r.Context(), name)
	} else {
		publishers, err = app.models.Publishers.List(r.Context(), filters)
	}
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, publishers, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// countPublishersHandler handles GET /editoras/count.
func (app *applicationDependencies) countPublishersHandler(w http.ResponseWriter, r *http.Request) {
	n, err := app.models.Publishers.Count(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"quantidade": n}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showPublisherHandler handles GET /editoras/:id.
func (app *applicationDependencies) showPublisherHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	publisher, err := app.models.Publishers.Get(r.Context(), id)
	if err != nil {
		app.storeErrorResponse(w, r, err, publisherNotFound)
		return
	}

	err = app.writeJSON(w, http.StatusOK, publisher, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// updatePublisherHandler handles PUT /editoras/:id.
func (app *applicationDependencies) updatePublisherHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input data.PublisherUpdate
	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	publisher, err := app.models.Publishers.Get(r.Context(), id)
	if err != nil {
		app.storeErrorResponse(w, r, err, publisherNotFound)
		return
	}

	merged := *publisher
	input.Apply(&merged)
	v := validator.New()
	if data.ValidatePublisher(v, &merged); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	updated, err := app.models.Publishers.Update(r.Context(), publisher, input)
	if err != nil {
		app.storeErrorResponse(w, r, err, publisherNotFound)
		return
	}

	err = app.writeJSON(w, http.StatusOK, updated, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deletePublisherHandler handles DELETE /editoras/:id.
func (app *applicationDependencies) deletePublisherHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	_, err = app.models.Publishers.Remove(r.Context(), id)
	if err != nil {
		app.storeErrorResponse(w, r, err, publisherNotFound)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"message": "Editora deletada com sucesso"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

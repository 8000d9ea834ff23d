// cmd/api/errors.go
// This file contains all error-response helpers for the application.
// Keeping error helpers in a dedicated file makes them easy to find and extend.
package main

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aoideee/library-api/internal/data"
)

// logError logs an internal error at ERROR level with the request method,
// URL and request id for context.
func (app *applicationDependencies) logError(r *http.Request, err error) {
	app.logger.Error(err.Error(),
		slog.String("request_method", r.Method),
		slog.String("request_url", r.URL.String()),
		slog.String("request_id", requestIDFrom(r.Context())),
	)
}

// errorResponse sends a JSON error envelope with the given status code and message.
// It is the low-level building block used by all the specific error helpers below.
func (app *applicationDependencies) errorResponse(w http.ResponseWriter, r *http.Request, status int, message any) {
	err := app.writeJSON(w, status, envelope{"error": message}, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// serverErrorResponse logs a 500-level error and sends a generic message to the client.
// Internal error details are never exposed.
func (app *applicationDependencies) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)
	app.errorResponse(w, r, http.StatusInternalServerError, "Erro interno do servidor")
}

// notFoundResponse sends a 404 Not Found error for unknown routes.
func (app *applicationDependencies) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusNotFound, "o recurso solicitado não foi encontrado")
}

// recordNotFoundResponse sends a 404 naming the entity that is missing.
func (app *applicationDependencies) recordNotFoundResponse(w http.ResponseWriter, r *http.Request, message string) {
	app.errorResponse(w, r, http.StatusNotFound, message)
}

// methodNotAllowedResponse sends a 405 Method Not Allowed error.
func (app *applicationDependencies) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	message := "o método " + r.Method + " não é suportado por este recurso"
	app.errorResponse(w, r, http.StatusMethodNotAllowed, message)
}

// badRequestResponse sends a 400 Bad Request error with the error message from the caller.
func (app *applicationDependencies) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

// conflictResponse rejects a request that breaks a business rule, such as a
// duplicate email or returning a loan twice.
func (app *applicationDependencies) conflictResponse(w http.ResponseWriter, r *http.Request, message string) {
	app.errorResponse(w, r, http.StatusBadRequest, message)
}

// failedValidationResponse sends a 422 Unprocessable Entity response containing
// the field-level validation errors collected by a Validator.
func (app *applicationDependencies) failedValidationResponse(w http.ResponseWriter, r *http.Request, errors map[string]string) {
	app.errorResponse(w, r, http.StatusUnprocessableEntity, errors)
}

// rateLimitExceededResponse sends a 429 Too Many Requests error.
func (app *applicationDependencies) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusTooManyRequests, "limite de requisições excedido")
}

// storeErrorResponse maps an error returned by a store onto a response.
// notFound is the message used when the record does not exist.
func (app *applicationDependencies) storeErrorResponse(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	switch {
	case errors.Is(err, data.ErrRecordNotFound):
		app.recordNotFoundResponse(w, r, notFound)
	case errors.Is(err, data.ErrDuplicateRecord):
		app.conflictResponse(w, r, "registro duplicado")
	case errors.Is(err, data.ErrReferencedRecord):
		app.conflictResponse(w, r, "registro referenciado por outro registro")
	case errors.Is(err, data.ErrNoBooks):
		app.conflictResponse(w, r, "o empréstimo deve conter pelo menos um livro")
	default:
		app.serverErrorResponse(w, r, err)
	}
}

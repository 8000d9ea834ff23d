// cmd/api/routes.go
package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// routes registers all HTTP endpoints and returns the configured router
// wrapped in the middleware chain.
//
// Middleware chain (outermost → innermost):
//
//	recoverPanic → requestID → logRequest → enableCORS → rateLimit → router
//
// Every resource exposes the same shape:
//
//	POST   /{resource}/        – create
//	GET    /{resource}/        – list (paginated, optional filters)
//	GET    /{resource}/count   – {"quantidade": n}
//	GET    /{resource}/:id     – retrieve one
//	PUT    /{resource}/:id     – partial update
//	DELETE /{resource}/:id     – delete
//
// plus GET /usuarios/email/:email, GET /emprestimos/:id/livros and
// PUT /emprestimos/:id/devolver.
func (app *applicationDependencies) routes() http.Handler {
	router := httprouter.New()

	// Override the default httprouter error handlers to return JSON responses.
	router.NotFound = http.HandlerFunc(app.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedResponse)

	router.HandlerFunc(http.MethodGet, "/", app.rootHandler)
	router.HandlerFunc(http.MethodGet, "/health", app.healthcheckHandler)

	router.HandlerFunc(http.MethodPost, "/autores/", app.createAuthorHandler)
	router.HandlerFunc(http.MethodGet, "/autores/", app.listAuthorsHandler)
	router.HandlerFunc(http.MethodGet, "/autores/:id", app.countOr(app.countAuthorsHandler, app.showAuthorHandler))
	router.HandlerFunc(http.MethodPut, "/autores/:id", app.updateAuthorHandler)
	router.HandlerFunc(http.MethodDelete, "/autores/:id", app.deleteAuthorHandler)

	router.HandlerFunc(http.MethodPost, "/editoras/", app.createPublisherHandler)
	router.HandlerFunc(http.MethodGet, "/editoras/", app.listPublishersHandler)
	router.HandlerFunc(http.MethodGet, "/editoras/:id", app.countOr(app.countPublishersHandler, app.showPublisherHandler))
	router.HandlerFunc(http.MethodPut, "/editoras/:id", app.updatePublisherHandler)
	router.HandlerFunc(http.MethodDelete, "/editoras/:id", app.deletePublisherHandler)

	router.HandlerFunc(http.MethodPost, "/livros/", app.createBookHandler)
	router.HandlerFunc(http.MethodGet, "/livros/", app.listBooksHandler)
	router.HandlerFunc(http.MethodGet, "/livros/:id", app.countOr(app.countBooksHandler, app.showBookHandler))
	router.HandlerFunc(http.MethodPut, "/livros/:id", app.updateBookHandler)
	router.HandlerFunc(http.MethodDelete, "/livros/:id", app.deleteBookHandler)

	router.HandlerFunc(http.MethodPost, "/usuarios/", app.createUserHandler)
	router.HandlerFunc(http.MethodGet, "/usuarios/", app.listUsersHandler)
	router.HandlerFunc(http.MethodGet, "/usuarios/:id", app.countOr(app.countUsersHandler, app.showUserHandler))
	// httprouter cannot hold a static "email" segment next to ":id".
	router.HandlerFunc(http.MethodGet, "/usuarios/:id/:email", app.showUserByEmailHandler)
	router.HandlerFunc(http.MethodPut, "/usuarios/:id", app.updateUserHandler)
	router.HandlerFunc(http.MethodDelete, "/usuarios/:id", app.deleteUserHandler)

	router.HandlerFunc(http.MethodPost, "/emprestimos/", app.createLoanHandler)
	router.HandlerFunc(http.MethodGet, "/emprestimos/", app.listLoansHandler)
	router.HandlerFunc(http.MethodGet, "/emprestimos/:id", app.countOr(app.countLoansHandler, app.showLoanHandler))
	router.HandlerFunc(http.MethodGet, "/emprestimos/:id/livros", app.showLoanBooksHandler)
	router.HandlerFunc(http.MethodPut, "/emprestimos/:id", app.updateLoanHandler)
	router.HandlerFunc(http.MethodPut, "/emprestimos/:id/devolver", app.returnLoanHandler)
	router.HandlerFunc(http.MethodDelete, "/emprestimos/:id", app.deleteLoanHandler)

	return app.recoverPanic(app.requestID(app.logRequest(app.enableCORS(app.rateLimit(router)))))
}

// countOr serves /{resource}/count with count and every other
// /{resource}/:id with show.
func (app *applicationDependencies) countOr(count, show http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if httprouter.ParamsFromContext(r.Context()).ByName("id") == "count" {
			count(w, r)
			return
		}
		show(w, r)
	}
}

// cmd/api/loans.go
// This file contains the HTTP handlers for the /emprestimos resource,
// including the return operation and the loan/book views.
package main

import (
	"fmt"
	"net/http"

	"github.com/aoideee/library-api/internal/data"
	"github.com/aoideee/library-api/internal/validator"
)

const loanNotFound = "Empréstimo não encontrado"

// createLoanHandler handles POST /emprestimos/.
// The user and every listed book must exist. The loan and its book links
// are written in one transaction.
func (app *applicationDependencies) createLoanHandler(w http.ResponseWriter, r *http.Request) {
	var input data.LoanInput
	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	if data.ValidateLoanInput(v, input); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	_, err = app.models.Users.Get(r.Context(), input.UserID)
	if err != nil {
		app.storeErrorResponse(w, r, err, userNotFound)
		return
	}

	for _, bookID := range input.BookIDs {
		_, err = app.models.Books.Get(r.Context(), bookID)
		if err != nil {
			app.storeErrorResponse(w, r, err, fmt.Sprintf("Livro %d não encontrado", bookID))
			return
		}
	}

	loan, err := app.models.Loans.CreateWithBooks(r.Context(), input)
	if err != nil {
		app.storeErrorResponse(w, r, err, loanNotFound)
		return
	}

	err = app.writeJSON(w, http.StatusCreated, loan, location("/emprestimos/", loan.ID))
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listLoansHandler handles GET /emprestimos/.
// The first filter present wins: atrasados, usuario_id, then status.
// Without filters one page of loans is returned, with their books when
// incluir_livros=true.
func (app *applicationDependencies) listLoansHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	v := validator.New()

	filters := app.readFilters(qs, v)
	overdue := app.readBool(qs, "atrasados", v)
	userID := app.readOptionalInt(qs, "usuario_id", v)
	status := data.LoanStatus(app.readString(qs, "status", ""))
	withBooks := app.readBool(qs, "incluir_livros", v)

	if status != "" {
		v.Check(status.Valid(), "status", "deve ser ativo, devolvido ou atrasado")
	}

	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	var (
		loans any
		err   error
	)
	switch {
	case overdue:
		loans, err = app.models.Loans.GetOverdue(r.Context())
	case userID != nil && *userID != 0:
		loans, err = app.models.Loans.GetByUser(r.Context(), int64(*userID))
	case status != "":
		loans, err = app.models.Loans.GetByStatus(r.Context(), status)
	case withBooks:
		loans, err = app.models.Loans.ListWithBooks(r.Context(), filters)
	default:
		loans, err = app.models.Loans.List(r.Context(), filters)
	}
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, loans, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// countLoansHandler handles GET /emprestimos/count.
func (app *applicationDependencies) countLoansHandler(w http.ResponseWriter, r *http.Request) {
	n, err := app.models.Loans.Count(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"quantidade": n}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showLoanHandler handles GET /emprestimos/:id.
func (app *applicationDependencies) showLoanHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	loan, err := app.models.Loans.Get(r.Context(), id)
	if err != nil {
		app.storeErrorResponse(w, r, err, loanNotFound)
		return
	}

	err = app.writeJSON(w, http.StatusOK, loan, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showLoanBooksHandler handles GET /emprestimos/:id/livros.
func (app *applicationDependencies) showLoanBooksHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	loan, err := app.models.Loans.GetWithBooks(r.Context(), id)
	if err != nil {
		app.storeErrorResponse(w, r, err, loanNotFound)
		return
	}

	err = app.writeJSON(w, http.StatusOK, loan, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// updateLoanHandler handles PUT /emprestimos/:id.
// Moving a loan to devolvido without a return date stamps the current time.
// Moving it to any other status clears the return date.
func (app *applicationDependencies) updateLoanHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input data.LoanUpdate
	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	loan, err := app.models.Loans.Get(r.Context(), id)
	if err != nil {
		app.storeErrorResponse(w, r, err, loanNotFound)
		return
	}

	if input.Status != nil && *input.Status == data.LoanReturned && input.ReturnedAt == nil && loan.ReturnedAt == nil {
		now := app.now()
		input.ReturnedAt = &now
	}

	merged := *loan
	input.Apply(&merged)
	v := validator.New()
	if data.ValidateLoan(v, &merged); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	updated, err := app.models.Loans.Update(r.Context(), loan, input)
	if err != nil {
		app.storeErrorResponse(w, r, err, loanNotFound)
		return
	}

	err = app.writeJSON(w, http.StatusOK, updated, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// returnLoanHandler handles PUT /emprestimos/:id/devolver.
// A loan can only be returned once.
func (app *applicationDependencies) returnLoanHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	loan, err := app.models.Loans.Get(r.Context(), id)
	if err != nil {
		app.storeErrorResponse(w, r, err, loanNotFound)
		return
	}

	if loan.Status == data.LoanReturned {
		app.conflictResponse(w, r, "Empréstimo já foi devolvido")
		return
	}

	status := data.LoanReturned
	returnedAt := app.now()
	updated, err := app.models.Loans.Update(r.Context(), loan, data.LoanUpdate{
		Status:     &status,
		ReturnedAt: &returnedAt,
	})
	if err != nil {
		app.storeErrorResponse(w, r, err, loanNotFound)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{
		"message":    "Empréstimo devolvido com sucesso",
		"emprestimo": updated,
	}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deleteLoanHandler handles DELETE /emprestimos/:id. The book links of the
// loan are removed with it.
func (app *applicationDependencies) deleteLoanHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	_, err = app.models.Loans.Remove(r.Context(), id)
	if err != nil {
		app.storeErrorResponse(w, r, err, loanNotFound)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"message": "Empréstimo deletado com sucesso"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

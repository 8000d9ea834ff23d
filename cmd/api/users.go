// cmd/api/users.go
// This file contains the HTTP handlers for the /usuarios resource.
package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/aoideee/library-api/internal/data"
	"github.com/aoideee/library-api/internal/validator"
)

const (
	userNotFound   = "Usuário não encontrado"
	duplicateEmail = "Email já cadastrado"
	duplicateCPF   = "CPF já cadastrado"
)

// createUserHandler handles POST /usuarios/.
// Email and CPF must not belong to another user. New users start active.
func (app *applicationDependencies) createUserHandler(w http.ResponseWriter, r *http.Request) {
	var input data.UserInput
	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user := input.Build()
	v := validator.New()
	if data.ValidateUser(v, &user); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	if !app.checkUserUnique(w, r, &input.Email, &input.CPF, 0) {
		return
	}

	created, err := app.models.Users.Create(r.Context(), input)
	if err != nil {
		app.storeErrorResponse(w, r, err, userNotFound)
		return
	}

	err = app.writeJSON(w, http.StatusCreated, created, location("/usuarios/", created.ID))
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listUsersHandler handles GET /usuarios/.
// With apenas_ativos=true every active user is returned, unpaginated.
func (app *applicationDependencies) listUsersHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	v := validator.New()

	filters := app.readFilters(qs, v)
	onlyActive := app.readBool(qs, "apenas_ativos", v)

	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	var (
		users []*data.User
		err   error
	)
	if onlyActive {
		users, err = app.models.Users.GetActive(r.Context())
	} else {
		users, err = app.models.Users.List(r.Context(), filters)
	}
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, users, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// countUsersHandler handles GET /usuarios/count.
func (app *applicationDependencies) countUsersHandler(w http.ResponseWriter, r *http.Request) {
	n, err := app.models.Users.Count(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"quantidade": n}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showUserHandler handles GET /usuarios/:id.
func (app *applicationDependencies) showUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user, err := app.models.Users.Get(r.Context(), id)
	if err != nil {
		app.storeErrorResponse(w, r, err, userNotFound)
		return
	}

	err = app.writeJSON(w, http.StatusOK, user, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showUserByEmailHandler handles GET /usuarios/email/:email. Any other
// two-segment path under /usuarios/ is unknown.
func (app *applicationDependencies) showUserByEmailHandler(w http.ResponseWriter, r *http.Request) {
	params := httprouter.ParamsFromContext(r.Context())
	if params.ByName("id") != "email" {
		app.notFoundResponse(w, r)
		return
	}

	user, err := app.models.Users.GetByEmail(r.Context(), params.ByName("email"))
	if err != nil {
		app.storeErrorResponse(w, r, err, userNotFound)
		return
	}

	err = app.writeJSON(w, http.StatusOK, user, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// updateUserHandler handles PUT /usuarios/:id.
// A changed email or CPF must not belong to another user.
func (app *applicationDependencies) updateUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input data.UserUpdate
	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user, err := app.models.Users.Get(r.Context(), id)
	if err != nil {
		app.storeErrorResponse(w, r, err, userNotFound)
		return
	}

	merged := *user
	input.Apply(&merged)
	v := validator.New()
	if data.ValidateUser(v, &merged); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	email, cpf := input.Email, input.CPF
	if email != nil && *email == user.Email {
		email = nil
	}
	if cpf != nil && *cpf == user.CPF {
		cpf = nil
	}
	if !app.checkUserUnique(w, r, email, cpf, user.ID) {
		return
	}

	updated, err := app.models.Users.Update(r.Context(), user, input)
	if err != nil {
		app.storeErrorResponse(w, r, err, userNotFound)
		return
	}

	err = app.writeJSON(w, http.StatusOK, updated, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deleteUserHandler handles DELETE /usuarios/:id.
func (app *applicationDependencies) deleteUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	_, err = app.models.Users.Remove(r.Context(), id)
	if err != nil {
		app.storeErrorResponse(w, r, err, userNotFound)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"message": "Usuário deletado com sucesso"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// checkUserUnique rejects an email or CPF already held by a user other than
// self. Nil values are not checked. When a value is taken the response is
// written and false is returned.
func (app *applicationDependencies) checkUserUnique(w http.ResponseWriter, r *http.Request, email, cpf *string, self int64) bool {
	if email != nil {
		taken, err := userTaken(r.Context(), app.models.Users.GetByEmail, *email, self)
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return false
		}
		if taken {
			app.conflictResponse(w, r, duplicateEmail)
			return false
		}
	}

	if cpf != nil {
		taken, err := userTaken(r.Context(), app.models.Users.GetByCPF, *cpf, self)
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return false
		}
		if taken {
			app.conflictResponse(w, r, duplicateCPF)
			return false
		}
	}

	return true
}

func userTaken(ctx context.Context, lookup func(context.Context, string) (*data.User, error), value string, self int64) (bool, error) {
	existing, err := lookup(ctx, value)
	switch {
	case errors.Is(err, data.ErrRecordNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	return existing.ID != self, nil
}

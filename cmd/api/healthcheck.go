package main

import (
	"net/http"
	"time"
)

// healthcheckHandler reports that the service is up.
func (app *applicationDependencies) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	payload := envelope{
		"status":    "healthy",
		"timestamp": app.now().UTC().Format(time.RFC3339),
		"version":   appVersion,
	}

	if err := app.writeJSON(w, http.StatusOK, payload, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// rootHandler returns the service banner.
func (app *applicationDependencies) rootHandler(w http.ResponseWriter, r *http.Request) {
	payload := envelope{
		"message":     "API Biblioteca - Sistema de Gerenciamento",
		"version":     appVersion,
		"environment": app.config.environment,
	}

	if err := app.writeJSON(w, http.StatusOK, payload, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

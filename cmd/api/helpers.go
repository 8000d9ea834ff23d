// cmd/api/helpers.go
// This file contains general-purpose helper functions for the application.
// Error-response helpers live in errors.go; only non-error utilities are here.
package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/julienschmidt/httprouter"

	"github.com/aoideee/library-api/internal/data"
	"github.com/aoideee/library-api/internal/validator"
)

// json is a drop-in replacement for encoding/json.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// envelope wraps small ad-hoc response objects such as {"quantidade": 3}.
// Entities and lists are written as-is.
type envelope map[string]any

// readIDParam extracts and validates the ":id" URL parameter added by httprouter.
// Returns an error if the value is missing, non-numeric, or less than 1.
func (app *applicationDependencies) readIDParam(r *http.Request) (int64, error) {
	params := httprouter.ParamsFromContext(r.Context())
	id, err := strconv.ParseInt(params.ByName("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("invalid id parameter")
	}
	return id, nil
}

// readString reads a string query parameter from qs, returning defaultValue
// if the key is absent or empty.
func (app *applicationDependencies) readString(qs url.Values, key, defaultValue string) string {
	s := strings.TrimSpace(qs.Get(key))
	if s == "" {
		return defaultValue
	}
	return s
}

// readInt reads an integer query parameter from qs, returning defaultValue if
// the key is absent. A value that is not an integer is recorded in v.
func (app *applicationDependencies) readInt(qs url.Values, key string, defaultValue int, v *validator.Validator) int {
	s := qs.Get(key)
	if s == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		v.AddError(key, "deve ser um número inteiro")
		return defaultValue
	}
	return i
}

// readOptionalInt is readInt for filters whose absence must be observable.
func (app *applicationDependencies) readOptionalInt(qs url.Values, key string, v *validator.Validator) *int {
	if qs.Get(key) == "" {
		return nil
	}
	i := app.readInt(qs, key, 0, v)
	return &i
}

// readBool reads a boolean query parameter, recording unparsable values in v.
func (app *applicationDependencies) readBool(qs url.Values, key string, v *validator.Validator) bool {
	s := qs.Get(key)
	if s == "" {
		return false
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		v.AddError(key, "deve ser true ou false")
		return false
	}
	return b
}

// readFilters reads the skip/limit pagination window and validates it.
func (app *applicationDependencies) readFilters(qs url.Values, v *validator.Validator) data.Filters {
	f := data.Filters{
		Skip:  app.readInt(qs, "skip", 0, v),
		Limit: app.readInt(qs, "limit", data.DefaultLimit, v),
	}
	data.ValidateFilters(v, f)
	return f
}

// writeJSON marshals data to indented JSON, applies any custom headers,
// sets Content-Type to "application/json", writes the status code, and
// streams the body to the client.
func (app *applicationDependencies) writeJSON(w http.ResponseWriter, status int, payload any, headers http.Header) error {
	js, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)
	return nil
}

// readJSON decodes a single JSON value from the request body into dst.
// It enforces a 1 MB size limit, rejects unknown fields, and ensures the
// body contains exactly one JSON value (no trailing data).
func (app *applicationDependencies) readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("body must not be empty")
		}
		return fmt.Errorf("body contains badly-formed JSON: %w", err)
	}

	// Anything but whitespace after the first value is rejected, including
	// stray closing brackets.
	rest, err := io.ReadAll(io.MultiReader(dec.Buffered(), r.Body))
	if err != nil {
		return fmt.Errorf("body contains badly-formed JSON: %w", err)
	}
	if len(bytes.TrimSpace(rest)) > 0 {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

// location builds the Location header of a newly created resource.
func location(collection string, id int64) http.Header {
	headers := make(http.Header)
	headers.Set("Location", fmt.Sprintf("%s%d", collection, id))
	return headers
}

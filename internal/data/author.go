// Package data provides the data models and database interaction logic
// for the library management system.
package data

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/doug-martin/goqu/v9"

	"github.com/aoideee/library-api/internal/validator"
)

const (
	opReadByName        = "READ_BY_NAME"
	opReadByNationality = "READ_BY_NATIONALITY"

	colName        = "nome"
	colNationality = "nacionalidade"
)

// Author represents a single row of the "autor" table.
// An author owns zero or more books.
type Author struct {
	ID          int64      `json:"id"              db:"id"              goqu:"skipinsert,skipupdate"`
	Name        string     `json:"nome"            db:"nome"`
	Nationality string     `json:"nacionalidade"   db:"nacionalidade"`
	BirthDate   *time.Time `json:"data_nascimento" db:"data_nascimento"`
	Biography   *string    `json:"biografia"       db:"biografia"`
	Email       *string    `json:"email"           db:"email"`
	CreatedAt   time.Time  `json:"data_criacao"    db:"data_criacao"    goqu:"skipinsert,skipupdate"`
}

// Identity returns the database-assigned id.
func (a Author) Identity() int64 { return a.ID }

// AuthorInput holds the fields a client supplies when creating an author.
type AuthorInput struct {
	Name        string     `json:"nome"`
	Nationality string     `json:"nacionalidade"`
	BirthDate   *time.Time `json:"data_nascimento"`
	Biography   *string    `json:"biografia"`
	Email       *string    `json:"email"`
}

// Build maps the payload onto a new Author row.
func (in AuthorInput) Build() Author {
	return Author{
		Name:        in.Name,
		Nationality: in.Nationality,
		BirthDate:   in.BirthDate,
		Biography:   in.Biography,
		Email:       in.Email,
	}
}

// AuthorUpdate holds the fields a client may supply when partially updating
// an author. A nil field means "not provided, leave as-is".
type AuthorUpdate struct {
	Name        *string    `json:"nome"`
	Nationality *string    `json:"nacionalidade"`
	BirthDate   *time.Time `json:"data_nascimento"`
	Biography   *string    `json:"biografia"`
	Email       *string    `json:"email"`
}

// Apply copies the provided fields onto a.
func (in AuthorUpdate) Apply(a *Author) {
	if in.Name != nil {
		a.Name = *in.Name
	}
	if in.Nationality != nil {
		a.Nationality = *in.Nationality
	}
	if in.BirthDate != nil {
		a.BirthDate = in.BirthDate
	}
	if in.Biography != nil {
		a.Biography = in.Biography
	}
	if in.Email != nil {
		a.Email = in.Email
	}
}

// ValidateAuthor records every rule a stored author must satisfy.
func ValidateAuthor(v *validator.Validator, a *Author) {
	n := utf8.RuneCountInString(a.Name)
	v.Check(n >= 2, "nome", "deve ter pelo menos 2 caracteres")
	v.Check(n <= 100, "nome", "deve ter no máximo 100 caracteres")
	v.Check(utf8.RuneCountInString(a.Nationality) <= 50, "nacionalidade", "deve ter no máximo 50 caracteres")
	if a.Email != nil && *a.Email != "" {
		v.Check(validator.Matches(*a.Email, validator.EmailRX), "email", "deve ser um endereço de email válido")
	}
}

// AuthorModel is the repository for the "autor" table.
type AuthorModel struct {
	Repository[Author, AuthorInput, AuthorUpdate]
}

// GetByName returns the authors whose name contains name, ignoring case.
func (m AuthorModel) GetByName(ctx context.Context, name string) ([]*Author, error) {
	return m.selectWhere(ctx, opReadByName, goqu.C(colName).ILike(containing(name)))
}

// GetByNationality returns the authors with exactly the given nationality.
func (m AuthorModel) GetByNationality(ctx context.Context, nationality string) ([]*Author, error) {
	return m.selectWhere(ctx, opReadByNationality, goqu.C(colNationality).Eq(nationality))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containing wraps s into an ILIKE pattern matching any value that contains it
// literally. Backslash is the default LIKE escape character in Postgres.
func containing(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

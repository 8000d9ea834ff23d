// internal/data/models.go
package data

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/aoideee/library-api/internal/validator"
)

// Table names of the library schema. See schema.sql.
const (
	tableAuthors    = "autor"
	tablePublishers = "editora"
	tableBooks      = "livro"
	tableUsers      = "usuario"
	tableLoans      = "emprestimo"
	tableBookLoans  = "livro_emprestimo"
)

// Pagination bounds applied by the HTTP layer before a Filters value reaches
// a repository.
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

var (
	// ErrRecordNotFound is returned when a query finds no matching row.
	ErrRecordNotFound = errors.New("record not found")

	// ErrDuplicateRecord is returned when a write violates a unique constraint
	// (ISBN, user email or user CPF).
	ErrDuplicateRecord = errors.New("duplicate record")

	// ErrReferencedRecord is returned when a write violates a foreign key, either
	// because the referenced row is missing or because the row is still in use.
	ErrReferencedRecord = errors.New("record reference violated")

	// ErrNoBooks is returned when a loan is created without any book.
	ErrNoBooks = errors.New("a loan must reference at least one book")
)

// CRUD is the contract every single-table repository fulfils.
type CRUD[T any, C any, U any] interface {
	Create(ctx context.Context, input C) (*T, error)
	Get(ctx context.Context, id int64) (*T, error)
	List(ctx context.Context, filters Filters) ([]*T, error)
	Update(ctx context.Context, existing *T, input U) (*T, error)
	Remove(ctx context.Context, id int64) (*T, error)
	Count(ctx context.Context) (int, error)
}

// AuthorStore is the set of author operations the HTTP layer relies on.
type AuthorStore interface {
	CRUD[Author, AuthorInput, AuthorUpdate]
	GetByName(ctx context.Context, name string) ([]*Author, error)
	GetByNationality(ctx context.Context, nationality string) ([]*Author, error)
}

// PublisherStore is the set of publisher operations the HTTP layer relies on.
type PublisherStore interface {
	CRUD[Publisher, PublisherInput, PublisherUpdate]
	GetByName(ctx context.Context, name string) ([]*Publisher, error)
}

// BookStore is the set of book operations the HTTP layer relies on.
type BookStore interface {
	CRUD[Book, BookInput, BookUpdate]
	GetByTitle(ctx context.Context, title string) ([]*Book, error)
	GetByGenre(ctx context.Context, genre string) ([]*Book, error)
	GetByYearRange(ctx context.Context, from int, to *int) ([]*Book, error)
	GetByAuthor(ctx context.Context, authorID int64) ([]*Book, error)
	GetByISBN(ctx context.Context, isbn string) (*Book, error)
}

// UserStore is the set of user operations the HTTP layer relies on.
type UserStore interface {
	CRUD[User, UserInput, UserUpdate]
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByCPF(ctx context.Context, cpf string) (*User, error)
	GetActive(ctx context.Context) ([]*User, error)
}

// LoanStore is the set of loan operations the HTTP layer relies on.
type LoanStore interface {
	CRUD[Loan, LoanInput, LoanUpdate]
	CreateWithBooks(ctx context.Context, input LoanInput) (*Loan, error)
	GetByUser(ctx context.Context, userID int64) ([]*Loan, error)
	GetByStatus(ctx context.Context, status LoanStatus) ([]*Loan, error)
	GetOverdue(ctx context.Context) ([]*Loan, error)
	GetWithBooks(ctx context.Context, id int64) (*LoanWithBooks, error)
	ListWithBooks(ctx context.Context, filters Filters) ([]*LoanWithBooks, error)
}

// Models is a top-level container that groups all repositories together.
// It is passed around the application via applicationDependencies so every
// handler has access to the database without importing sql directly.
type Models struct {
	Authors    AuthorStore
	Publishers PublisherStore
	Books      BookStore
	Users      UserStore
	Loans      LoanStore
}

// NewModels constructs a Models value wired up to the given connection pool.
// Every repository logs its operations through logger.
func NewModels(db *sqlx.DB, logger *slog.Logger) Models {
	return Models{
		Authors: AuthorModel{
			Repository: newRepository[Author, AuthorInput, AuthorUpdate](db, logger, tableAuthors, "Autor"),
		},
		Publishers: PublisherModel{
			Repository: newRepository[Publisher, PublisherInput, PublisherUpdate](db, logger, tablePublishers, "Editora"),
		},
		Books: BookModel{
			Repository: newRepository[Book, BookInput, BookUpdate](db, logger, tableBooks, "Livro"),
		},
		Users: UserModel{
			Repository: newRepository[User, UserInput, UserUpdate](db, logger, tableUsers, "Usuario"),
		},
		Loans: LoanModel{
			Repository: newRepository[Loan, LoanInput, LoanUpdate](db, logger, tableLoans, "Emprestimo"),
			now:        time.Now,
		},
	}
}

// Filters holds the skip/limit pagination window extracted from the query string.
type Filters struct {
	Skip  int
	Limit int
}

// ValidateFilters checks the pagination window against the accepted bounds.
func ValidateFilters(v *validator.Validator, f Filters) {
	v.Check(f.Skip >= 0, "skip", "deve ser maior ou igual a zero")
	v.Check(f.Limit >= 1, "limit", "deve ser maior que zero")
	v.Check(f.Limit <= MaxLimit, "limit", "deve ser no máximo 1000")
}

// classify maps driver errors onto the package's sentinel errors.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRecordNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation":
			return errors.Join(ErrDuplicateRecord, err)
		case "foreign_key_violation":
			return errors.Join(ErrReferencedRecord, err)
		}
	}

	return err
}

// withTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise.
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return errors.Join(err, rollbackErr)
		}
		return err
	}

	return tx.Commit()
}

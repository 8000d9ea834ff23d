package data

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/doug-martin/goqu/v9"

	"github.com/aoideee/library-api/internal/validator"
)

const (
	opReadByTitle     = "READ_BY_TITLE"
	opReadByGenre     = "READ_BY_GENRE"
	opReadByYearRange = "READ_BY_YEAR_RANGE"
	opReadByAuthor    = "READ_BY_AUTHOR"
	opReadByISBN      = "READ_BY_ISBN"

	colTitle           = "titulo"
	colISBN            = "isbn"
	colGenre           = "genero"
	colPublicationYear = "ano_publicacao"
	colAuthorID        = "autor_id"

	// MinPublicationYear is the exclusive lower bound of a publication year.
	MinPublicationYear = 1000
)

// Book represents a single row of the "livro" table.
// Every book references exactly one author and one publisher.
type Book struct {
	ID              int64     `json:"id"             db:"id"             goqu:"skipinsert,skipupdate"`
	Title           string    `json:"titulo"         db:"titulo"`
	ISBN            string    `json:"isbn"           db:"isbn"`
	PublicationYear int       `json:"ano_publicacao" db:"ano_publicacao"`
	Genre           string    `json:"genero"         db:"genero"`
	Pages           int       `json:"paginas"        db:"paginas"`
	AuthorID        int64     `json:"autor_id"       db:"autor_id"`
	PublisherID     int64     `json:"editora_id"     db:"editora_id"`
	CreatedAt       time.Time `json:"data_criacao"   db:"data_criacao"   goqu:"skipinsert,skipupdate"`
}

// Identity returns the database-assigned id.
func (b Book) Identity() int64 { return b.ID }

// BookInput holds the fields a client must supply when creating a new book.
type BookInput struct {
	Title           string `json:"titulo"`
	ISBN            string `json:"isbn"`
	PublicationYear int    `json:"ano_publicacao"`
	Genre           string `json:"genero"`
	Pages           int    `json:"paginas"`
	AuthorID        int64  `json:"autor_id"`
	PublisherID     int64  `json:"editora_id"`
}

// Build maps the validated payload onto a new Book row.
func (in BookInput) Build() Book {
	return Book{
		Title:           in.Title,
		ISBN:            in.ISBN,
		PublicationYear: in.PublicationYear,
		Genre:           in.Genre,
		Pages:           in.Pages,
		AuthorID:        in.AuthorID,
		PublisherID:     in.PublisherID,
	}
}

// BookUpdate holds the fields a client may supply when partially updating a book.
// Every field is a pointer so we can distinguish between "not provided" (nil)
// and "intentionally set to zero/empty". Only non-nil fields are applied.
type BookUpdate struct {
	Title           *string `json:"titulo"`
	ISBN            *string `json:"isbn"`
	PublicationYear *int    `json:"ano_publicacao"`
	Genre           *string `json:"genero"`
	Pages           *int    `json:"paginas"`
	AuthorID        *int64  `json:"autor_id"`
	PublisherID     *int64  `json:"editora_id"`
}

// Apply copies the provided fields onto b.
func (in BookUpdate) Apply(b *Book) {
	if in.Title != nil {
		b.Title = *in.Title
	}
	if in.ISBN != nil {
		b.ISBN = *in.ISBN
	}
	if in.PublicationYear != nil {
		b.PublicationYear = *in.PublicationYear
	}
	if in.Genre != nil {
		b.Genre = *in.Genre
	}
	if in.Pages != nil {
		b.Pages = *in.Pages
	}
	if in.AuthorID != nil {
		b.AuthorID = *in.AuthorID
	}
	if in.PublisherID != nil {
		b.PublisherID = *in.PublisherID
	}
}

// ValidateBook records every rule a stored book must satisfy. now supplies
// the current year used as the upper publication bound.
func ValidateBook(v *validator.Validator, b *Book, now time.Time) {
	title := utf8.RuneCountInString(b.Title)
	v.Check(title >= 1, "titulo", "deve ser informado")
	v.Check(title <= 200, "titulo", "deve ter no máximo 200 caracteres")

	isbn := utf8.RuneCountInString(b.ISBN)
	v.Check(isbn >= 10 && isbn <= 17, "isbn", "deve ter entre 10 e 17 caracteres")

	v.Check(b.PublicationYear > MinPublicationYear, "ano_publicacao", "deve ser maior que 1000")
	v.Check(b.PublicationYear <= now.Year(), "ano_publicacao", "não pode estar no futuro")

	v.Check(utf8.RuneCountInString(b.Genre) <= 50, "genero", "deve ter no máximo 50 caracteres")
	v.Check(b.Pages > 0, "paginas", "deve ser maior que zero")
	v.Check(b.AuthorID > 0, "autor_id", "deve ser informado")
	v.Check(b.PublisherID > 0, "editora_id", "deve ser informado")
}

// BookModel is the repository for the "livro" table.
type BookModel struct {
	Repository[Book, BookInput, BookUpdate]
}

// GetByTitle returns the books whose title contains title, ignoring case.
func (m BookModel) GetByTitle(ctx context.Context, title string) ([]*Book, error) {
	return m.selectWhere(ctx, opReadByTitle, goqu.C(colTitle).ILike(containing(title)))
}

// GetByGenre returns the books of exactly the given genre.
func (m BookModel) GetByGenre(ctx context.Context, genre string) ([]*Book, error) {
	return m.selectWhere(ctx, opReadByGenre, goqu.C(colGenre).Eq(genre))
}

// GetByYearRange returns the books published between from and to, both
// inclusive. A nil to restricts the range to the single year from.
func (m BookModel) GetByYearRange(ctx context.Context, from int, to *int) ([]*Book, error) {
	until := from
	if to != nil {
		until = *to
	}

	return m.selectWhere(ctx, opReadByYearRange,
		goqu.C(colPublicationYear).Gte(from),
		goqu.C(colPublicationYear).Lte(until),
	)
}

// GetByAuthor returns the books written by the given author.
func (m BookModel) GetByAuthor(ctx context.Context, authorID int64) ([]*Book, error) {
	return m.selectWhere(ctx, opReadByAuthor, goqu.C(colAuthorID).Eq(authorID))
}

// GetByISBN returns the book with the given ISBN or ErrRecordNotFound.
func (m BookModel) GetByISBN(ctx context.Context, isbn string) (*Book, error) {
	return m.selectOne(ctx, opReadByISBN, goqu.C(colISBN).Eq(isbn))
}

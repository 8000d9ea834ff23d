package data

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB connects to the database named by LIBRARY_TEST_DSN, creates the
// schema and empties every table. The test is skipped without a DSN.
func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := os.Getenv("LIBRARY_TEST_DSN")
	if dsn == "" {
		t.Skip("LIBRARY_TEST_DSN not set")
	}

	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db))
	_, err = db.ExecContext(ctx, `TRUNCATE livro_emprestimo, emprestimo, livro, usuario, editora, autor RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	return db
}

type fixture struct {
	models    Models
	author    *Author
	publisher *Publisher
	books     []*Book
	user      *User
}

func newFixture(t *testing.T, db *sqlx.DB) fixture {
	t.Helper()
	ctx := context.Background()
	models := NewModels(db, nil)

	author, err := models.Authors.Create(ctx, AuthorInput{Name: "Machado de Assis", Nationality: "Brasileira"})
	require.NoError(t, err)
	publisher, err := models.Publishers.Create(ctx, PublisherInput{Name: "Garnier", Address: "Rua do Ouvidor, 65"})
	require.NoError(t, err)

	var books []*Book
	for i, title := range []string{"Dom Casmurro", "Quincas Borba"} {
		b, err := models.Books.Create(ctx, BookInput{
			Title:           title,
			ISBN:            "978-000000000" + string(rune('1'+i)),
			PublicationYear: 1890 + i,
			Genre:           "Romance",
			Pages:           200,
			AuthorID:        author.ID,
			PublisherID:     publisher.ID,
		})
		require.NoError(t, err)
		books = append(books, b)
	}

	user, err := models.Users.Create(ctx, UserInput{Name: "Ana", Email: "ana@biblioteca.org", Address: "Rua A", CPF: "12345678901"})
	require.NoError(t, err)

	return fixture{models: models, author: author, publisher: publisher, books: books, user: user}
}

func TestRepository_CRUD(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	authors := NewModels(db, nil).Authors

	created, err := authors.Create(ctx, AuthorInput{Name: "Clarice Lispector", Nationality: "Brasileira"})
	require.NoError(t, err)
	assert.Positive(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := authors.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, got.Name)

	updated, err := authors.Update(ctx, got, AuthorUpdate{Nationality: ptr("Ucraniana")})
	require.NoError(t, err)
	assert.Equal(t, "Ucraniana", updated.Nationality)
	assert.Equal(t, "Clarice Lispector", updated.Name)

	n, err := authors.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	byName, err := authors.GetByName(ctx, "LISPECTOR")
	require.NoError(t, err)
	assert.Len(t, byName, 1)

	byName, err = authors.GetByName(ctx, "%")
	require.NoError(t, err)
	assert.Empty(t, byName)

	removed, err := authors.Remove(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, removed.ID)

	_, err = authors.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrRecordNotFound)
	_, err = authors.Remove(ctx, created.ID)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestRepository_ListWindow(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	publishers := NewModels(db, nil).Publishers

	for i := range 25 {
		_, err := publishers.Create(ctx, PublisherInput{Name: "Editora " + string(rune('A'+i)), Address: "Rua"})
		require.NoError(t, err)
	}

	page, err := publishers.List(ctx, Filters{Skip: 0, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page, 10)

	page, err = publishers.List(ctx, Filters{Skip: 20, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page, 5)
	assert.Equal(t, int64(21), page[0].ID)

	page, err = publishers.List(ctx, Filters{Skip: 100, Limit: 10})
	require.NoError(t, err)
	assert.NotNil(t, page)
	assert.Empty(t, page)
}

func TestRepository_Constraints(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	f := newFixture(t, db)

	_, err := f.models.Books.Create(ctx, BookInput{
		Title: "Cópia", ISBN: f.books[0].ISBN, PublicationYear: 1900, Genre: "Romance", Pages: 10,
		AuthorID: f.author.ID, PublisherID: f.publisher.ID,
	})
	assert.ErrorIs(t, err, ErrDuplicateRecord)

	_, err = f.models.Books.Create(ctx, BookInput{
		Title: "Órfão", ISBN: "978-0000009999", PublicationYear: 1900, Genre: "Romance", Pages: 10,
		AuthorID: 9999, PublisherID: f.publisher.ID,
	})
	assert.ErrorIs(t, err, ErrReferencedRecord)

	_, err = f.models.Authors.Remove(ctx, f.author.ID)
	assert.ErrorIs(t, err, ErrReferencedRecord)

	_, err = f.models.Users.Create(ctx, UserInput{Name: "Outra Ana", Email: f.user.Email, Address: "Rua B", CPF: "10987654321"})
	assert.ErrorIs(t, err, ErrDuplicateRecord)

	found, err := f.models.Users.GetByCPF(ctx, f.user.CPF)
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, found.ID)

	isbn, err := f.models.Books.GetByISBN(ctx, f.books[1].ISBN)
	require.NoError(t, err)
	assert.Equal(t, f.books[1].ID, isbn.ID)
}

func TestLoanModel_CreateWithBooksIsAtomic(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	f := newFixture(t, db)

	_, err := f.models.Loans.CreateWithBooks(ctx, LoanInput{
		UserID:  f.user.ID,
		BookIDs: []int64{f.books[0].ID, 9999},
		DueAt:   time.Now().AddDate(0, 0, 7),
	})
	require.ErrorIs(t, err, ErrReferencedRecord)

	n, err := f.models.Loans.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	var links int
	require.NoError(t, db.GetContext(ctx, &links, `SELECT COUNT(*) FROM livro_emprestimo`))
	assert.Zero(t, links)

	_, err = f.models.Loans.CreateWithBooks(ctx, LoanInput{UserID: f.user.ID, DueAt: time.Now()})
	assert.ErrorIs(t, err, ErrNoBooks)
}

func TestLoanModel_Lifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	f := newFixture(t, db)

	loan, err := f.models.Loans.CreateWithBooks(ctx, LoanInput{
		UserID:  f.user.ID,
		BookIDs: []int64{f.books[1].ID, f.books[0].ID},
		DueAt:   time.Now().AddDate(0, 0, 7),
		Notes:   ptr("primeiro empréstimo"),
	})
	require.NoError(t, err)
	assert.Equal(t, LoanActive, loan.Status)

	withBooks, err := f.models.Loans.GetWithBooks(ctx, loan.ID)
	require.NoError(t, err)
	require.Len(t, withBooks.Books, 2)
	assert.Equal(t, f.books[0].ID, withBooks.Books[0].ID)

	listed, err := f.models.Loans.ListWithBooks(ctx, Filters{Skip: 0, Limit: 10})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Len(t, listed[0].Books, 2)

	byUser, err := f.models.Loans.GetByUser(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Len(t, byUser, 1)

	returnedAt := time.Now().Truncate(time.Microsecond)
	returned, err := f.models.Loans.Update(ctx, loan, LoanUpdate{Status: ptr(LoanReturned), ReturnedAt: &returnedAt})
	require.NoError(t, err)
	assert.Equal(t, LoanReturned, returned.Status)
	require.NotNil(t, returned.ReturnedAt)
	assert.True(t, returned.ReturnedAt.Equal(returnedAt))
	assert.Equal(t, f.user.ID, returned.UserID)

	byStatus, err := f.models.Loans.GetByStatus(ctx, LoanReturned)
	require.NoError(t, err)
	assert.Len(t, byStatus, 1)

	_, err = f.models.Users.Remove(ctx, f.user.ID)
	assert.ErrorIs(t, err, ErrReferencedRecord)

	_, err = f.models.Loans.Remove(ctx, loan.ID)
	require.NoError(t, err)

	var links int
	require.NoError(t, db.GetContext(ctx, &links, `SELECT COUNT(*) FROM livro_emprestimo`))
	assert.Zero(t, links)
}

func TestLoanModel_GetOverdue(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	f := newFixture(t, db)

	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	loans := LoanModel{
		Repository: newRepository[Loan, LoanInput, LoanUpdate](db, nil, tableLoans, "Emprestimo"),
		now:        func() time.Time { return now },
	}

	create := func(due time.Time) *Loan {
		l, err := loans.CreateWithBooks(ctx, LoanInput{UserID: f.user.ID, BookIDs: []int64{f.books[0].ID}, DueAt: due})
		require.NoError(t, err)
		return l
	}

	late := create(now.Add(-time.Hour))
	create(now.Add(time.Hour))
	exact := create(now)
	returned := create(now.Add(-48 * time.Hour))
	_, err := loans.Update(ctx, returned, LoanUpdate{Status: ptr(LoanReturned), ReturnedAt: &now})
	require.NoError(t, err)

	overdue, err := loans.GetOverdue(ctx)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, late.ID, overdue[0].ID)
	assert.NotEqual(t, exact.ID, overdue[0].ID)
}

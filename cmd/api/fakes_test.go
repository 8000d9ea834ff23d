package main

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/aoideee/library-api/internal/data"
)

// memTable is an in-memory stand-in for data.Repository. Rows are kept in
// id order and copied on the way in and out.
type memTable[T data.Entity, C data.Builder[T], U data.Patch[T]] struct {
	mu        sync.Mutex
	rows      []*T
	nextID    int64
	setID     func(*T, int64)
	removeErr error
}

func newMemTable[T data.Entity, C data.Builder[T], U data.Patch[T]](setID func(*T, int64)) *memTable[T, C, U] {
	return &memTable[T, C, U]{setID: setID}
}

func (m *memTable[T, C, U]) insert(row T) *T {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	m.setID(&row, m.nextID)
	m.rows = append(m.rows, &row)

	stored := row
	return &stored
}

func (m *memTable[T, C, U]) Create(_ context.Context, input C) (*T, error) {
	return m.insert(input.Build()), nil
}

func (m *memTable[T, C, U]) Get(_ context.Context, id int64) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, row := range m.rows {
		if (*row).Identity() == id {
			found := *row
			return &found, nil
		}
	}
	return nil, data.ErrRecordNotFound
}

func (m *memTable[T, C, U]) List(_ context.Context, filters data.Filters) ([]*T, error) {
	all := m.where(func(*T) bool { return true })
	if filters.Skip >= len(all) {
		return []*T{}, nil
	}
	end := min(filters.Skip+filters.Limit, len(all))
	return all[filters.Skip:end], nil
}

func (m *memTable[T, C, U]) Update(_ context.Context, existing *T, input U) (*T, error) {
	stored := *existing
	input.Apply(&stored)

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, row := range m.rows {
		if (*row).Identity() == stored.Identity() {
			m.rows[i] = &stored
			updated := stored
			return &updated, nil
		}
	}
	return nil, data.ErrRecordNotFound
}

func (m *memTable[T, C, U]) Remove(_ context.Context, id int64) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.removeErr != nil {
		return nil, m.removeErr
	}

	for i, row := range m.rows {
		if (*row).Identity() == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return row, nil
		}
	}
	return nil, data.ErrRecordNotFound
}

func (m *memTable[T, C, U]) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows), nil
}

// where returns copies of the rows matching keep, in id order.
func (m *memTable[T, C, U]) where(keep func(*T) bool) []*T {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := []*T{}
	for _, row := range m.rows {
		if keep(row) {
			found := *row
			matched = append(matched, &found)
		}
	}
	return matched
}

func (m *memTable[T, C, U]) first(keep func(*T) bool) (*T, error) {
	matched := m.where(keep)
	if len(matched) == 0 {
		return nil, data.ErrRecordNotFound
	}
	return matched[0], nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

type fakeAuthors struct {
	*memTable[data.Author, data.AuthorInput, data.AuthorUpdate]
}

func (f fakeAuthors) GetByName(_ context.Context, name string) ([]*data.Author, error) {
	return f.where(func(a *data.Author) bool { return containsFold(a.Name, name) }), nil
}

func (f fakeAuthors) GetByNationality(_ context.Context, nationality string) ([]*data.Author, error) {
	return f.where(func(a *data.Author) bool { return a.Nationality == nationality }), nil
}

type fakePublishers struct {
	*memTable[data.Publisher, data.PublisherInput, data.PublisherUpdate]
}

func (f fakePublishers) GetByName(_ context.Context, name string) ([]*data.Publisher, error) {
	return f.where(func(p *data.Publisher) bool { return containsFold(p.Name, name) }), nil
}

type fakeBooks struct {
	*memTable[data.Book, data.BookInput, data.BookUpdate]
}

func (f fakeBooks) GetByTitle(_ context.Context, title string) ([]*data.Book, error) {
	return f.where(func(b *data.Book) bool { return containsFold(b.Title, title) }), nil
}

func (f fakeBooks) GetByGenre(_ context.Context, genre string) ([]*data.Book, error) {
	return f.where(func(b *data.Book) bool { return b.Genre == genre }), nil
}

func (f fakeBooks) GetByYearRange(_ context.Context, from int, to *int) ([]*data.Book, error) {
	until := from
	if to != nil {
		until = *to
	}
	return f.where(func(b *data.Book) bool {
		return b.PublicationYear >= from && b.PublicationYear <= until
	}), nil
}

func (f fakeBooks) GetByAuthor(_ context.Context, authorID int64) ([]*data.Book, error) {
	return f.where(func(b *data.Book) bool { return b.AuthorID == authorID }), nil
}

func (f fakeBooks) GetByISBN(_ context.Context, isbn string) (*data.Book, error) {
	return f.first(func(b *data.Book) bool { return b.ISBN == isbn })
}

type fakeUsers struct {
	*memTable[data.User, data.UserInput, data.UserUpdate]
}

func (f fakeUsers) GetByEmail(_ context.Context, email string) (*data.User, error) {
	return f.first(func(u *data.User) bool { return u.Email == email })
}

func (f fakeUsers) GetByCPF(_ context.Context, cpf string) (*data.User, error) {
	return f.first(func(u *data.User) bool { return u.CPF == cpf })
}

func (f fakeUsers) GetActive(context.Context) ([]*data.User, error) {
	return f.where(func(u *data.User) bool { return u.Active }), nil
}

type fakeLoans struct {
	*memTable[data.Loan, data.LoanInput, data.LoanUpdate]
	books fakeBooks
	links map[int64][]int64
	now   func() time.Time
}

func (f fakeLoans) CreateWithBooks(ctx context.Context, input data.LoanInput) (*data.Loan, error) {
	if len(input.BookIDs) == 0 {
		return nil, data.ErrNoBooks
	}
	for _, id := range input.BookIDs {
		if _, err := f.books.Get(ctx, id); err != nil {
			return nil, data.ErrReferencedRecord
		}
	}

	loan := f.insert(input.Build())
	f.links[loan.ID] = append([]int64(nil), input.BookIDs...)
	return loan, nil
}

func (f fakeLoans) GetByUser(_ context.Context, userID int64) ([]*data.Loan, error) {
	return f.where(func(l *data.Loan) bool { return l.UserID == userID }), nil
}

func (f fakeLoans) GetByStatus(_ context.Context, status data.LoanStatus) ([]*data.Loan, error) {
	return f.where(func(l *data.Loan) bool { return l.Status == status }), nil
}

func (f fakeLoans) GetOverdue(context.Context) ([]*data.Loan, error) {
	now := f.now()
	return f.where(func(l *data.Loan) bool {
		return l.Status == data.LoanActive && l.DueAt.Before(now)
	}), nil
}

func (f fakeLoans) GetWithBooks(ctx context.Context, id int64) (*data.LoanWithBooks, error) {
	loan, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return f.attach(ctx, loan), nil
}

func (f fakeLoans) ListWithBooks(ctx context.Context, filters data.Filters) ([]*data.LoanWithBooks, error) {
	loans, err := f.List(ctx, filters)
	if err != nil {
		return nil, err
	}

	result := make([]*data.LoanWithBooks, len(loans))
	for i, loan := range loans {
		result[i] = f.attach(ctx, loan)
	}
	return result, nil
}

func (f fakeLoans) attach(ctx context.Context, loan *data.Loan) *data.LoanWithBooks {
	books := []*data.Book{}
	for _, id := range f.links[loan.ID] {
		if b, err := f.books.Get(ctx, id); err == nil {
			books = append(books, b)
		}
	}
	return &data.LoanWithBooks{Loan: *loan, Books: books}
}

// fakeStores groups the fakes so tests can seed and inspect them directly.
type fakeStores struct {
	authors    fakeAuthors
	publishers fakePublishers
	books      fakeBooks
	users      fakeUsers
	loans      fakeLoans
}

func newFakeStores(now func() time.Time) *fakeStores {
	books := fakeBooks{newMemTable[data.Book, data.BookInput, data.BookUpdate](func(b *data.Book, id int64) {
		b.ID = id
		b.CreatedAt = now()
	})}

	return &fakeStores{
		authors: fakeAuthors{newMemTable[data.Author, data.AuthorInput, data.AuthorUpdate](func(a *data.Author, id int64) {
			a.ID = id
			a.CreatedAt = now()
		})},
		publishers: fakePublishers{newMemTable[data.Publisher, data.PublisherInput, data.PublisherUpdate](func(p *data.Publisher, id int64) {
			p.ID = id
			p.CreatedAt = now()
		})},
		books: books,
		users: fakeUsers{newMemTable[data.User, data.UserInput, data.UserUpdate](func(u *data.User, id int64) {
			u.ID = id
			u.CreatedAt = now()
		})},
		loans: fakeLoans{
			memTable: newMemTable[data.Loan, data.LoanInput, data.LoanUpdate](func(l *data.Loan, id int64) { l.ID = id }),
			books:    books,
			links:    make(map[int64][]int64),
			now:      now,
		},
	}
}

func (s *fakeStores) models() data.Models {
	return data.Models{
		Authors:    s.authors,
		Publishers: s.publishers,
		Books:      s.books,
		Users:      s.users,
		Loans:      s.loans,
	}
}

package data

import (
	"context"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/aoideee/library-api/internal/validator"
)

const (
	opReadByUser   = "READ_BY_USER"
	opReadByStatus = "READ_BY_STATUS"
	opReadOverdue  = "READ_OVERDUE"

	colStatus    = "status"
	colDueAt     = "data_devolucao_prevista"
	colUserID    = "usuario_id"
	colLoanID    = "emprestimo_id"
	colBookID    = "livro_id"
	colBookTable = tableBooks + "." + colID
)

// LoanStatus is the lifecycle state of a loan.
type LoanStatus string

const (
	LoanActive   LoanStatus = "ativo"
	LoanReturned LoanStatus = "devolvido"
	LoanOverdue  LoanStatus = "atrasado"
)

// Valid reports whether s is one of the known statuses.
func (s LoanStatus) Valid() bool {
	return validator.In(string(s), string(LoanActive), string(LoanReturned), string(LoanOverdue))
}

// Value implements driver.Valuer.
func (s LoanStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// Loan records one or more books borrowed by one user for a bounded period.
// ReturnedAt stays nil until the loan reaches LoanReturned.
type Loan struct {
	ID         int64      `json:"id"                      db:"id"                      goqu:"skipinsert,skipupdate"`
	LoanedAt   time.Time  `json:"data_emprestimo"         db:"data_emprestimo"`
	DueAt      time.Time  `json:"data_devolucao_prevista" db:"data_devolucao_prevista"`
	Notes      *string    `json:"observacoes"             db:"observacoes"`
	ReturnedAt *time.Time `json:"data_devolucao_real"     db:"data_devolucao_real"`
	Status     LoanStatus `json:"status"                  db:"status"`
	UserID     int64      `json:"usuario_id"              db:"usuario_id"              goqu:"skipupdate"`
}

// Identity returns the database-assigned id.
func (l Loan) Identity() int64 { return l.ID }

// BookLoan is one row of the book/loan association table.
type BookLoan struct {
	BookID   int64 `db:"livro_id"`
	LoanID   int64 `db:"emprestimo_id"`
	Quantity int   `db:"quantidade"`
}

// LoanWithBooks is a loan together with its associated books.
type LoanWithBooks struct {
	Loan
	Books []*Book `json:"livros"`
}

// LoanInput holds the fields a client supplies when opening a loan.
// LoanedAt defaults to the creation time.
type LoanInput struct {
	UserID   int64      `json:"usuario_id"`
	BookIDs  []int64    `json:"livro_ids"`
	LoanedAt *time.Time `json:"data_emprestimo"`
	DueAt    time.Time  `json:"data_devolucao_prevista"`
	Notes    *string    `json:"observacoes"`
}

// Build maps the payload onto a new active Loan row. The book ids are not
// part of the row; see LoanModel.CreateWithBooks.
func (in LoanInput) Build() Loan {
	loanedAt := time.Now()
	if in.LoanedAt != nil {
		loanedAt = *in.LoanedAt
	}

	return Loan{
		LoanedAt: loanedAt,
		DueAt:    in.DueAt,
		Notes:    in.Notes,
		Status:   LoanActive,
		UserID:   in.UserID,
	}
}

// LoanUpdate holds the optional fields of a partial loan update.
type LoanUpdate struct {
	DueAt      *time.Time  `json:"data_devolucao_prevista"`
	ReturnedAt *time.Time  `json:"data_devolucao_real"`
	Status     *LoanStatus `json:"status"`
	Notes      *string     `json:"observacoes"`
}

// Apply copies the provided fields onto l. A loan that ends up in any status
// other than LoanReturned loses its return date unless one is supplied.
func (in LoanUpdate) Apply(l *Loan) {
	if in.DueAt != nil {
		l.DueAt = *in.DueAt
	}
	if in.ReturnedAt != nil {
		l.ReturnedAt = in.ReturnedAt
	}
	if in.Status != nil {
		l.Status = *in.Status
	}
	if in.Notes != nil {
		l.Notes = in.Notes
	}

	if l.Status != LoanReturned && in.ReturnedAt == nil {
		l.ReturnedAt = nil
	}
}

// ValidateLoanInput checks a creation payload before any row is written.
func ValidateLoanInput(v *validator.Validator, in LoanInput) {
	v.Check(in.UserID > 0, "usuario_id", "deve ser informado")
	v.Check(len(in.BookIDs) >= 1, "livro_ids", "deve conter pelo menos um livro")
	v.Check(validator.Unique(in.BookIDs), "livro_ids", "não pode conter livros repetidos")
	for _, id := range in.BookIDs {
		v.Check(id > 0, "livro_ids", "deve conter apenas identificadores positivos")
	}
	v.Check(!in.DueAt.IsZero(), "data_devolucao_prevista", "deve ser informada")
}

// ValidateLoan records every rule a stored loan must satisfy.
func ValidateLoan(v *validator.Validator, l *Loan) {
	v.Check(l.Status.Valid(), "status", "deve ser ativo, devolvido ou atrasado")
	v.Check(!l.DueAt.IsZero(), "data_devolucao_prevista", "deve ser informada")
	if l.Status == LoanReturned {
		v.Check(l.ReturnedAt != nil, "data_devolucao_real", "deve ser informada para empréstimos devolvidos")
	} else {
		v.Check(l.ReturnedAt == nil, "data_devolucao_real", "só pode ser informada para empréstimos devolvidos")
	}
}

// LoanModel is the repository for the "emprestimo" table and its
// association with books.
type LoanModel struct {
	Repository[Loan, LoanInput, LoanUpdate]
	now func() time.Time
}

// CreateWithBooks inserts the loan row and one association row per book in a
// single transaction: either all rows persist or none do.
// The caller is expected to have checked that the user and books exist.
func (m LoanModel) CreateWithBooks(ctx context.Context, input LoanInput) (*Loan, error) {
	if len(input.BookIDs) == 0 {
		m.logOperation(ctx, opCreateWithBooks, 0, ErrNoBooks)
		return nil, ErrNoBooks
	}

	loanQuery, loanArgs, err := dialect.Insert(tableLoans).Prepared(true).
		Rows(input.Build()).
		Returning(goqu.Star()).
		ToSQL()
	if err != nil {
		m.logOperation(ctx, opCreateWithBooks, 0, err)
		return nil, err
	}

	var created Loan
	err = withTx(ctx, m.db, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &created, loanQuery, loanArgs...); err != nil {
			return err
		}

		for _, bookID := range input.BookIDs {
			linkQuery, linkArgs, err := dialect.Insert(tableBookLoans).Prepared(true).
				Rows(BookLoan{BookID: bookID, LoanID: created.ID, Quantity: 1}).
				ToSQL()
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, linkQuery, linkArgs...); err != nil {
				return fmt.Errorf("linking book %d: %w", bookID, err)
			}
		}

		return nil
	})
	if err != nil {
		err = classify(err)
		m.logOperation(ctx, opCreateWithBooks, 0, err)
		return nil, err
	}

	m.logOperation(ctx, opCreateWithBooks, created.ID, nil)
	return &created, nil
}

// GetByUser returns every loan of the given user, whatever its status.
func (m LoanModel) GetByUser(ctx context.Context, userID int64) ([]*Loan, error) {
	return m.selectWhere(ctx, opReadByUser, goqu.C(colUserID).Eq(userID))
}

// GetByStatus returns the loans stored with exactly the given status.
func (m LoanModel) GetByStatus(ctx context.Context, status LoanStatus) ([]*Loan, error) {
	return m.selectWhere(ctx, opReadByStatus, goqu.C(colStatus).Eq(status))
}

// GetOverdue returns the active loans whose expected return date is strictly
// before the time of the call. The stored LoanOverdue status is not consulted.
func (m LoanModel) GetOverdue(ctx context.Context) ([]*Loan, error) {
	return m.selectWhere(ctx, opReadOverdue,
		goqu.C(colStatus).Eq(LoanActive),
		goqu.C(colDueAt).Lt(m.now()),
	)
}

// GetWithBooks returns the loan with its books loaded.
func (m LoanModel) GetWithBooks(ctx context.Context, id int64) (*LoanWithBooks, error) {
	loan, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	books, err := m.booksByLoan(ctx, []int64{loan.ID})
	if err != nil {
		return nil, err
	}

	return withBooks(loan, books), nil
}

// ListWithBooks returns one page of loans, each with its books loaded.
func (m LoanModel) ListWithBooks(ctx context.Context, filters Filters) ([]*LoanWithBooks, error) {
	loans, err := m.List(ctx, filters)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(loans))
	for i, loan := range loans {
		ids[i] = loan.ID
	}

	books, err := m.booksByLoan(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]*LoanWithBooks, len(loans))
	for i, loan := range loans {
		result[i] = withBooks(loan, books)
	}

	return result, nil
}

// loanBookRow is a book row tagged with the loan it is associated with.
type loanBookRow struct {
	LoanID int64 `db:"emprestimo_id"`
	Book
}

// booksByLoanQuery selects the books linked to any of loanIDs.
func booksByLoanQuery(loanIDs []int64) *goqu.SelectDataset {
	return dialect.From(tableBooks).Prepared(true).
		Join(goqu.T(tableBookLoans), goqu.On(goqu.I(tableBookLoans+"."+colBookID).Eq(goqu.I(colBookTable)))).
		Select(goqu.T(tableBooks).All(), goqu.I(tableBookLoans+"."+colLoanID)).
		Where(goqu.I(tableBookLoans + "." + colLoanID).In(loanIDs)).
		Order(goqu.I(tableBookLoans+"."+colLoanID).Asc(), goqu.I(colBookTable).Asc())
}

// booksByLoan loads the books of every given loan in one query.
func (m LoanModel) booksByLoan(ctx context.Context, loanIDs []int64) (map[int64][]*Book, error) {
	books := make(map[int64][]*Book, len(loanIDs))
	if len(loanIDs) == 0 {
		return books, nil
	}

	query, args, err := booksByLoanQuery(loanIDs).ToSQL()
	if err != nil {
		m.logOperation(ctx, opReadWithBooks, 0, err)
		return nil, err
	}

	var rows []loanBookRow
	if err := m.db.SelectContext(ctx, &rows, query, args...); err != nil {
		m.logOperation(ctx, opReadWithBooks, 0, err)
		return nil, err
	}

	for i := range rows {
		book := rows[i].Book
		books[rows[i].LoanID] = append(books[rows[i].LoanID], &book)
	}

	m.logOperation(ctx, opReadWithBooks, 0, nil)
	return books, nil
}

func withBooks(loan *Loan, books map[int64][]*Book) *LoanWithBooks {
	linked := books[loan.ID]
	if linked == nil {
		linked = []*Book{}
	}

	return &LoanWithBooks{Loan: *loan, Books: linked}
}

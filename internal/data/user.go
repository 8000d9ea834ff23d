package data

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/doug-martin/goqu/v9"

	"github.com/aoideee/library-api/internal/validator"
)

const (
	opReadByEmail = "READ_BY_EMAIL"
	opReadByCPF   = "READ_BY_CPF"
	opReadActive  = "READ_ACTIVE"

	colEmail  = "email"
	colCPF    = "cpf"
	colActive = "ativo"
)

// User represents a library patron stored in the "usuario" table.
// Email and CPF (national id) are unique across all users.
type User struct {
	ID        int64     `json:"id"           db:"id"           goqu:"skipinsert,skipupdate"`
	Name      string    `json:"nome"         db:"nome"`
	Email     string    `json:"email"        db:"email"`
	Phone     *string   `json:"telefone"     db:"telefone"`
	Address   string    `json:"endereco"     db:"endereco"`
	CPF       string    `json:"cpf"          db:"cpf"`
	Active    bool      `json:"ativo"        db:"ativo"`
	CreatedAt time.Time `json:"data_criacao" db:"data_criacao" goqu:"skipinsert,skipupdate"`
}

// Identity returns the database-assigned id.
func (u User) Identity() int64 { return u.ID }

// UserInput holds the fields a client supplies when registering a user.
// New users are always active.
type UserInput struct {
	Name    string  `json:"nome"`
	Email   string  `json:"email"`
	Phone   *string `json:"telefone"`
	Address string  `json:"endereco"`
	CPF     string  `json:"cpf"`
}

// Build returns the row to insert for in.
func (in UserInput) Build() User {
	return User{
		Name:    in.Name,
		Email:   in.Email,
		Phone:   in.Phone,
		Address: in.Address,
		CPF:     in.CPF,
		Active:  true,
	}
}

// UserUpdate holds the optional fields of a partial user update.
type UserUpdate struct {
	Name    *string `json:"nome"`
	Email   *string `json:"email"`
	Phone   *string `json:"telefone"`
	Address *string `json:"endereco"`
	CPF     *string `json:"cpf"`
	Active  *bool   `json:"ativo"`
}

// Apply copies the fields present in in onto u.
func (in UserUpdate) Apply(u *User) {
	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.Phone != nil {
		u.Phone = in.Phone
	}
	if in.Address != nil {
		u.Address = *in.Address
	}
	if in.CPF != nil {
		u.CPF = *in.CPF
	}
	if in.Active != nil {
		u.Active = *in.Active
	}
}

// ValidateUser checks the user fields, recording failures in v.
func ValidateUser(v *validator.Validator, u *User) {
	n := utf8.RuneCountInString(u.Name)
	v.Check(n >= 2, "nome", "deve ter pelo menos 2 caracteres")
	v.Check(n <= 100, "nome", "deve ter no máximo 100 caracteres")

	v.Check(u.Email != "", "email", "deve ser informado")
	v.Check(utf8.RuneCountInString(u.Email) <= 100, "email", "deve ter no máximo 100 caracteres")
	v.Check(validator.Matches(u.Email, validator.EmailRX), "email", "deve ser um endereço de email válido")

	v.Check(utf8.RuneCountInString(u.Address) <= 200, "endereco", "deve ter no máximo 200 caracteres")

	cpf := utf8.RuneCountInString(u.CPF)
	v.Check(cpf >= 11 && cpf <= 14, "cpf", "deve ter entre 11 e 14 caracteres")
}

// UserModel wraps the "usuario" table with the email, CPF and active lookups.
type UserModel struct {
	Repository[User, UserInput, UserUpdate]
}

// GetByEmail returns the user registered with email or ErrRecordNotFound.
func (m UserModel) GetByEmail(ctx context.Context, email string) (*User, error) {
	return m.selectOne(ctx, opReadByEmail, goqu.C(colEmail).Eq(email))
}

// GetByCPF returns the user registered with cpf or ErrRecordNotFound.
func (m UserModel) GetByCPF(ctx context.Context, cpf string) (*User, error) {
	return m.selectOne(ctx, opReadByCPF, goqu.C(colCPF).Eq(cpf))
}

// GetActive returns every active user.
func (m UserModel) GetActive(ctx context.Context) ([]*User, error) {
	return m.selectWhere(ctx, opReadActive, goqu.C(colActive).IsTrue())
}

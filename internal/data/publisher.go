package data

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/doug-martin/goqu/v9"

	"github.com/aoideee/library-api/internal/validator"
)

// Publisher represents a single row of the "editora" table.
type Publisher struct {
	ID        int64     `json:"id"           db:"id"           goqu:"skipinsert,skipupdate"`
	Name      string    `json:"nome"         db:"nome"`
	Address   string    `json:"endereco"     db:"endereco"`
	Phone     *string   `json:"telefone"     db:"telefone"`
	Email     *string   `json:"email"        db:"email"`
	Site      *string   `json:"site"         db:"site"`
	CreatedAt time.Time `json:"data_criacao" db:"data_criacao" goqu:"skipinsert,skipupdate"`
}

// Identity returns the database-assigned id.
func (p Publisher) Identity() int64 { return p.ID }

// PublisherInput holds the fields a client supplies when creating a publisher.
type PublisherInput struct {
	Name    string  `json:"nome"`
	Address string  `json:"endereco"`
	Phone   *string `json:"telefone"`
	Email   *string `json:"email"`
	Site    *string `json:"site"`
}

// Build returns the row to insert for in.
func (in PublisherInput) Build() Publisher {
	return Publisher{
		Name:    in.Name,
		Address: in.Address,
		Phone:   in.Phone,
		Email:   in.Email,
		Site:    in.Site,
	}
}

// PublisherUpdate holds the optional fields of a partial publisher update.
type PublisherUpdate struct {
	Name    *string `json:"nome"`
	Address *string `json:"endereco"`
	Phone   *string `json:"telefone"`
	Email   *string `json:"email"`
	Site    *string `json:"site"`
}

// Apply copies the fields present in in onto p.
func (in PublisherUpdate) Apply(p *Publisher) {
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Address != nil {
		p.Address = *in.Address
	}
	if in.Phone != nil {
		p.Phone = in.Phone
	}
	if in.Email != nil {
		p.Email = in.Email
	}
	if in.Site != nil {
		p.Site = in.Site
	}
}

// ValidatePublisher checks the publisher fields, recording failures in v.
func ValidatePublisher(v *validator.Validator, p *Publisher) {
	n := utf8.RuneCountInString(p.Name)
	v.Check(n >= 2, "nome", "deve ter pelo menos 2 caracteres")
	v.Check(n <= 100, "nome", "deve ter no máximo 100 caracteres")
	v.Check(utf8.RuneCountInString(p.Address) <= 200, "endereco", "deve ter no máximo 200 caracteres")
	if p.Email != nil && *p.Email != "" {
		v.Check(validator.Matches(*p.Email, validator.EmailRX), "email", "deve ser um endereço de email válido")
	}
}

// PublisherModel wraps the "editora" table.
type PublisherModel struct {
	Repository[Publisher, PublisherInput, PublisherUpdate]
}

// GetByName returns the publishers whose name contains name, ignoring case.
func (m PublisherModel) GetByName(ctx context.Context, name string) ([]*Publisher, error) {
	return m.selectWhere(ctx, opReadByName, goqu.C(colName).ILike(containing(name)))
}

package directory

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/uptrace/bun"
)

type location struct {
	bun.BaseModel `bun:"table:locations"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull"`
}

type lead struct {
	bun.BaseModel `bun:"table:leads"`

	ID        int64  `bun:"id,pk,autoincrement"`
	FirstName string `bun:"first_name"`
	LastName  string `bun:"last_name"`
	Status    string `bun:"status"`
}

type customer struct {
	bun.BaseModel `bun:"table:customers"`

	ID        int64  `bun:"id,pk,autoincrement"`
	FirstName string `bun:"first_name"`
	LastName  string `bun:"last_name"`
}

// LocationDirectory reads the location table owned by the locations module.
type LocationDirectory struct {
	db *bun.DB
}

func NewLocationDirectory(db *bun.DB) *LocationDirectory {
	return &LocationDirectory{db: db}
}

func (d *LocationDirectory) DisplayName(ctx context.Context, id int64) (string, error) {
	var loc location
	err := d.db.NewSelect().Model(&loc).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return loc.Name, nil
}

// LeadDirectory reads and signals the lead table owned by the leads module.
type LeadDirectory struct {
	db *bun.DB
}

func NewLeadDirectory(db *bun.DB) *LeadDirectory {
	return &LeadDirectory{db: db}
}

func (d *LeadDirectory) DisplayName(ctx context.Context, id int64) (string, error) {
	var l lead
	err := d.db.NewSelect().Model(&l).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return fullName(l.FirstName, l.LastName), nil
}

func (d *LeadDirectory) SetStatus(ctx context.Context, id int64, status string) error {
	res, err := d.db.NewUpdate().
		Model((*lead)(nil)).
		Set("status = ?", status).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CustomerDirectory reads the customer table owned by the customers module.
type CustomerDirectory struct {
	db *bun.DB
}

func NewCustomerDirectory(db *bun.DB) *CustomerDirectory {
	return &CustomerDirectory{db: db}
}

func (d *CustomerDirectory) DisplayName(ctx context.Context, id int64) (string, error) {
	var c customer
	err := d.db.NewSelect().Model(&c).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return fullName(c.FirstName, c.LastName), nil
}

func fullName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

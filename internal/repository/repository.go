package repository

import (
	"context"
	"database/sql"
	"time"

	rt "resin_tracker"
)

// Operators stores dashboard accounts.
type Operators interface {
	Create(ctx context.Context, username, hash string) (int, error)
	GetByUsername(ctx context.Context, username string) (*rt.Operator, error)
}

// Readings is the event store the analysis reads from.
type Readings interface {
	AppendBatch(ctx context.Context, events []rt.Event) (int, error)
	List(ctx context.Context, from, to time.Time, tags []string) ([]rt.Event, error)
}

type Repository struct {
	Readings  Readings
	Operators Operators
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Readings:  NewReadingSQLite(db),
		Operators: NewOperatorRepository(db),
	}
}

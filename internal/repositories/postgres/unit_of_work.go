package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/bcllcc/MockMate/internal/models"
)

// UnitOfWork gives access to the session store. Repositories obtained from
// the handle passed to Transaction share one database transaction.
type UnitOfWork interface {
	Sessions() SessionRepository
	Turns() TurnRepository
	Transaction(ctx context.Context, fn func(tx UnitOfWork) error) error
}

type unitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &unitOfWork{db: db}
}

func (u *unitOfWork) Sessions() SessionRepository { return NewSessionRepo(u.db) }

func (u *unitOfWork) Turns() TurnRepository { return NewTurnRepo(u.db) }

func (u *unitOfWork) Transaction(ctx context.Context, fn func(tx UnitOfWork) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&unitOfWork{db: tx})
	})
}

// Migrate creates or updates the session store schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.InterviewSession{}, &models.InterviewTurn{})
}

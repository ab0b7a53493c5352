package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/bcllcc/MockMate/internal/models"
	"github.com/bcllcc/MockMate/internal/utils"
)

type SessionRepository interface {
	Create(ctx context.Context, s *models.InterviewSession) error
	GetByID(ctx context.Context, id string) (*models.InterviewSession, error)
	// Update persists the mutable state of s if its Version still matches the
	// stored row, then bumps s.Version. A stale Version yields ErrConcurrentUpdate.
	Update(ctx context.Context, s *models.InterviewSession) error
	ListByOwner(ctx context.Context, ownerID string) ([]models.InterviewSession, error)
}

type sessionRepo struct {
	db *gorm.DB
}

func NewSessionRepo(db *gorm.DB) SessionRepository {
	return &sessionRepo{db: db}
}

// mutableColumns are the only columns written after creation.
var mutableColumns = []string{
	"current_prompt",
	"next_plan_index",
	"turn_count",
	"follow_up_streak",
	"completed",
	"feedback",
	"completed_at",
	"version",
}

func (r *sessionRepo) Create(ctx context.Context, s *models.InterviewSession) error {
	if s.Version == 0 {
		s.Version = 1
	}
	return r.db.WithContext(ctx).Omit("Turns").Create(s).Error
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*models.InterviewSession, error) {
	var row models.InterviewSession
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *sessionRepo) Update(ctx context.Context, s *models.InterviewSession) error {
	next := *s
	next.Version = s.Version + 1
	next.Turns = nil

	res := r.db.WithContext(ctx).
		Model(&next).
		Where("version = ?", s.Version).
		Select(mutableColumns).
		Updates(&next)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrConcurrentUpdate
	}
	s.Version = next.Version
	return nil
}

// ListByOwner returns every session of the owner, newest first.
func (r *sessionRepo) ListByOwner(ctx context.Context, ownerID string) ([]models.InterviewSession, error) {
	var rows []models.InterviewSession
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}

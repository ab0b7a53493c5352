package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/bcllcc/MockMate/internal/models"
	"github.com/bcllcc/MockMate/internal/utils"
)

type TurnRepository interface {
	Insert(ctx context.Context, turn *models.InterviewTurn) error
	ListBySession(ctx context.Context, sessionID string) ([]models.InterviewTurn, error)
	CountBySession(ctx context.Context, sessionID string) (int64, error)
}

type turnRepo struct {
	db *gorm.DB
}

func NewTurnRepo(db *gorm.DB) TurnRepository {
	return &turnRepo{db: db}
}

// Insert appends a turn. A duplicate (session_id, sequence) means another
// writer already recorded this turn.
func (r *turnRepo) Insert(ctx context.Context, turn *models.InterviewTurn) error {
	err := r.db.WithContext(ctx).Create(turn).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return utils.ErrConcurrentUpdate
	}
	return err
}

func (r *turnRepo) ListBySession(ctx context.Context, sessionID string) ([]models.InterviewTurn, error) {
	var rows []models.InterviewTurn
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("sequence ASC").
		Find(&rows).Error
	return rows, err
}

func (r *turnRepo) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.InterviewTurn{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error
	return count, err
}

package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/bcllcc/MockMate/internal/models"
)

const AuditCollection = "llm_audit"

type AuditRepository interface {
	Insert(ctx context.Context, e *models.LLMAuditEntry) error
}

type auditRepo struct {
	col *mongo.Collection
}

func NewAuditRepo(db *mongo.Database) AuditRepository {
	return &auditRepo{col: db.Collection(AuditCollection)}
}

func (r *auditRepo) Insert(ctx context.Context, e *models.LLMAuditEntry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.ExpiresAt.IsZero() {
		e.ExpiresAt = e.Timestamp.Add(30 * 24 * time.Hour)
	}
	_, err := r.col.InsertOne(ctx, e)
	return err
}

package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/luct-edu/lecture-reporting-service/internal/models"
	"github.com/luct-edu/lecture-reporting-service/internal/repositories"
)

type DomainEventPostgreSQL struct {
	db *gorm.DB
}

func NewDomainEventPostgreSQL(db *gorm.DB) repositories.DomainEventRepository {
	return &DomainEventPostgreSQL{db: db}
}

// Record stores an event once; replays of the same event id are ignored
func (d *DomainEventPostgreSQL) Record(ctx context.Context, tx *gorm.DB, record *models.DomainEventRecord) error {
	db := d.db
	if tx != nil {
		db = tx
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		Create(record).Error
	if err != nil {
		return fmt.Errorf("failed to record domain event: %w", err)
	}
	return nil
}

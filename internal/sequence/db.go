package sequence

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DB keeps counters in the daily_sequences table. The increment is a
// single UPDATE, so concurrent transactions queue on the row lock.
type DB struct {
	db *gorm.DB
}

func NewDB(db *gorm.DB) *DB {
	return &DB{db: db}
}

func (s *DB) Next(ctx context.Context, day string, seed SeedFunc) (int64, error) {
	if err := s.ensure(ctx, day, seed); err != nil {
		return 0, err
	}

	var value int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.DailySequence{}).
			Where("day = ?", day).
			Update("value", gorm.Expr("value + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("sequence row for %s vanished", day)
		}

		var row models.DailySequence
		if err := tx.Where("day = ?", day).First(&row).Error; err != nil {
			return err
		}
		value = row.Value
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence %s: %w", day, err)
	}
	return value, nil
}

func (s *DB) Advance(ctx context.Context, day string, floor int64) error {
	return s.db.WithContext(ctx).Model(&models.DailySequence{}).
		Where("day = ? AND value < ?", day, floor).
		Update("value", floor).Error
}

// ensure creates the day's row on first use. Racing creators both seed;
// the loser's insert is ignored.
func (s *DB) ensure(ctx context.Context, day string, seed SeedFunc) error {
	var row models.DailySequence
	err := s.db.WithContext(ctx).Where("day = ?", day).First(&row).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to read sequence %s: %w", day, err)
	}

	var start int64
	if seed != nil {
		if start, err = seed(ctx); err != nil {
			return fmt.Errorf("failed to seed sequence %s: %w", day, err)
		}
	}

	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.DailySequence{Day: day, Value: start}).Error
}

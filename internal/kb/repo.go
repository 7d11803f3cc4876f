package kb

import (
	"context"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) ListActive(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *Repo) GetByID(ctx context.Context, id uint64) (*Entry, error) {
	var e Entry
	if err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// ReplaceActive deactivates the current active set and inserts the new batch
// in a single transaction (full-replace ingestion semantics).
func (r *Repo) ReplaceActive(ctx context.Context, entries []Entry) (int64, error) {
	var deactivated int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Entry{}).
			Where("is_active = ?", true).
			Update("is_active", false)
		if res.Error != nil {
			return res.Error
		}
		deactivated = res.RowsAffected

		if len(entries) == 0 {
			return nil
		}
		return tx.Create(&entries).Error
	})
	if err != nil {
		return 0, err
	}
	return deactivated, nil
}

func (r *Repo) Deactivate(ctx context.Context, id uint64) error {
	res := r.db.WithContext(ctx).Model(&Entry{}).
		Where("id = ?", id).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repo) DeactivateAll(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Model(&Entry{}).
		Where("is_active = ?", true).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}

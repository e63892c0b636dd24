package localdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/etnz/pocket"
	"github.com/etnz/pocket/date"
	"gorm.io/gorm"
)

// Store is a pocket.LocalStore on a gorm database.
type Store struct {
	DB *gorm.DB
}

func NewStore(db *gorm.DB) *Store { return &Store{DB: db} }

func (s *Store) list(query *gorm.DB) ([]pocket.Entry, error) {
	var rows []entry
	if err := query.Order("timestamp, id").Find(&rows).Error; err != nil {
		return nil, failure("list entries", err)
	}
	list := make([]pocket.Entry, 0, len(rows))
	for _, row := range rows {
		e, err := row.decode()
		if err != nil {
			return nil, failure("decode entry", err)
		}
		list = append(list, e)
	}
	return list, nil
}

func (s *Store) ListByOwner(ctx context.Context, owner string) ([]pocket.Entry, error) {
	return s.list(s.DB.WithContext(ctx).Where("owner_id = ?", owner))
}

func (s *Store) ListAll(ctx context.Context) ([]pocket.Entry, error) {
	return s.list(s.DB.WithContext(ctx))
}

func (s *Store) Get(ctx context.Context, id string) (pocket.Entry, error) {
	var row entry
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pocket.Entry{}, fmt.Errorf("entry %q: %w", id, pocket.ErrNotFound)
	}
	if err != nil {
		return pocket.Entry{}, failure("get entry", err)
	}
	e, err := row.decode()
	if err != nil {
		return pocket.Entry{}, failure("decode entry", err)
	}
	return e, nil
}

func (s *Store) Put(ctx context.Context, e pocket.Entry) error {
	if e.ID == "" {
		return fmt.Errorf("cannot store entry %q: %w: missing id", e.Name, pocket.ErrMalformedRecord)
	}
	row := toEntry(e)
	if err := s.DB.WithContext(ctx).Save(&row).Error; err != nil {
		return failure("put entry", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.DB.WithContext(ctx).Where("id = ?", id).Delete(&entry{}).Error; err != nil {
		return failure("delete entry", err)
	}
	return nil
}

func (s *Store) ClearByOwner(ctx context.Context, owner string) error {
	if err := s.DB.WithContext(ctx).Where("owner_id = ?", owner).Delete(&entry{}).Error; err != nil {
		return failure("clear entries", err)
	}
	return nil
}

// Registry is a pocket.ChargeRegistry on a gorm database.
type Registry struct {
	DB *gorm.DB
}

func NewRegistry(db *gorm.DB) *Registry { return &Registry{DB: db} }

func (r *Registry) ListAll(ctx context.Context) ([]pocket.ScheduledCharge, error) {
	var rows []charge
	if err := r.DB.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, failure("list charges", err)
	}
	list := make([]pocket.ScheduledCharge, 0, len(rows))
	for _, row := range rows {
		c, err := row.decode()
		if err != nil {
			return nil, failure("decode charge", err)
		}
		list = append(list, c)
	}
	return list, nil
}

func (r *Registry) Get(ctx context.Context, id string) (pocket.ScheduledCharge, error) {
	var row charge
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pocket.ScheduledCharge{}, fmt.Errorf("charge %q: %w", id, pocket.ErrNotFound)
	}
	if err != nil {
		return pocket.ScheduledCharge{}, failure("get charge", err)
	}
	c, err := row.decode()
	if err != nil {
		return pocket.ScheduledCharge{}, failure("decode charge", err)
	}
	return c, nil
}

func (r *Registry) Put(ctx context.Context, c pocket.ScheduledCharge) error {
	if c.ID == "" {
		return fmt.Errorf("cannot store charge %q: %w: missing id", c.Name, pocket.ErrMalformedRecord)
	}
	row := toCharge(c)
	if err := r.DB.WithContext(ctx).Save(&row).Error; err != nil {
		return failure("put charge", err)
	}
	return nil
}

func (r *Registry) Delete(ctx context.Context, id string) error {
	if err := r.DB.WithContext(ctx).Where("id = ?", id).Delete(&charge{}).Error; err != nil {
		return failure("delete charge", err)
	}
	return nil
}

func (r *Registry) UpdateLastMaterialized(ctx context.Context, id string, on date.Date) error {
	res := r.DB.WithContext(ctx).Model(&charge{}).Where("id = ?", id).Update("last_materialized", formatDate(on))
	if res.Error != nil {
		return failure("advance charge", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("charge %q: %w", id, pocket.ErrNotFound)
	}
	return nil
}

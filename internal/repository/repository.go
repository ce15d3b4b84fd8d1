package repository

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// ErrInvalidPage is returned by FindPage for a non-positive limit, a
// negative offset or a sort field the record does not have.
var ErrInvalidPage = errors.New("invalid page request")

const defaultBatchSize = 100

// Entity is a record whose identifier is assigned by the store on insert.
// The zero ID means "not yet persisted".
type Entity[ID comparable] interface {
	GetID() ID
}

// PageRequest selects one window of records. Sort names a column or field;
// empty sorts by primary key.
type PageRequest struct {
	Offset int
	Limit  int
	Sort   string
	Desc   bool
}

// Page is one window of records plus the total row count.
type Page[T any] struct {
	Items  []T
	Total  int64
	Offset int
	Limit  int
}

// Repository is the generic create/read/update/delete surface over a record
// type and its identifier type.
type Repository[T Entity[ID], ID comparable] interface {
	// Save inserts when the ID is zero and updates otherwise. It returns the
	// persisted record; on update created_at keeps its original value.
	Save(ctx context.Context, entity *T) (*T, error)
	// SaveAll saves every entity in one transaction.
	SaveAll(ctx context.Context, entities []*T) ([]*T, error)
	FindByID(ctx context.Context, id ID) (*T, error)
	ExistsByID(ctx context.Context, id ID) (bool, error)
	// FindAll runs a fresh query on every call, ordered by primary key.
	FindAll(ctx context.Context) ([]T, error)
	FindAllByID(ctx context.Context, ids []ID) ([]T, error)
	FindPage(ctx context.Context, req PageRequest) (Page[T], error)
	// Iterate walks all records in primary-key batches and stops at the
	// first error returned by fn.
	Iterate(ctx context.Context, batchSize int, fn func(batch []T) error) error
	Count(ctx context.Context) (int64, error)
	// DeleteByID returns ErrNotFound when no row has the given id.
	DeleteByID(ctx context.Context, id ID) error
	Delete(ctx context.Context, entity *T) error
}

type gormRepository[T Entity[ID], ID comparable] struct {
	db *gorm.DB
	tx TransactionManager

	once      sync.Once
	schema    *schema.Schema
	schemaErr error
}

// NewGormRepository returns a Repository backed by db. Every method runs
// inside the transaction carried by ctx, if any.
func NewGormRepository[T Entity[ID], ID comparable](db *gorm.DB) Repository[T, ID] {
	return &gormRepository[T, ID]{db: db, tx: NewTransactionManager(db)}
}

func (r *gormRepository[T, ID]) meta() (*schema.Schema, error) {
	r.once.Do(func() {
		stmt := &gorm.Statement{DB: r.db}
		if err := stmt.Parse(new(T)); err != nil {
			r.schemaErr = fmt.Errorf("parse schema: %w", err)
			return
		}
		if stmt.Schema.PrioritizedPrimaryField == nil {
			r.schemaErr = fmt.Errorf("%s: no primary key", stmt.Schema.Table)
			return
		}
		r.schema = stmt.Schema
	})
	return r.schema, r.schemaErr
}

func pkEq(s *schema.Schema, id any) clause.Eq {
	return clause.Eq{Column: clause.Column{Name: s.PrioritizedPrimaryField.DBName}, Value: id}
}

func (r *gormRepository[T, ID]) Save(ctx context.Context, entity *T) (*T, error) {
	s, err := r.meta()
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, fmt.Errorf("%s: nil record", s.Table)
	}
	if err := validateEntity(entity, s.Table); err != nil {
		return nil, err
	}

	db := GetDB(ctx, r.db)

	var zero ID
	id := (*entity).GetID()
	if id == zero {
		if err := clearCreateStamps(ctx, s, entity); err != nil {
			return nil, err
		}
		if err := db.Create(entity).Error; err != nil {
			return nil, translateError(err, s.Table)
		}
		return r.reload(db, s, entity)
	}

	// Model == Dest: the primary key becomes the WHERE clause and
	// non-updatable columns (created_at) are skipped even with Select("*").
	res := db.Model(entity).Select("*").Updates(entity)
	if res.Error != nil {
		return nil, translateError(res.Error, s.Table)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%s %v: %w", s.Table, id, ErrNotFound)
	}

	return r.reload(db, s, entity)
}

// reload replaces entity with the row as stored, so values the engine
// rounded or defaulted are what the caller sees.
func (r *gormRepository[T, ID]) reload(db *gorm.DB, s *schema.Schema, entity *T) (*T, error) {
	var stored T
	if err := db.Where(pkEq(s, (*entity).GetID())).First(&stored).Error; err != nil {
		return nil, translateError(err, s.Table)
	}
	*entity = stored
	return entity, nil
}

// clearCreateStamps zeroes autoCreateTime fields so the store, not the
// caller, decides the creation instant.
func clearCreateStamps(ctx context.Context, s *schema.Schema, entity any) error {
	rv := reflect.ValueOf(entity).Elem()
	for _, field := range s.Fields {
		if field.AutoCreateTime == 0 {
			continue
		}
		if err := field.Set(ctx, rv, reflect.Zero(field.FieldType).Interface()); err != nil {
			return fmt.Errorf("%s: reset %s: %w", s.Table, field.Name, err)
		}
	}
	return nil
}

func (r *gormRepository[T, ID]) SaveAll(ctx context.Context, entities []*T) ([]*T, error) {
	saved := make([]*T, 0, len(entities))
	err := r.tx.RunInTx(ctx, func(txCtx context.Context) error {
		for _, e := range entities {
			out, err := r.Save(txCtx, e)
			if err != nil {
				return err
			}
			saved = append(saved, out)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (r *gormRepository[T, ID]) FindByID(ctx context.Context, id ID) (*T, error) {
	s, err := r.meta()
	if err != nil {
		return nil, err
	}

	var out T
	if err := GetDB(ctx, r.db).Where(pkEq(s, id)).First(&out).Error; err != nil {
		return nil, translateError(err, s.Table)
	}
	return &out, nil
}

func (r *gormRepository[T, ID]) ExistsByID(ctx context.Context, id ID) (bool, error) {
	s, err := r.meta()
	if err != nil {
		return false, err
	}

	var count int64
	if err := GetDB(ctx, r.db).Model(new(T)).Where(pkEq(s, id)).Count(&count).Error; err != nil {
		return false, translateError(err, s.Table)
	}
	return count > 0, nil
}

func (r *gormRepository[T, ID]) FindAll(ctx context.Context) ([]T, error) {
	s, err := r.meta()
	if err != nil {
		return nil, err
	}

	items := make([]T, 0)
	if err := GetDB(ctx, r.db).Order(clause.OrderByColumn{
		Column: clause.Column{Name: s.PrioritizedPrimaryField.DBName},
	}).Find(&items).Error; err != nil {
		return nil, translateError(err, s.Table)
	}
	return items, nil
}

func (r *gormRepository[T, ID]) FindAllByID(ctx context.Context, ids []ID) ([]T, error) {
	s, err := r.meta()
	if err != nil {
		return nil, err
	}

	items := make([]T, 0, len(ids))
	if len(ids) == 0 {
		return items, nil
	}

	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = id
	}

	pk := clause.Column{Name: s.PrioritizedPrimaryField.DBName}
	if err := GetDB(ctx, r.db).
		Where(clause.IN{Column: pk, Values: values}).
		Order(clause.OrderByColumn{Column: pk}).
		Find(&items).Error; err != nil {
		return nil, translateError(err, s.Table)
	}
	return items, nil
}

func (r *gormRepository[T, ID]) FindPage(ctx context.Context, req PageRequest) (Page[T], error) {
	s, err := r.meta()
	if err != nil {
		return Page[T]{}, err
	}
	if req.Limit <= 0 || req.Offset < 0 {
		return Page[T]{}, fmt.Errorf("%s: %w: offset=%d limit=%d", s.Table, ErrInvalidPage, req.Offset, req.Limit)
	}

	pk := s.PrioritizedPrimaryField.DBName
	sortCol := pk
	if req.Sort != "" {
		field := s.LookUpField(req.Sort)
		if field == nil || field.DBName == "" {
			return Page[T]{}, fmt.Errorf("%s: %w: unknown sort field %q", s.Table, ErrInvalidPage, req.Sort)
		}
		sortCol = field.DBName
	}

	db := GetDB(ctx, r.db)

	var total int64
	if err := db.Model(new(T)).Count(&total).Error; err != nil {
		return Page[T]{}, translateError(err, s.Table)
	}

	query := db.Order(clause.OrderByColumn{Column: clause.Column{Name: sortCol}, Desc: req.Desc})
	if sortCol != pk {
		// Tie-break so pages never overlap.
		query = query.Order(clause.OrderByColumn{Column: clause.Column{Name: pk}, Desc: req.Desc})
	}

	items := make([]T, 0, req.Limit)
	if err := query.Offset(req.Offset).Limit(req.Limit).Find(&items).Error; err != nil {
		return Page[T]{}, translateError(err, s.Table)
	}

	return Page[T]{Items: items, Total: total, Offset: req.Offset, Limit: req.Limit}, nil
}

func (r *gormRepository[T, ID]) Iterate(ctx context.Context, batchSize int, fn func(batch []T) error) error {
	s, err := r.meta()
	if err != nil {
		return err
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	var batch []T
	res := GetDB(ctx, r.db).FindInBatches(&batch, batchSize, func(_ *gorm.DB, _ int) error {
		return fn(batch)
	})
	if res.Error != nil {
		return translateError(res.Error, s.Table)
	}
	return nil
}

func (r *gormRepository[T, ID]) Count(ctx context.Context) (int64, error) {
	s, err := r.meta()
	if err != nil {
		return 0, err
	}

	var total int64
	if err := GetDB(ctx, r.db).Model(new(T)).Count(&total).Error; err != nil {
		return 0, translateError(err, s.Table)
	}
	return total, nil
}

func (r *gormRepository[T, ID]) DeleteByID(ctx context.Context, id ID) error {
	s, err := r.meta()
	if err != nil {
		return err
	}

	res := GetDB(ctx, r.db).Where(pkEq(s, id)).Delete(new(T))
	if res.Error != nil {
		return translateError(res.Error, s.Table)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s %v: %w", s.Table, id, ErrNotFound)
	}
	return nil
}

func (r *gormRepository[T, ID]) Delete(ctx context.Context, entity *T) error {
	if entity == nil {
		return fmt.Errorf("delete nil record: %w", ErrNotFound)
	}
	return r.DeleteByID(ctx, (*entity).GetID())
}

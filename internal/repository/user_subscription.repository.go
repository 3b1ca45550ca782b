package repository

import (
	"context"
	"errors"
	"time"

	"github.com/farewatch/fare-gateway/internal/model"
	"github.com/farewatch/fare-gateway/pkg/pg"
	"gorm.io/gorm"
)

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	// ErrSubscriptionConflict is returned when an identical subscription
	// row already exists for the account.
	ErrSubscriptionConflict = errors.New("subscription already exists")
)

type UserSubscriptionRepository struct {
	*pg.DB
}

func NewUserSubscriptionRepository(db *pg.DB) *UserSubscriptionRepository {
	return &UserSubscriptionRepository{
		db,
	}
}

func (r *UserSubscriptionRepository) Get(ctx context.Context, id int64) (*model.UserSubscription, error) {
	var entity UserSubscriptionEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return toUserSubscriptionModel(&entity), nil
}

// FindByKey looks up the row for the exact subscription key, active or not.
func (r *UserSubscriptionRepository) FindByKey(ctx context.Context, accountID, globalSubscriptionID int64, dateFrom, dateTo time.Time) (*model.UserSubscription, error) {
	var entity UserSubscriptionEntity
	err := r.Write(ctx).WithContext(ctx).
		Where("account_id = ? AND global_subscription_id = ? AND date_from = ? AND date_to = ?",
			accountID, globalSubscriptionID, dateFrom, dateTo).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return toUserSubscriptionModel(&entity), nil
}

// Create inserts the row inside a nested transaction. Under an enclosing
// transaction that nesting becomes a savepoint, so a key collision rolls
// back just the insert and the caller can go on to adopt the existing row
// without aborting the whole postgres transaction.
func (r *UserSubscriptionRepository) Create(ctx context.Context, sub *model.UserSubscription) error {
	entity := toUserSubscriptionEntity(sub)
	err := r.Write(ctx).WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(entity).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSubscriptionConflict
		}
		return err
	}
	sub.ID = entity.ID
	sub.CreatedAt = entity.CreatedAt
	sub.UpdatedAt = entity.UpdatedAt
	return nil
}

// Reactivate flips an inactive row back to active and refreshes its plan.
// No new tax is charged for a reactivation; the initial tax stays tied to
// the row, not to its activity.
func (r *UserSubscriptionRepository) Reactivate(ctx context.Context, id int64, plan model.Plan) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&UserSubscriptionEntity{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"active": true,
			"plan":   string(plan),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

// Update rewrites the route, date range and plan of an existing row. Moving
// it onto a key the account already holds trips the unique index and is
// reported as a conflict.
func (r *UserSubscriptionRepository) Update(ctx context.Context, sub *model.UserSubscription) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&UserSubscriptionEntity{}).
		Where("id = ?", sub.ID).
		Updates(map[string]interface{}{
			"global_subscription_id": sub.GlobalSubscriptionID,
			"date_from":              sub.DateFrom,
			"date_to":                sub.DateTo,
			"plan":                   string(sub.Plan),
		})
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return ErrSubscriptionConflict
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

// Deactivate returns false with no error when the row exists but is
// already inactive, so the caller can report that distinctly.
func (r *UserSubscriptionRepository) Deactivate(ctx context.Context, id int64) (bool, error) {
	result := r.Write(ctx).WithContext(ctx).
		Model(&UserSubscriptionEntity{}).
		Where("id = ? AND active = ?", id, true).
		Update("active", false)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	var entity UserSubscriptionEntity
	err := r.Write(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrSubscriptionNotFound
		}
		return false, err
	}
	return false, nil
}

func (r *UserSubscriptionRepository) DeactivateAll(ctx context.Context, accountID int64) (int64, error) {
	result := r.Write(ctx).WithContext(ctx).
		Model(&UserSubscriptionEntity{}).
		Where("account_id = ? AND active = ?", accountID, true).
		Update("active", false)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

type subscriptionSummaryRow struct {
	ID        int64     `gorm:"column:id"`
	FlyFrom   string    `gorm:"column:fly_from"`
	FlyTo     string    `gorm:"column:fly_to"`
	DateFrom  time.Time `gorm:"column:date_from"`
	DateTo    time.Time `gorm:"column:date_to"`
	Plan      string    `gorm:"column:plan"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// ListActive lists the account's active subscriptions, most recently
// touched first. FlyFrom/FlyTo filters match the airport name or its IATA
// code.
func (r *UserSubscriptionRepository) ListActive(ctx context.Context, f model.SubscriptionFilter) ([]*model.SubscriptionSummary, int64, error) {
	query := r.Read(ctx).WithContext(ctx).
		Table("user_subscriptions AS us").
		Select(`
            us.id         AS id,
            a_from.name   AS fly_from,
            a_to.name     AS fly_to,
            us.date_from  AS date_from,
            us.date_to    AS date_to,
            us.plan       AS plan,
            us.updated_at AS updated_at
        `).
		Joins("INNER JOIN global_subscriptions AS gs ON gs.id = us.global_subscription_id").
		Joins("INNER JOIN airports AS a_from ON a_from.id = gs.airport_from_id").
		Joins("INNER JOIN airports AS a_to ON a_to.id = gs.airport_to_id").
		Where("us.account_id = ? AND us.active = ?", f.AccountID, true)

	if f.FlyFrom != nil && *f.FlyFrom != "" {
		query = query.Where("a_from.name = ? OR a_from.iata_code = ?", *f.FlyFrom, *f.FlyFrom)
	}
	if f.FlyTo != nil && *f.FlyTo != "" {
		query = query.Where("a_to.name = ? OR a_to.iata_code = ?", *f.FlyTo, *f.FlyTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var rows []*subscriptionSummaryRow
	err := query.
		Order("us.updated_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).
		Error
	if err != nil {
		return nil, 0, err
	}

	summaries := make([]*model.SubscriptionSummary, len(rows))
	for i, row := range rows {
		summaries[i] = &model.SubscriptionSummary{
			ID:        row.ID,
			FlyFrom:   row.FlyFrom,
			FlyTo:     row.FlyTo,
			DateFrom:  row.DateFrom,
			DateTo:    row.DateTo,
			Plan:      model.Plan(row.Plan),
			UpdatedAt: row.UpdatedAt,
		}
	}
	return summaries, total, nil
}

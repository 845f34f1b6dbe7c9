package repository

import (
	"context"
	"errors"
	"time"

	"campus/internal/database"
	"campus/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MembershipRepository persists memberships (user_variants) and subscriptions.
type MembershipRepository interface {
	// WithTx runs fn against a repository bound to a single transaction.
	WithTx(ctx context.Context, fn func(repo MembershipRepository) error) error

	VariantExists(ctx context.Context, variantID uint) (bool, error)
	UserExists(ctx context.Context, userID uint) (bool, error)
	GetRole(ctx context.Context, userID, variantID uint) (models.Role, bool, error)
	HasAdmin(ctx context.Context, variantID uint) (bool, error)
	UpsertRole(ctx context.Context, userID, variantID uint, role models.Role) (*models.Membership, bool, error)
	UpdateRole(ctx context.Context, userID, variantID uint, role models.Role) (*models.Membership, error)
	EnsureSubscriber(ctx context.Context, userID, variantID uint) (*models.Membership, error)
	ListForUser(ctx context.Context, userID uint) ([]models.Membership, error)

	CreateSubscription(ctx context.Context, sub *models.Subscription) error
	SetSubscriptionState(ctx context.Context, userID, subscriptionID uint, state models.SubscriptionState) error
	ListSubscriptionsForUser(ctx context.Context, userID uint) ([]models.SubscriptionWithRole, error)
	ListSubscriptions(ctx context.Context) ([]models.Subscription, error)
}

type membershipRepository struct {
	db *gorm.DB
}

// NewMembershipRepository returns a new MembershipRepository implementation.
func NewMembershipRepository(db *gorm.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

func (r *membershipRepository) WithTx(ctx context.Context, fn func(repo MembershipRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&membershipRepository{db: tx})
	})
}

func (r *membershipRepository) VariantExists(ctx context.Context, variantID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Variant{}).Where("id = ?", variantID).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *membershipRepository) UserExists(ctx context.Context, userID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// GetRole returns the user's role in the variant and whether a membership exists.
func (r *membershipRepository) GetRole(ctx context.Context, userID, variantID uint) (models.Role, bool, error) {
	var m models.Membership
	err := r.db.WithContext(ctx).
		Select("role").
		Where("user_id = ? AND variant_id = ?", userID, variantID).
		Take(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, models.NewInternalError(err)
	}
	return m.Role, true, nil
}

func (r *membershipRepository) HasAdmin(ctx context.Context, variantID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Membership{}).
		Where("variant_id = ? AND role = ?", variantID, models.RoleAdmin).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// UpsertRole inserts the membership or overwrites the role of the existing (user, variant) row
// with a single INSERT ... ON CONFLICT DO UPDATE. created reports whether the row was new.
func (r *membershipRepository) UpsertRole(ctx context.Context, userID, variantID uint, role models.Role) (*models.Membership, bool, error) {
	var (
		result  models.Membership
		created bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.Membership{}).
			Where("user_id = ? AND variant_id = ?", userID, variantID).
			Count(&existing).Error; err != nil {
			return err
		}
		created = existing == 0

		now := time.Now()
		membership := models.Membership{
			UserID:    userID,
			VariantID: variantID,
			Role:      role,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "variant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role", "updated_at"}),
		}).Create(&membership).Error; err != nil {
			return err
		}

		return tx.Where("user_id = ? AND variant_id = ?", userID, variantID).First(&result).Error
	})
	switch {
	case err == nil:
	case database.IsUniqueViolation(err):
		// a concurrent writer took the (user, variant) pair outside the upsert path
		return nil, false, models.NewConflictError(models.MsgMembershipExists, err)
	case database.IsForeignKeyViolation(err):
		return nil, false, models.ErrUnknownUser
	default:
		return nil, false, models.NewInternalError(err)
	}
	return &result, created, nil
}

// UpdateRole changes the role of an existing membership only.
func (r *membershipRepository) UpdateRole(ctx context.Context, userID, variantID uint, role models.Role) (*models.Membership, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Membership{}).
		Where("user_id = ? AND variant_id = ?", userID, variantID).
		Updates(map[string]any{"role": role, "updated_at": time.Now()})
	if res.Error != nil {
		return nil, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, models.ErrMembershipNotFound
	}

	var m models.Membership
	if err := r.db.WithContext(ctx).Where("user_id = ? AND variant_id = ?", userID, variantID).First(&m).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return &m, nil
}

// EnsureSubscriber creates a suscriptor membership unless one already exists.
// An existing row, admin included, is left untouched.
func (r *membershipRepository) EnsureSubscriber(ctx context.Context, userID, variantID uint) (*models.Membership, error) {
	membership := models.Membership{
		UserID:    userID,
		VariantID: variantID,
		Role:      models.RoleSubscriber,
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "variant_id"}},
		DoNothing: true,
	}).Create(&membership).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	var m models.Membership
	if err := r.db.WithContext(ctx).Where("user_id = ? AND variant_id = ?", userID, variantID).First(&m).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return &m, nil
}

func (r *membershipRepository) ListForUser(ctx context.Context, userID uint) ([]models.Membership, error) {
	var memberships []models.Membership
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("variant_id ASC").
		Find(&memberships).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return memberships, nil
}

func (r *membershipRepository) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	if sub.State == "" {
		sub.State = models.SubscriptionActive
	}
	if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return models.NewConflictError(models.MsgAlreadySubscribed, err)
		}
		return models.NewInternalError(err)
	}
	return nil
}

// SetSubscriptionState updates the state of a subscription owned by userID.
func (r *membershipRepository) SetSubscriptionState(ctx context.Context, userID, subscriptionID uint, state models.SubscriptionState) error {
	res := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ? AND user_id = ?", subscriptionID, userID).
		Updates(map[string]any{"state": state, "updated_at": time.Now()})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrSubscriptionNotFound
	}
	return nil
}

func (r *membershipRepository) ListSubscriptionsForUser(ctx context.Context, userID uint) ([]models.SubscriptionWithRole, error) {
	var rows []models.SubscriptionWithRole
	if err := r.db.WithContext(ctx).
		Table("subscriptions").
		Select(`subscriptions.id, subscriptions.user_id, subscriptions.variant_id, subscriptions.state,
			subscriptions.created_at, COALESCE(user_variants.role, '') AS role, COALESCE(variants.name, '') AS variant_name`).
		Joins("LEFT JOIN user_variants ON user_variants.user_id = subscriptions.user_id AND user_variants.variant_id = subscriptions.variant_id").
		Joins("LEFT JOIN variants ON variants.id = subscriptions.variant_id").
		Where("subscriptions.user_id = ?", userID).
		Order("subscriptions.id ASC").
		Scan(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}

func (r *membershipRepository) ListSubscriptions(ctx context.Context) ([]models.Subscription, error) {
	var subs []models.Subscription
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&subs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return subs, nil
}

package service

import (
	"context"
	"fmt"

	"campus/internal/middleware"
	"campus/internal/models"
	"campus/internal/observability"
	"campus/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const membershipServiceName = "MembershipService"

// Authority answers authorization questions about a user's role in a variant.
type Authority interface {
	IsAdmin(ctx context.Context, userID, variantID uint) (bool, error)
	HasAccess(ctx context.Context, userID, variantID uint) (bool, error)
}

// SubscriptionResult is returned by CreateSubscription.
type SubscriptionResult struct {
	SubscriptionID uint
	Membership     *models.Membership
}

// GrantResult is returned by GrantOrUpdateRole.
type GrantResult struct {
	Membership *models.Membership
	Created    bool
}

// MembershipService owns subscriptions and roles. All state is read fresh from the store.
type MembershipService struct {
	repo repository.MembershipRepository
}

func NewMembershipService(repo repository.MembershipRepository) *MembershipService {
	return &MembershipService{repo: repo}
}

// CreateSubscription enrolls userID in variantID and makes them a subscriber
// unless they already hold a role there.
func (s *MembershipService) CreateSubscription(ctx context.Context, userID, variantID uint) (result *SubscriptionResult, err error) {
	ctx, span := observability.StartServiceSpan(ctx, membershipServiceName, "CreateSubscription",
		attribute.Int64("variant.id", int64(variantID)))
	defer func() { observability.EndSpan(span, err) }()

	if variantID == 0 {
		return nil, models.ErrMissingFields
	}

	err = s.repo.WithTx(ctx, func(tx repository.MembershipRepository) error {
		exists, err := tx.VariantExists(ctx, variantID)
		if err != nil {
			return err
		}
		if !exists {
			return models.ErrVariantNotFound
		}

		sub := &models.Subscription{UserID: userID, VariantID: variantID, State: models.SubscriptionActive}
		if err := tx.CreateSubscription(ctx, sub); err != nil {
			return err
		}
		membership, err := tx.EnsureSubscriber(ctx, userID, variantID)
		if err != nil {
			return err
		}
		result = &SubscriptionResult{SubscriptionID: sub.ID, Membership: membership}
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.MembershipChanges.WithLabelValues("subscription_created").Inc()
	middleware.Logger.InfoContext(ctx, "subscription created",
		"user_id", userID, "variant_id", variantID, "subscription_id", result.SubscriptionID)
	return result, nil
}

// SetSubscriptionState moves one of the caller's subscriptions between activa and inactiva.
func (s *MembershipService) SetSubscriptionState(ctx context.Context, userID, subscriptionID uint, state string) error {
	parsed, ok := models.ParseSubscriptionState(state)
	if !ok {
		return models.ErrInvalidState
	}
	if subscriptionID == 0 {
		return models.ErrMissingFields
	}
	if err := s.repo.SetSubscriptionState(ctx, userID, subscriptionID, parsed); err != nil {
		return err
	}
	observability.MembershipChanges.WithLabelValues("subscription_" + string(parsed)).Inc()
	return nil
}

// GrantOrUpdateRole sets targetUserID's role in variantID, creating the membership if needed.
func (s *MembershipService) GrantOrUpdateRole(ctx context.Context, actorID, targetUserID, variantID uint, role string) (result *GrantResult, err error) {
	ctx, span := observability.StartServiceSpan(ctx, membershipServiceName, "GrantOrUpdateRole",
		attribute.Int64("variant.id", int64(variantID)),
		attribute.String("role", role))
	defer func() { observability.EndSpan(span, err) }()

	parsed, err := parseGrant(targetUserID, variantID, role)
	if err != nil {
		return nil, err
	}

	err = s.repo.WithTx(ctx, func(tx repository.MembershipRepository) error {
		if err := authorizeGrant(ctx, tx, actorID, targetUserID, variantID, parsed); err != nil {
			return err
		}
		membership, created, err := tx.UpsertRole(ctx, targetUserID, variantID, parsed)
		if err != nil {
			return err
		}
		result = &GrantResult{Membership: membership, Created: created}
		return nil
	})
	if err != nil {
		return nil, err
	}

	kind := "role_updated"
	if result.Created {
		kind = "role_granted"
	}
	observability.MembershipChanges.WithLabelValues(kind).Inc()
	middleware.Logger.InfoContext(ctx, "membership role set",
		"actor_id", actorID, "user_id", targetUserID, "variant_id", variantID,
		"role", string(parsed), "created", result.Created)
	return result, nil
}

// UpdateRole changes the role of an existing membership.
func (s *MembershipService) UpdateRole(ctx context.Context, actorID, targetUserID, variantID uint, role string) (*models.Membership, error) {
	parsed, err := parseGrant(targetUserID, variantID, role)
	if err != nil {
		return nil, err
	}

	var membership *models.Membership
	err = s.repo.WithTx(ctx, func(tx repository.MembershipRepository) error {
		if err := authorizeGrant(ctx, tx, actorID, targetUserID, variantID, parsed); err != nil {
			return err
		}
		m, err := tx.UpdateRole(ctx, targetUserID, variantID, parsed)
		if err != nil {
			return err
		}
		membership = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	observability.MembershipChanges.WithLabelValues("role_updated").Inc()
	return membership, nil
}

func parseGrant(targetUserID, variantID uint, role string) (models.Role, error) {
	parsed, ok := models.ParseRole(role)
	if !ok || targetUserID == 0 || variantID == 0 {
		return "", models.ErrInvalidRole
	}
	return parsed, nil
}

// authorizeGrant applies the grant policy: admins may grant anything in their
// variant, anyone may subscribe themselves, and a user may make themselves
// admin only of a variant that has no admin yet.
func authorizeGrant(ctx context.Context, repo repository.MembershipRepository, actorID, targetUserID, variantID uint, role models.Role) error {
	exists, err := repo.VariantExists(ctx, variantID)
	if err != nil {
		return err
	}
	if !exists {
		return models.ErrVariantNotFound
	}
	known, err := repo.UserExists(ctx, targetUserID)
	if err != nil {
		return err
	}
	if !known {
		return models.ErrUnknownUser
	}

	actorRole, ok, err := repo.GetRole(ctx, actorID, variantID)
	if err != nil {
		return err
	}
	if ok && actorRole == models.RoleAdmin {
		return nil
	}
	if actorID != targetUserID {
		return models.NewForbiddenError("only variant admins may assign roles to other users")
	}
	if role == models.RoleSubscriber {
		return nil
	}

	hasAdmin, err := repo.HasAdmin(ctx, variantID)
	if err != nil {
		return err
	}
	if hasAdmin {
		return models.NewForbiddenError(fmt.Sprintf("variant %d already has an admin", variantID))
	}
	return nil
}

// IsAdmin reports whether userID is admin of variantID.
func (s *MembershipService) IsAdmin(ctx context.Context, userID, variantID uint) (bool, error) {
	role, ok, err := s.repo.GetRole(ctx, userID, variantID)
	if err != nil {
		return false, err
	}
	return ok && role == models.RoleAdmin, nil
}

// IsSubscriber reports whether userID is a plain subscriber of variantID.
func (s *MembershipService) IsSubscriber(ctx context.Context, userID, variantID uint) (bool, error) {
	role, ok, err := s.repo.GetRole(ctx, userID, variantID)
	if err != nil {
		return false, err
	}
	return ok && role == models.RoleSubscriber, nil
}

// HasAccess reports whether userID is admin or subscriber of variantID.
func (s *MembershipService) HasAccess(ctx context.Context, userID, variantID uint) (bool, error) {
	_, ok, err := s.repo.GetRole(ctx, userID, variantID)
	return ok, err
}

func (s *MembershipService) ListForUser(ctx context.Context, userID uint) ([]models.Membership, error) {
	return s.repo.ListForUser(ctx, userID)
}

func (s *MembershipService) ListSubscriptionsForUser(ctx context.Context, userID uint) ([]models.SubscriptionWithRole, error) {
	return s.repo.ListSubscriptionsForUser(ctx, userID)
}

func (s *MembershipService) ListSubscriptions(ctx context.Context) ([]models.Subscription, error) {
	return s.repo.ListSubscriptions(ctx)
}

package service

import (
	"context"
	"fmt"
	"testing"

	"campus/internal/models"
	"campus/internal/repository"
	"campus/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMembershipService(t *testing.T) (*MembershipService, *fixture) {
	f := newFixture(t, 0)
	return f.members, f
}

func TestCreateSubscription(t *testing.T) {
	svc, f := newMembershipService(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "ana")
	variant := testutil.CreateVariant(t, f.db, "Math", "Morning")

	res, err := svc.CreateSubscription(ctx, user.ID, variant.ID)
	require.NoError(t, err)
	assert.NotZero(t, res.SubscriptionID)
	require.NotNil(t, res.Membership)
	assert.Equal(t, models.RoleSubscriber, res.Membership.Role)

	_, err = svc.CreateSubscription(ctx, user.ID, variant.ID)
	assert.ErrorIs(t, err, models.ErrAlreadySubscribed)
	assert.EqualValues(t, 1, countRows(t, f.db, &models.Subscription{}))
	assert.EqualValues(t, 1, countRows(t, f.db, &models.Membership{}))

	_, err = svc.CreateSubscription(ctx, user.ID, 9999)
	assert.ErrorIs(t, err, models.ErrVariantNotFound)
	_, err = svc.CreateSubscription(ctx, user.ID, 0)
	assert.ErrorIs(t, err, models.ErrMissingFields)
}

func TestCreateSubscription_KeepsAdminRole(t *testing.T) {
	svc, f := newMembershipService(t)
	ctx := context.Background()
	variant := testutil.CreateVariant(t, f.db, "Math", "Morning")
	admin := adminOf(t, f.db, "boss", variant.ID)

	res, err := svc.CreateSubscription(ctx, admin.ID, variant.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, res.Membership.Role)

	isAdmin, err := svc.IsAdmin(ctx, admin.ID, variant.ID)
	require.NoError(t, err)
	assert.True(t, isAdmin)
}

func TestSetSubscriptionState(t *testing.T) {
	svc, f := newMembershipService(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "ana")
	other := testutil.CreateUser(t, f.db, "eve")
	variant := testutil.CreateVariant(t, f.db, "Math", "Morning")

	res, err := svc.CreateSubscription(ctx, user.ID, variant.ID)
	require.NoError(t, err)

	require.NoError(t, svc.SetSubscriptionState(ctx, user.ID, res.SubscriptionID, "inactiva"))

	err = svc.SetSubscriptionState(ctx, user.ID, res.SubscriptionID, "bogus")
	assert.ErrorIs(t, err, models.ErrInvalidState)

	var sub models.Subscription
	require.NoError(t, f.db.First(&sub, res.SubscriptionID).Error)
	assert.Equal(t, models.SubscriptionInactive, sub.State)

	err = svc.SetSubscriptionState(ctx, other.ID, res.SubscriptionID, "activa")
	assert.ErrorIs(t, err, models.ErrSubscriptionNotFound)

	require.NoError(t, svc.SetSubscriptionState(ctx, user.ID, res.SubscriptionID, "activa"))
	require.NoError(t, f.db.First(&sub, res.SubscriptionID).Error)
	assert.Equal(t, models.SubscriptionActive, sub.State)
}

func TestGrantOrUpdateRole_LastGrantWins(t *testing.T) {
	svc, f := newMembershipService(t)
	ctx := context.Background()
	variant := testutil.CreateVariant(t, f.db, "Math", "Morning")
	admin := adminOf(t, f.db, "boss", variant.ID)
	target := testutil.CreateUser(t, f.db, "ana")

	roles := []string{"suscriptor", "admin", "suscriptor", "admin", "suscriptor"}
	for i, role := range roles {
		res, err := svc.GrantOrUpdateRole(ctx, admin.ID, target.ID, variant.ID, role)
		require.NoError(t, err)
		assert.Equal(t, i == 0, res.Created, "grant %d", i)
	}

	var rows []models.Membership
	require.NoError(t, f.db.Where("user_id = ? AND variant_id = ?", target.ID, variant.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, models.RoleSubscriber, rows[0].Role)
}

func TestGrantOrUpdateRole_Validation(t *testing.T) {
	svc, f := newMembershipService(t)
	ctx := context.Background()
	variant := testutil.CreateVariant(t, f.db, "Math", "Morning")
	admin := adminOf(t, f.db, "boss", variant.ID)

	_, err := svc.GrantOrUpdateRole(ctx, admin.ID, admin.ID, variant.ID, "owner")
	assert.ErrorIs(t, err, models.ErrInvalidRole)
	_, err = svc.GrantOrUpdateRole(ctx, admin.ID, 0, variant.ID, "admin")
	assert.ErrorIs(t, err, models.ErrInvalidRole)
	_, err = svc.GrantOrUpdateRole(ctx, admin.ID, admin.ID, 4242, "admin")
	assert.ErrorIs(t, err, models.ErrVariantNotFound)
}

func TestGrantOrUpdateRole_UnknownTargetUser(t *testing.T) {
	svc, f := newMembershipService(t)
	ctx := context.Background()
	variant := testutil.CreateVariant(t, f.db, "Math", "Morning")
	admin := adminOf(t, f.db, "boss", variant.ID)

	_, err := svc.GrantOrUpdateRole(ctx, admin.ID, 9999, variant.ID, "admin")
	assert.ErrorIs(t, err, models.ErrInvalidRole)
	_, err = svc.UpdateRole(ctx, admin.ID, 9999, variant.ID, "suscriptor")
	assert.ErrorIs(t, err, models.ErrUnknownUser)

	assert.Zero(t, countRows(t, f.db.Where("user_id = ?", 9999), &models.Membership{}))
}

func TestGrantOrUpdateRole_Policy(t *testing.T) {
	svc, f := newMembershipService(t)
	ctx := context.Background()
	variant := testutil.CreateVariant(t, f.db, "Math", "Morning")
	first := testutil.CreateUser(t, f.db, "first")
	second := testutil.CreateUser(t, f.db, "second")
	third := testutil.CreateUser(t, f.db, "third")

	// Anyone may subscribe themselves.
	_, err := svc.GrantOrUpdateRole(ctx, second.ID, second.ID, variant.ID, "suscriptor")
	require.NoError(t, err)

	// A subscriber cannot grant to others.
	_, err = svc.GrantOrUpdateRole(ctx, second.ID, third.ID, variant.ID, "suscriptor")
	assert.ErrorIs(t, err, models.ErrNotAuthorized)

	// The first admin bootstraps the variant.
	_, err = svc.GrantOrUpdateRole(ctx, first.ID, first.ID, variant.ID, "admin")
	require.NoError(t, err)

	// Once an admin exists, nobody else can self-promote.
	_, err = svc.GrantOrUpdateRole(ctx, second.ID, second.ID, variant.ID, "admin")
	assert.ErrorIs(t, err, models.ErrNotAuthorized)

	// The admin can promote others.
	_, err = svc.GrantOrUpdateRole(ctx, first.ID, second.ID, variant.ID, "admin")
	require.NoError(t, err)
	isAdmin, err := svc.IsAdmin(ctx, second.ID, variant.ID)
	require.NoError(t, err)
	assert.True(t, isAdmin)
}

func TestUpdateRole_RequiresExistingRow(t *testing.T) {
	svc, f := newMembershipService(t)
	ctx := context.Background()
	variant := testutil.CreateVariant(t, f.db, "Math", "Morning")
	admin := adminOf(t, f.db, "boss", variant.ID)
	target := testutil.CreateUser(t, f.db, "ana")

	_, err := svc.UpdateRole(ctx, admin.ID, target.ID, variant.ID, "admin")
	assert.ErrorIs(t, err, models.ErrMembershipNotFound)
	assert.EqualValues(t, 1, countRows(t, f.db, &models.Membership{}))

	testutil.Grant(t, f.db, target.ID, variant.ID, models.RoleSubscriber)
	m, err := svc.UpdateRole(ctx, admin.ID, target.ID, variant.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, m.Role)
}

func TestIsAdminAndIsSubscriberExclusive(t *testing.T) {
	svc, f := newMembershipService(t)
	ctx := context.Background()
	variant := testutil.CreateVariant(t, f.db, "Math", "Morning")
	admin := adminOf(t, f.db, "boss", variant.ID)
	user := testutil.CreateUser(t, f.db, "ana")

	check := func(userID uint) (bool, bool) {
		a, err := svc.IsAdmin(ctx, userID, variant.ID)
		require.NoError(t, err)
		s, err := svc.IsSubscriber(ctx, userID, variant.ID)
		require.NoError(t, err)
		return a, s
	}

	for i, role := range []string{"suscriptor", "admin", "suscriptor"} {
		_, err := svc.GrantOrUpdateRole(ctx, admin.ID, user.ID, variant.ID, role)
		require.NoError(t, err)
		a, s := check(user.ID)
		assert.False(t, a && s, "step %d", i)
		assert.True(t, a || s, "step %d", i)
	}

	a, s := check(9999)
	assert.False(t, a)
	assert.False(t, s)
	access, err := svc.HasAccess(ctx, 9999, variant.ID)
	require.NoError(t, err)
	assert.False(t, access)
}

func TestMembershipListings(t *testing.T) {
	svc, f := newMembershipService(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "ana")
	for i := 0; i < 3; i++ {
		v := testutil.CreateVariant(t, f.db, "Math", fmt.Sprintf("Group %d", i))
		_, err := svc.CreateSubscription(ctx, user.ID, v.ID)
		require.NoError(t, err)
	}

	memberships, err := svc.ListForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, memberships, 3)

	subs, err := svc.ListSubscriptionsForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, subs, 3)
	for _, s := range subs {
		assert.Equal(t, models.RoleSubscriber, s.Role)
		assert.NotEmpty(t, s.VariantName)
	}

	all, err := svc.ListSubscriptions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestCreateSubscription_RollsBackOnMembershipFailure(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "ana")
	variant := testutil.CreateVariant(t, f.db, "Math", "Morning")

	svc := NewMembershipService(&failingEnsureRepo{MembershipRepository: repository.NewMembershipRepository(f.db)})
	_, err := svc.CreateSubscription(ctx, user.ID, variant.ID)
	require.Error(t, err)
	assert.Zero(t, countRows(t, f.db, &models.Subscription{}))
}

// failingEnsureRepo fails EnsureSubscriber inside transactions.
type failingEnsureRepo struct {
	repository.MembershipRepository
}

func (r *failingEnsureRepo) WithTx(ctx context.Context, fn func(repository.MembershipRepository) error) error {
	return r.MembershipRepository.WithTx(ctx, func(tx repository.MembershipRepository) error {
		return fn(&failingEnsureRepo{MembershipRepository: tx})
	})
}

func (r *failingEnsureRepo) EnsureSubscriber(context.Context, uint, uint) (*models.Membership, error) {
	return nil, models.NewInternalError(errInjected)
}

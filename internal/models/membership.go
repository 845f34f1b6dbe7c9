package models

import (
	"strings"
	"time"
)

// Role is a member's role in a variant.
type Role string

const (
	// RoleSubscriber may read a variant's resources.
	RoleSubscriber Role = "suscriptor"
	// RoleAdmin may additionally upload, delete and grant roles.
	RoleAdmin Role = "admin"
)

// ParseRole accepts the wire values of Role.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.TrimSpace(s)) {
	case RoleSubscriber:
		return RoleSubscriber, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// SubscriptionState is the enrollment state of a Subscription.
type SubscriptionState string

const (
	SubscriptionActive   SubscriptionState = "activa"
	SubscriptionInactive SubscriptionState = "inactiva"
)

// ParseSubscriptionState accepts the wire values of SubscriptionState.
func ParseSubscriptionState(s string) (SubscriptionState, bool) {
	switch SubscriptionState(strings.TrimSpace(s)) {
	case SubscriptionActive:
		return SubscriptionActive, true
	case SubscriptionInactive:
		return SubscriptionInactive, true
	}
	return "", false
}

// Membership is the (user, variant, role) authorization record. One row per pair.
type Membership struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_variants_user_variant" json:"idUsuario"`
	VariantID uint      `gorm:"not null;uniqueIndex:idx_user_variants_user_variant;index" json:"idVariante"`
	Role      Role      `gorm:"type:varchar(20);not null;default:'suscriptor'" json:"rol"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Membership.
func (Membership) TableName() string {
	return "user_variants"
}

// Subscription is the (user, variant, state) enrollment record created alongside a Membership.
type Subscription struct {
	ID        uint              `gorm:"primaryKey" json:"idSuscripcion"`
	UserID    uint              `gorm:"not null;uniqueIndex:idx_subscriptions_user_variant" json:"idUsuario"`
	VariantID uint              `gorm:"not null;uniqueIndex:idx_subscriptions_user_variant;index" json:"idVariante"`
	State     SubscriptionState `gorm:"type:varchar(20);not null;default:'activa'" json:"estado"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// SubscriptionWithRole is a subscription joined with the caller's role and variant name.
type SubscriptionWithRole struct {
	ID          uint              `json:"idSuscripcion"`
	UserID      uint              `json:"idUsuario"`
	VariantID   uint              `json:"idVariante"`
	State       SubscriptionState `json:"estado"`
	Role        Role              `json:"rol"`
	VariantName string            `json:"nombreVariante"`
	CreatedAt   time.Time         `json:"created_at"`
}

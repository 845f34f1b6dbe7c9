package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"campus/internal/middleware"
	"campus/internal/models"
	"campus/internal/repository"
	"campus/internal/service"
	"campus/internal/storage"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the password of every generated demo user.
const DemoPassword = "password123"

// DemoOptions sizes a demo data run.
type DemoOptions struct {
	Users               int
	ResourcesPerVariant int
	// Seed makes the generated names repeatable. Zero uses the clock.
	Seed int64
	// BcryptCost defaults to bcrypt.DefaultCost. Tests lower it.
	BcryptCost int
}

// DemoReport counts what a demo run created.
type DemoReport struct {
	Users         int
	Admins        int
	Subscriptions int
	Resources     int
}

// Factory builds demo entities. Users are written directly; memberships and
// resources go through the services so they follow the same rules as the API.
type Factory struct {
	db           *gorm.DB
	faker        *gofakeit.Faker
	passwordHash string
	seq          int

	memberships *service.MembershipService
	resources   *service.ResourceService
}

// NewFactory creates a Factory bound to db and blobs.
func NewFactory(db *gorm.DB, blobs storage.BlobStore, opts DemoOptions) (*Factory, error) {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}

	memberships := service.NewMembershipService(repository.NewMembershipRepository(db))
	return &Factory{
		db:           db,
		faker:        gofakeit.New(seed),
		passwordHash: string(hash),
		memberships:  memberships,
		resources: service.NewResourceService(
			repository.NewResourceRepository(db),
			memberships,
			blobs,
			service.ResourceServiceConfig{},
		),
	}, nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// CreateUser inserts a user with a fake identity and the demo password.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	f.seq++
	first, last := f.faker.FirstName(), f.faker.LastName()
	username := fmt.Sprintf("%s.%s%d", slugify(first), slugify(last), f.seq)
	if len(username) > 50 {
		username = username[:50]
	}
	born := f.faker.DateRange(
		time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2006, 12, 31, 0, 0, 0, 0, time.UTC),
	)

	user := &models.User{
		Username: username,
		Email:    fmt.Sprintf("%s@%s", username, f.faker.DomainName()),
		Password: f.passwordHash,
		BornDate: &born,
	}
	for _, o := range overrides {
		o(user)
	}
	if err := f.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user %s: %w", user.Username, err)
	}
	return user, nil
}

// ClaimAdmin makes user the first admin of variant.
func (f *Factory) ClaimAdmin(ctx context.Context, user *models.User, variantID uint) error {
	_, err := f.memberships.GrantOrUpdateRole(ctx, user.ID, user.ID, variantID, string(models.RoleAdmin))
	return err
}

// Subscribe enrolls user in variant. An existing subscription is not an error.
func (f *Factory) Subscribe(ctx context.Context, user *models.User, variantID uint) (bool, error) {
	_, err := f.memberships.CreateSubscription(ctx, user.ID, variantID)
	if errors.Is(err, models.ErrAlreadySubscribed) {
		return false, nil
	}
	return err == nil, err
}

// CreateResource uploads a generated PDF to variant on behalf of admin.
func (f *Factory) CreateResource(ctx context.Context, admin *models.User, variantID uint) (*models.Resource, error) {
	title := strings.TrimSuffix(f.faker.Sentence(f.faker.Number(2, 5)), ".")
	payload := SamplePDF(title, f.faker.Number(1, 4))
	return f.resources.CreateResource(ctx, admin.ID, service.UploadInput{
		VariantID:   variantID,
		Type:        "pdf",
		Title:       title,
		Description: f.faker.Paragraph(1, 2, 10, " "),
		FileName:    slugify(title) + ".pdf",
		Size:        int64(len(payload)),
		File:        bytes.NewReader(payload),
	})
}

// Demo fills every catalog variant with an admin, subscribers and resources.
// Variants that already have an admin are left alone so reruns add users only.
func Demo(ctx context.Context, db *gorm.DB, blobs storage.BlobStore, opts DemoOptions) (*DemoReport, error) {
	if opts.Users < 1 {
		opts.Users = 1
	}

	f, err := NewFactory(db, blobs, opts)
	if err != nil {
		return nil, err
	}

	variants, err := Variants(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("load variants: %w", err)
	}

	report := &DemoReport{}
	users := make([]*models.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		u, err := f.CreateUser(ctx)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	report.Users = len(users)

	for i, v := range variants {
		admin := users[i%len(users)]
		if err := f.ClaimAdmin(ctx, admin, v.ID); err != nil {
			if errors.Is(err, models.ErrNotAuthorized) {
				middleware.Logger.InfoContext(ctx, "variant already has an admin, skipping", "variant_id", v.ID)
				continue
			}
			return nil, fmt.Errorf("claim admin of variant %d: %w", v.ID, err)
		}
		report.Admins++

		for _, u := range users {
			if u.ID == admin.ID || !f.faker.Bool() {
				continue
			}
			created, err := f.Subscribe(ctx, u, v.ID)
			if err != nil {
				return nil, fmt.Errorf("subscribe user %d to variant %d: %w", u.ID, v.ID, err)
			}
			if created {
				report.Subscriptions++
			}
		}

		for k := 0; k < opts.ResourcesPerVariant; k++ {
			if _, err := f.CreateResource(ctx, admin, v.ID); err != nil {
				return nil, fmt.Errorf("create resource in variant %d: %w", v.ID, err)
			}
			report.Resources++
		}
	}

	middleware.Logger.InfoContext(ctx, "demo data seeded",
		"users", report.Users, "admins", report.Admins,
		"subscriptions", report.Subscriptions, "resources", report.Resources)
	return report, nil
}

// ClearDemo removes users and everything that hangs off them. The catalog stays.
// Payloads of deleted resources are left for the orphan sweeper.
func ClearDemo(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{
			&models.Evaluation{},
			&models.Resource{},
			&models.Subscription{},
			&models.Membership{},
			&models.User{},
		} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return fmt.Errorf("clear %T: %w", model, err)
			}
		}
		return nil
	})
}

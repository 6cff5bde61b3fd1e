package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rootsreach/rootsreach-backend/internal/users"
	"github.com/rootsreach/rootsreach-backend/pkg/config"
	"github.com/rootsreach/rootsreach-backend/pkg/db/models"
	"github.com/rootsreach/rootsreach-backend/pkg/enums"
	"github.com/rootsreach/rootsreach-backend/pkg/logger"
	"github.com/rootsreach/rootsreach-backend/pkg/security"
)

type userStore interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role enums.Role) error
}

type account struct {
	email string
	name  string
	role  enums.Role
	city  string
	state string
}

var testAccounts = []account{
	{email: "artisan@rootsreach.com", name: "Test Artisan", role: enums.RoleArtisan, city: "Jaipur", state: "Rajasthan"},
	{email: "distributor@rootsreach.com", name: "Test Distributor", role: enums.RoleDistributor, city: "Mumbai", state: "Maharashtra"},
	{email: "buyer@rootsreach.com", name: "Test Buyer", role: enums.RoleBuyer, city: "Delhi", state: "Delhi"},
}

// Result reports what a seeding run did per email. Password is set only when
// the seeder had to generate one.
type Result struct {
	Email    string     `json:"email"`
	Role     enums.Role `json:"role"`
	Action   string     `json:"action"`
	Password string     `json:"password,omitempty"`
}

const tempPasswordLength = 16

const (
	ActionCreated  = "created"
	ActionExisting = "existing"
	ActionPromoted = "promoted"
)

// Seeder creates the bootstrap accounts. Runs are idempotent.
type Seeder struct {
	users    userStore
	password config.PasswordConfig
	logg     *logger.Logger
}

func New(store userStore, password config.PasswordConfig, logg *logger.Logger) (*Seeder, error) {
	if store == nil {
		return nil, errors.New("user store is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Seeder{users: store, password: password, logg: logg}, nil
}

// Init creates the admin plus one test account per self-service role.
// Existing accounts are left untouched. Accounts whose configured password is
// blank get a generated one, reported in the result.
func (s *Seeder) Init(ctx context.Context, cfg config.SeedConfig) ([]Result, error) {
	results := make([]Result, 0, len(testAccounts)+1)

	admin, err := s.ensure(ctx, account{email: cfg.AdminEmail, name: "Admin User", role: enums.RoleAdmin}, cfg.AdminPassword)
	if err != nil {
		return results, err
	}
	results = append(results, admin)

	for _, acct := range testAccounts {
		res, err := s.ensure(ctx, acct, cfg.UserPassword)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// Promote makes email an admin. A missing user is created when password is
// provided.
func (s *Seeder) Promote(ctx context.Context, email, password string) (Result, error) {
	email = users.NormalizeEmail(email)
	if email == "" {
		return Result{}, errors.New("email is required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if strings.TrimSpace(password) == "" {
			return Result{}, fmt.Errorf("user %s not found; pass a password to create it", email)
		}
		return s.ensure(ctx, account{email: email, name: "Admin User", role: enums.RoleAdmin}, password)
	case err != nil:
		return Result{}, fmt.Errorf("lookup %s: %w", email, err)
	}

	if user.Role == enums.RoleAdmin {
		return Result{Email: email, Role: user.Role, Action: ActionExisting}, nil
	}
	if err := s.users.UpdateRole(ctx, user.ID, enums.RoleAdmin); err != nil {
		return Result{}, fmt.Errorf("promote %s: %w", email, err)
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{"email": email, "from_role": user.Role.String()})
	s.logg.Info(logCtx, "seed.promoted")
	return Result{Email: email, Role: enums.RoleAdmin, Action: ActionPromoted}, nil
}

func (s *Seeder) ensure(ctx context.Context, acct account, password string) (Result, error) {
	email := users.NormalizeEmail(acct.email)
	existing, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return Result{Email: email, Role: existing.Role, Action: ActionExisting}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return Result{}, fmt.Errorf("lookup %s: %w", email, err)
	}

	var generated string
	if strings.TrimSpace(password) == "" {
		if generated, err = security.GenerateTempPassword(tempPasswordLength); err != nil {
			return Result{}, err
		}
		password = generated
	}
	hash, err := security.HashPassword(password, s.password)
	if err != nil {
		return Result{}, fmt.Errorf("hash password for %s: %w", email, err)
	}

	dto := users.CreateUserDTO{
		Email:        email,
		PasswordHash: hash,
		Name:         acct.name,
		Role:         acct.role,
	}
	if acct.city != "" {
		country := "India"
		dto.City = &acct.city
		dto.State = &acct.state
		dto.Country = &country
	}
	if _, err := s.users.Create(ctx, dto); err != nil {
		return Result{}, fmt.Errorf("create %s: %w", email, err)
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"email": email, "role": acct.role.String()}), "seed.created")
	return Result{Email: email, Role: acct.role, Action: ActionCreated, Password: generated}, nil
}

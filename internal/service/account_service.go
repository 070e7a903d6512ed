package service

import (
	"context"
	"encoding/json"
	"time"

	"sherise/internal/middleware"
	"sherise/internal/models"
	"sherise/internal/repository"
	"sherise/internal/store"
	"sherise/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

var errBadCredentials = models.NewUnauthorizedError("Invalid email or password")

// AccountService handles signup, login and logout.
type AccountService struct {
	accounts  repository.AccountRepository
	store     *store.Store
	profiles  *ProfileService
	jwtSecret string
	now       func() time.Time
}

// SignupInput carries credentials plus the initial profile.
type SignupInput struct {
	Name     string
	Email    string
	Password string
	Profile  models.Profile
}

// AuthResult is returned by signup and login.
type AuthResult struct {
	Token   string         `json:"token"`
	Profile models.Profile `json:"profile"`
}

// ParseSignup reads a signup body in either the flat layout ({name, email, password, ...})
// or the nested one ({account: {fullName, email, password}, profile: {...}}).
func ParseSignup(body []byte) (SignupInput, error) {
	var creds struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Account  *struct {
			FullName string `json:"fullName"`
			Email    string `json:"email"`
			Password string `json:"password"`
		} `json:"account"`
	}
	if err := json.Unmarshal(body, &creds); err != nil {
		return SignupInput{}, models.NewValidationError("Invalid request body")
	}
	profile, err := models.NormalizeProfile(body)
	if err != nil {
		return SignupInput{}, models.NewValidationError("Invalid request body")
	}

	in := SignupInput{Name: creds.Name, Email: creds.Email, Password: creds.Password, Profile: profile}
	if a := creds.Account; a != nil {
		if in.Name == "" {
			in.Name = a.FullName
		}
		if in.Email == "" {
			in.Email = a.Email
		}
		if in.Password == "" {
			in.Password = a.Password
		}
	}
	return in, nil
}

func NewAccountService(accounts repository.AccountRepository, s *store.Store, profiles *ProfileService, jwtSecret string) *AccountService {
	return &AccountService{
		accounts:  accounts,
		store:     s,
		profiles:  profiles,
		jwtSecret: jwtSecret,
		now:       time.Now,
	}
}

// Signup creates the account and its profile and signs the user in.
func (s *AccountService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	email := models.NormalizeEmail(in.Email)
	for _, err := range []error{
		validation.ValidateName(in.Name),
		validation.ValidateEmail(email),
		validation.ValidatePassword(in.Password),
	} {
		if err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	account := &models.Account{Email: email, Name: in.Name, PasswordHash: string(hash)}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	p := in.Profile
	p.Name = in.Name
	p.Email = email
	profile, err := s.profiles.Save(ctx, account.ID, p)
	if err != nil {
		return nil, err
	}
	return s.signIn(ctx, account, profile)
}

// Login verifies credentials. Unknown emails are rejected like wrong passwords.
func (s *AccountService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, errBadCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, errBadCredentials
	}

	profile, err := s.profiles.Me(ctx, account.ID)
	if err != nil {
		profile, err = s.profiles.Get(ctx, models.IDFromUint(account.ID))
		if err != nil {
			profile = models.Profile{ID: models.IDFromUint(account.ID), Name: account.Name, Email: account.Email}
			profile.Fill()
		}
		s.store.Set(ctx, store.UserScope(account.ID), models.SliceCurrentUser, profile)
	}
	return s.signIn(ctx, account, profile)
}

func (s *AccountService) signIn(ctx context.Context, account *models.Account, profile models.Profile) (*AuthResult, error) {
	now := s.now()
	token, err := middleware.IssueToken(s.jwtSecret, account.ID, account.Name, now)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	s.store.Set(ctx, store.UserScope(account.ID), models.SliceAuth, models.AuthState{
		Authenticated: true,
		Email:         account.Email,
		Since:         models.Timestamp(now),
	})
	return &AuthResult{Token: token, Profile: profile}, nil
}

// Logout clears the auth marker and the current profile.
func (s *AccountService) Logout(ctx context.Context, userID uint) error {
	scope := store.UserScope(userID)
	if err := s.store.Delete(ctx, scope, models.SliceAuth); err != nil {
		return err
	}
	return s.store.Delete(ctx, scope, models.SliceCurrentUser)
}

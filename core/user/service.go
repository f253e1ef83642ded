package user

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/kusoma/core"
)

var (
	// errors
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("a user with this email already exists")
)

type (
	// Repository is the persistence contract of the identity store.
	// Absence is reported with ErrNotFound; infrastructure failures with
	// *core.ConnectionError or *core.QueryError.
	Repository interface {
		GetUserByEmail(ctx context.Context, email string) (User, error)
		CreateUser(ctx context.Context, usr User) (User, error)
		UpdatePassword(ctx context.Context, email string, hash []byte) error
		SetWeakTopics(ctx context.Context, email string, topics []string) error
		// AppendResult stores the entry as ResultHistory.Next described it.
		AppendResult(ctx context.Context, email string, entry ResultEntry) error
	}

	Service struct {
		repo    Repository
		nowFunc func() time.Time
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo, nowFunc: time.Now}
}

// FindByEmail looks a user up by the exact stored email. ErrNotFound is not an infrastructure error.
func (svc *Service) FindByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email))
}

// Dashboard fetches a user and reshapes their stored results into a performance series.
func (svc *Service) Dashboard(ctx context.Context, email string) (Dashboard, error) {
	usr, err := svc.FindByEmail(ctx, email)
	if err != nil {
		return Dashboard{}, err
	}
	topics := usr.WeakTopics
	if topics == nil {
		topics = []string{}
	}
	return Dashboard{
		Name:        usr.Name,
		Performance: usr.Result.Performance(),
		Result:      usr.Result,
		WeakTopics:  topics,
	}, nil
}

// WeakTopics returns the user's weak topics; an unknown user has none.
func (svc *Service) WeakTopics(ctx context.Context, email string) ([]string, error) {
	usr, err := svc.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return []string{}, nil
		}
		return nil, err
	}
	if usr.WeakTopics == nil {
		return []string{}, nil
	}
	return usr.WeakTopics, nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := svc.nowFunc().UTC()
	usr := User{
		Name:       nu.Name,
		Email:      nu.Email,
		Standard:   nu.Standard,
		WeakTopics: nu.WeakTopics,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if usr.WeakTopics == nil {
		usr.WeakTopics = []string{}
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	usr, err := svc.FindByEmail(ctx, rp.Email)
	if err != nil {
		return err
	}
	if err = usr.SetPassword(rp.Password); err != nil {
		return err
	}
	return svc.repo.UpdatePassword(ctx, usr.Email, usr.PasswordHash)
}

func (svc *Service) SetWeakTopics(ctx context.Context, email string, topics []string) error {
	return svc.repo.SetWeakTopics(ctx, core.CleanString(email), core.CleanStrings(topics))
}

// RecordResult appends a quiz result to the user's history and returns its quiz number.
func (svc *Service) RecordResult(ctx context.Context, email string, marks float64) (int, error) {
	usr, err := svc.FindByEmail(ctx, email)
	if err != nil {
		return 0, err
	}
	entry := usr.Result.Next(marks)
	if err = svc.repo.AppendResult(ctx, usr.Email, entry); err != nil {
		return 0, err
	}
	return entry.Key + 1, nil
}

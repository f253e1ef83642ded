package testutil

import (
	"context"
	"io"
	"log"
	"sync/atomic"
	"testing"
	"time"

	"github.com/trezcool/kusoma/core"
	"github.com/trezcool/kusoma/core/user"
	logsvc "github.com/trezcool/kusoma/services/logger"
)

// NewConfig returns a configuration suitable for tests; no environment is read.
func NewConfig() *core.Config {
	return &core.Config{
		AppName:   "Kusoma",
		Build:     "test",
		Env:       "TEST",
		TestMode:  true,
		SecretKey: "test-secret-key",
		Server: core.ServerConfig{
			DisableReqLogs:            true,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
		},
		Database: core.DatabaseConfig{
			URI:            "mongodb://127.0.0.1:1/kusoma_test",
			Name:           "kusoma_test",
			ConnectTimeout: 200 * time.Millisecond,
		},
		Auth: core.AuthConfig{PostLoginRedirect: "/dashboard"},
	}
}

// NewLogger returns a logger that reports nowhere.
func NewLogger() core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), NewConfig())
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	weakTopics []string,
	results user.ResultHistory,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	usr := user.User{
		Name:       name,
		Email:      email,
		WeakTopics: weakTopics,
		Result:     results,
		CreatedAt:  tstamp,
		UpdatedAt:  tstamp,
	}
	if usr.WeakTopics == nil {
		usr.WeakTopics = []string{}
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CountingRepository counts the lookups reaching the wrapped repository.
type CountingRepository struct {
	user.Repository
	lookups int64
}

func NewCountingRepository(repo user.Repository) *CountingRepository {
	return &CountingRepository{Repository: repo}
}

func (r *CountingRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	atomic.AddInt64(&r.lookups, 1)
	return r.Repository.GetUserByEmail(ctx, email)
}

func (r *CountingRepository) Lookups() int64 {
	return atomic.LoadInt64(&r.lookups)
}

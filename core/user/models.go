package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/kusoma/core"
)

type User struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	Standard     string        `json:"standard,omitempty"` // grade/level tag
	WeakTopics   []string      `json:"weaktopics"`
	Result       ResultHistory `json:"result"`
	PasswordHash []byte        `json:"-"`
	CreatedAt    time.Time     `json:"created_at"` // UTC
	UpdatedAt    time.Time     `json:"updated_at"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) bool {
	return VerifyPassword(pwd, u.PasswordHash)
}

// Person returns the logging identity of the user.
func (u User) Person() core.Person {
	return core.Person{ID: u.ID, Name: u.Name, Email: u.Email}
}

// VerifyPassword compares a plaintext password with a bcrypt hash.
func VerifyPassword(plaintext string, hash []byte) bool {
	if len(hash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(plaintext)) == nil
}

// PerformancePoint is one point of the dashboard's performance graph.
type PerformancePoint struct {
	QuizNumber int     `json:"quizNumber"`
	Marks      float64 `json:"marks"`
}

type Dashboard struct {
	Name        string
	Performance []PerformancePoint
	Result      ResultHistory
	WeakTopics  []string
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name       string   `json:"name" validate:"required,notblank"`
	Email      string   `json:"email" validate:"required,email"`
	Standard   string   `json:"standard"`
	WeakTopics []string `json:"weaktopics"`
	Password   string   `json:"password" validate:"required"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email)
	nu.Standard = core.CleanString(nu.Standard)
	nu.WeakTopics = core.CleanStrings(nu.WeakTopics)
	return validate.Struct(nu)
}

type ResetUserPassword struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (rp *ResetUserPassword) Validate(validate *validator.Validate) error {
	rp.Email = core.CleanString(rp.Email)
	return validate.Struct(rp)
}

package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/trezcool/kusoma/core"
	"github.com/trezcool/kusoma/core/user"
)

// Providers
const (
	ProviderCredentials = "credentials"
	ProviderGoogle      = "google"
)

const audience = "students"

// Claims represents the identity snapshot transmitted via a session JWT.
type Claims struct {
	jwt.RegisteredClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"`
	Name         string   `json:"name,omitempty"`
	Email        string   `json:"email,omitempty"`
	Standard     string   `json:"standard,omitempty"`
	WeakTopics   []string `json:"weaktopics,omitempty"`
	Provider     string   `json:"provider,omitempty"`
}

// Identity is the identity context rehydrated on every authenticated request.
type Identity struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Standard   string   `json:"standard,omitempty"`
	WeakTopics []string `json:"weaktopics"`
	Provider   string   `json:"provider"`
}

func (id Identity) Person() core.Person {
	return core.Person{ID: id.ID, Name: id.Name, Email: id.Email}
}

func (c *Claims) Identity() Identity {
	topics := c.WeakTopics
	if topics == nil {
		topics = []string{}
	}
	return Identity{
		ID:         c.Subject,
		Name:       c.Name,
		Email:      c.Email,
		Standard:   c.Standard,
		WeakTopics: topics,
		Provider:   c.Provider,
	}
}

// IdentityFromUser snapshots the stored user at issuance time.
func IdentityFromUser(usr user.User) Identity {
	topics := make([]string, len(usr.WeakTopics))
	copy(topics, usr.WeakTopics)
	return Identity{
		ID:         usr.ID,
		Name:       usr.Name,
		Email:      usr.Email,
		Standard:   usr.Standard,
		WeakTopics: topics,
		Provider:   ProviderCredentials,
	}
}

// Profile is what an external identity provider vouches for.
type Profile struct {
	Provider string
	Subject  string
	Name     string
	Email    string
}

func (p Profile) Identity() Identity {
	return Identity{
		ID:         p.Subject,
		Name:       p.Name,
		Email:      p.Email,
		WeakTopics: []string{},
		Provider:   p.Provider,
	}
}

// Credentials are submitted on a credentials login.
type Credentials struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Token is an issued session token.
type Token struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Identity  Identity  `json:"user"`
}

package domain

import (
	"context"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID          uint      `json:"id"`
	Username    string    `json:"username"`
	Role        Role      `json:"role"`
	Email       string    `json:"email,omitempty"`
	MinecraftID string    `json:"minecraft_id,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// Credentials is a visitor's session: the backend bearer token and the cached user record.
type Credentials struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// CredentialRepository persists credentials keyed by an opaque visitor id.
type CredentialRepository interface {
	Get(ctx context.Context, visitorID string) (*Credentials, error)
	Put(ctx context.Context, visitorID string, creds Credentials, ttl time.Duration) error
	Delete(ctx context.Context, visitorID string) error
}

type ProfileUpdate struct {
	Username    *string `json:"username,omitempty"`
	Email       *string `json:"email,omitempty"`
	MinecraftID *string `json:"minecraft_id,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}

type Registration struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	Email       string `json:"email"`
	MinecraftID string `json:"minecraft_id"`
}

package domain

import "time"

// ActorRole enumerates the two engine roles.
type ActorRole string

const (
	RoleAdmin   ActorRole = "ADMIN"
	RoleCreator ActorRole = "CREATOR"
)

// Actor is an authenticated participant; the role is fixed for the session.
type Actor struct {
	ID        string
	Name      string
	Email     string
	Role      ActorRole
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

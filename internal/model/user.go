package model

import "time"

// User represents an application user record as stored in the `users`
// table. The engine itself never authenticates anybody; it receives an
// already-verified user id and role from the auth layer and trusts
// them. The record exists so the auth collaborator has something to
// issue tokens against.
//
// Fields:
//  ID           – primary key (uuid).
//  Email        – unique email address.
//  Name         – display name.
//  PasswordHash – bcrypt hashed password.
//  Role         – "user" or "admin".
type User struct {
	ID           string    // users.id
	Email        string    // users.email
	Name         string    // users.name
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

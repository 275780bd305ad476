package model

import "time"

// Roles stored in users.role and in the JWT "role" claim.
const (
    RoleStudent = "student"
    RoleAdmin   = "admin"
)

// User represents an application user record as stored in the `users`
// table.  The borrow history is not a column; it is loaded from
// borrow_records when a profile is requested.
//
// Fields:
//  ID           – primary key identifier (uuid).
//  Email        – unique, lower-cased email address.
//  PasswordHash – bcrypt hashed password, never serialised.
//  Role         – student or admin.
type User struct {
    ID           string    `json:"id"`         // users.id
    Email        string    `json:"email"`      // users.email
    PasswordHash string    `json:"-"`          // users.password_hash
    FirstName    string    `json:"first_name"` // users.first_name
    LastName     string    `json:"last_name"`  // users.last_name
    Address      string    `json:"address"`    // users.address
    Mobile       string    `json:"mobile"`     // users.mobile
    Role         string    `json:"role"`       // users.role
    CreatedAt    time.Time `json:"created_at"` // users.created_at
    UpdatedAt    time.Time `json:"updated_at"` // users.updated_at
}

// Profile is a user together with the ordered list of borrowed books.
type Profile struct {
    User
    BorrowedBooks []BorrowedBook `json:"borrowed_books"`
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry
// and revocation.  The plain token is not stored; only its
// SHA‑256 hash.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    string     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}

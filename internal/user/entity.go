// AngelaMos | 2026
// entity.go

package user

import (
	"time"

	"github.com/carterperez-dev/mediahub/internal/policy"
)

// User rows are never hard-deleted.
type User struct {
	ID           string      `db:"id"`
	Email        string      `db:"email"`
	PasswordHash string      `db:"password_hash"`
	Name         string      `db:"name"`
	Role         policy.Role `db:"role"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

func (u *User) Summary() Summary {
	return Summary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// Summary is the public projection of a user embedded in content and
// media listings.
type Summary struct {
	ID    string `json:"id"    db:"id"`
	Name  string `json:"name"  db:"name"`
	Email string `json:"email" db:"email"`
}

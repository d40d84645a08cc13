package auth

import "time"

// Roles.
const (
	RoleConsumer   = "CONSUMER"
	RoleRestaurant = "RESTAURANT"
	RoleSupplier   = "SUPPLIER"
	RoleAdmin      = "ADMIN"
)

// Roles lists every role, for validators.
var Roles = []string{RoleConsumer, RoleRestaurant, RoleSupplier, RoleAdmin}

// User is the domain entity.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

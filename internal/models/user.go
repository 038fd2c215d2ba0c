package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleUser       UserRole = "user"
	RoleSupervisor UserRole = "supervisor"
	RoleAdmin      UserRole = "admin"
)

// ValidRole reports whether the role is one of the known values.
func ValidRole(r UserRole) bool {
	switch r {
	case RoleUser, RoleSupervisor, RoleAdmin:
		return true
	}
	return false
}

// User represents an application user stored in the users table.
type User struct {
	ID                  string     `db:"id" json:"id"`
	Email               string     `db:"email" json:"email"`
	PasswordHash        string     `db:"password_hash" json:"-"`
	FirstName           string     `db:"first_name" json:"first_name"`
	LastName            string     `db:"last_name" json:"last_name"`
	MobileNumber        string     `db:"mobile_number" json:"mobile_number"`
	Role                UserRole   `db:"role" json:"role"`
	DeviceToken         *string    `db:"device_token" json:"-"`
	NotificationEnabled bool       `db:"notification_enabled" json:"notification_enabled"`
	ResetPasswordToken  *string    `db:"reset_password_token" json:"-"`
	ResetPasswordSentAt *time.Time `db:"reset_password_sent_at" json:"-"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// AdminUser is the separate back-office identity. It always authorizes as admin.
type AdminUser struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role     *UserRole
	Search   string
	Page     int
	PageSize int
}

// UserInfo describes a user in API responses.
type UserInfo struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name,omitempty"`
	MobileNumber string   `json:"mobile_number,omitempty"`
	Role         UserRole `json:"role"`
}

// Info maps a User to its public representation.
func (u *User) Info() UserInfo {
	return UserInfo{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		MobileNumber: u.MobileNumber,
		Role:         u.Role,
	}
}

// UpdateProfileRequest is the partial profile update payload. Nil fields are untouched.
type UpdateProfileRequest struct {
	FirstName           *string `json:"first_name"`
	LastName            *string `json:"last_name"`
	MobileNumber        *string `json:"mobile_number" validate:"omitempty,len=10,numeric"`
	NotificationEnabled *bool   `json:"notification_enabled"`
}

// UpdateRoleRequest changes a user's role.
type UpdateRoleRequest struct {
	Role UserRole `json:"role" validate:"required"`
}

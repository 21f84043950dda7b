package domain

import "time"

// User is the slice of the account record this service needs: enough to
// locate a user by contact and flip verification flags. The account service
// owns everything else.
type User struct {
	ID            string
	Email         string
	Phone         *string
	FullName      string
	PasswordHash  string
	EmailVerified bool
	PhoneVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

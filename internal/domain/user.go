package domain

import "time"

// Role enumerates the three identities in the system. Admins supervise
// (tickets are routed to them), technicians work tickets, users only submit.
type Role string

const (
	RoleUser       Role = "USER"
	RoleAdmin      Role = "ADMIN"
	RoleTechnician Role = "TECHNICIAN"
)

// User is the backing record for the identity and contact-resolution
// collaborators: it carries the login identity, the display name tickets are
// routed by, the contact address, and the optional outbound-send credential.
type User struct {
	ID           string
	EmpID        string
	Username     string
	FullName     string
	Email        string
	PasswordHash string
	Role         Role
	Department   string
	MailAPIKey   *string
	CreatedAt    time.Time
}

// CanSendMail reports whether the user holds an outbound-send credential.
func (u *User) CanSendMail() bool {
	return u.Email != "" && u.MailAPIKey != nil && *u.MailAPIKey != ""
}

package model

type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)

// Principal is the authenticated caller driving an attempt session.
type Principal struct {
	UserID uint
	Role   UserRole
	// Token is the caller's bearer token, forwarded to the assessment service.
	Token string
}

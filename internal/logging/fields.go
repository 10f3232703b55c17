package logging

import "log/slog"

// Field names shared across the service so log queries stay consistent.
const (
	FieldService   = "service"
	FieldUserID    = "user_id"
	FieldUsername  = "username"
	FieldStudentID = "student_id"
	FieldGroup     = "group"
	FieldSubject   = "subject"
	FieldTokenID   = "token_id"
	FieldIP        = "ip"
	FieldError     = "error"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// UserID returns a slog attribute for a user id.
func UserID(id string) slog.Attr {
	return slog.String(FieldUserID, id)
}

// Username returns a slog attribute for a username.
func Username(name string) slog.Attr {
	return slog.String(FieldUsername, name)
}

// StudentID returns a slog attribute for a student id.
func StudentID(id string) slog.Attr {
	return slog.String(FieldStudentID, id)
}

// Group returns a slog attribute for a hub group name.
func Group(name string) slog.Attr {
	return slog.String(FieldGroup, name)
}

// Subject returns a slog attribute for a message-bus subject.
func Subject(name string) slog.Attr {
	return slog.String(FieldSubject, name)
}

// TokenID returns a slog attribute for a refresh token id.
func TokenID(id string) slog.Attr {
	return slog.String(FieldTokenID, id)
}

// IP returns a slog attribute for a client address.
func IP(ip string) slog.Attr {
	return slog.String(FieldIP, ip)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}

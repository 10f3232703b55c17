// Package notify pushes fire-and-forget notifications to connected
// clients. No persistence, no retry: a user with no open connection
// receives nothing, and a dispatch failure never reaches the domain
// operation that triggered it.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/classpulse-systems/classpulse/internal/metrics"
	"github.com/classpulse-systems/classpulse/internal/models"
)

// GroupSender is the hub primitive the dispatcher fans out through.
type GroupSender interface {
	SendToGroup(group string, payload any)
}

// StudentDirectory resolves a student id to the owning user account.
type StudentDirectory interface {
	GetStudentUserID(ctx context.Context, studentID string) (string, error)
}

// envelope is the server-to-client event frame.
type envelope struct {
	Event string              `json:"event"`
	Data  models.Notification `json:"data"`
}

type Dispatcher struct {
	sender   GroupSender
	students StudentDirectory
}

func NewDispatcher(sender GroupSender, students StudentDirectory) *Dispatcher {
	return &Dispatcher{
		sender:   sender,
		students: students,
	}
}

// NotifyUser pushes to every live connection of one user.
func (d *Dispatcher) NotifyUser(userID, message, notifType string) {
	d.push(models.UserGroup(userID), message, notifType, "user")
}

// NotifyRole pushes to every live connection holding the role.
func (d *Dispatcher) NotifyRole(role models.Role, message, notifType string) {
	d.push(string(role), message, notifType, "role")
}

// NotifyGroup pushes to a named group, typically a topic group clients
// joined themselves.
func (d *Dispatcher) NotifyGroup(group, message, notifType string) {
	d.push(group, message, notifType, "group")
}

func (d *Dispatcher) push(group, message, notifType, target string) {
	d.sender.SendToGroup(group, envelope{
		Event: "notification",
		Data: models.Notification{
			Message:   message,
			Type:      notifType,
			Timestamp: time.Now().UTC(),
		},
	})
	metrics.NotificationsTotal.WithLabelValues(target).Inc()
}

// NotifyGrade tells a student a grade was posted. An unresolvable
// student id is logged and dropped.
func (d *Dispatcher) NotifyGrade(ctx context.Context, studentID, course, grade string) {
	userID, err := d.students.GetStudentUserID(ctx, studentID)
	if err != nil {
		d.logResolveFailure(ctx, "grade", studentID, err)
		return
	}
	d.NotifyUser(userID,
		fmt.Sprintf("New grade posted in %s: %s", course, grade),
		models.NotificationTypeGrade,
	)
}

// NotifyAssignment tells a student a new assignment was created.
func (d *Dispatcher) NotifyAssignment(ctx context.Context, studentID, course, title, dueDate string) {
	userID, err := d.students.GetStudentUserID(ctx, studentID)
	if err != nil {
		d.logResolveFailure(ctx, "assignment", studentID, err)
		return
	}
	d.NotifyUser(userID,
		fmt.Sprintf("New assignment in %s: %s (due %s)", course, title, dueDate),
		models.NotificationTypeAssignment,
	)
}

// NotifyAttendance tells a student attendance was recorded.
func (d *Dispatcher) NotifyAttendance(ctx context.Context, studentID, course, status, date string) {
	userID, err := d.students.GetStudentUserID(ctx, studentID)
	if err != nil {
		d.logResolveFailure(ctx, "attendance", studentID, err)
		return
	}
	d.NotifyUser(userID,
		fmt.Sprintf("Attendance recorded for %s on %s: %s", course, date, status),
		models.NotificationTypeAttendance,
	)
}

func (d *Dispatcher) logResolveFailure(ctx context.Context, kind, studentID string, err error) {
	slog.WarnContext(ctx, "dropping notification, cannot resolve student",
		slog.String("kind", kind),
		slog.String("student_id", studentID),
		slog.String("error", err.Error()),
	)
}

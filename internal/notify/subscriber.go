package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"
)

// Subjects published by the domain CRUD services.
const (
	SubjectPrefix             = "school.events."
	SubjectGradePosted        = SubjectPrefix + "grade.posted"
	SubjectAssignmentCreated  = SubjectPrefix + "assignment.created"
	SubjectAttendanceRecorded = SubjectPrefix + "attendance.recorded"
)

// GradeEvent announces a posted grade.
type GradeEvent struct {
	StudentID string `json:"student_id"`
	Course    string `json:"course"`
	Grade     string `json:"grade"`
}

// AssignmentEvent announces a created assignment.
type AssignmentEvent struct {
	StudentID string `json:"student_id"`
	Course    string `json:"course"`
	Title     string `json:"title"`
	DueDate   string `json:"due_date"`
}

// AttendanceEvent announces a recorded attendance entry.
type AttendanceEvent struct {
	StudentID string `json:"student_id"`
	Course    string `json:"course"`
	Status    string `json:"status"`
	Date      string `json:"date"`
}

// EventSource is the subset of the NATS connection the subscriber needs.
type EventSource interface {
	Subscribe(subject string, handler nats.MsgHandler) (*nats.Subscription, error)
}

// Subscriber bridges domain events on the bus into dispatcher calls.
// Every failure is logged and swallowed; the publishing domain
// operation already committed and must not be affected.
type Subscriber struct {
	source     EventSource
	dispatcher *Dispatcher
	sub        *nats.Subscription
}

func NewSubscriber(source EventSource, dispatcher *Dispatcher) *Subscriber {
	return &Subscriber{
		source:     source,
		dispatcher: dispatcher,
	}
}

// Start subscribes to all school event subjects.
func (s *Subscriber) Start() error {
	sub, err := s.source.Subscribe(SubjectPrefix+">", s.Handle)
	if err != nil {
		return err
	}
	s.sub = sub

	slog.Info("subscribed to domain events", slog.String("subject", SubjectPrefix+">"))
	return nil
}

// Stop unsubscribes from the bus.
func (s *Subscriber) Stop() error {
	if s.sub != nil {
		return s.sub.Unsubscribe()
	}
	return nil
}

// Handle maps one bus message to a dispatcher call.
func (s *Subscriber) Handle(msg *nats.Msg) {
	ctx := context.Background()

	switch msg.Subject {
	case SubjectGradePosted:
		var ev GradeEvent
		if !s.decode(msg, &ev) {
			return
		}
		s.dispatcher.NotifyGrade(ctx, ev.StudentID, ev.Course, ev.Grade)

	case SubjectAssignmentCreated:
		var ev AssignmentEvent
		if !s.decode(msg, &ev) {
			return
		}
		s.dispatcher.NotifyAssignment(ctx, ev.StudentID, ev.Course, ev.Title, ev.DueDate)

	case SubjectAttendanceRecorded:
		var ev AttendanceEvent
		if !s.decode(msg, &ev) {
			return
		}
		s.dispatcher.NotifyAttendance(ctx, ev.StudentID, ev.Course, ev.Status, ev.Date)

	default:
		if strings.HasPrefix(msg.Subject, SubjectPrefix) {
			slog.Debug("ignoring unhandled event subject", slog.String("subject", msg.Subject))
		}
	}
}

func (s *Subscriber) decode(msg *nats.Msg, v any) bool {
	if err := json.Unmarshal(msg.Data, v); err != nil {
		slog.Warn("dropping malformed domain event",
			slog.String("subject", msg.Subject),
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}

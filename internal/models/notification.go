package models

import (
	"fmt"
	"strings"
	"time"
)

// Notification is the payload pushed to connected clients. Delivery is
// best effort: nothing is persisted and there is no replay.
type Notification struct {
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// Notification types used by the domain event bridge.
const (
	NotificationTypeGrade      = "grade"
	NotificationTypeAssignment = "assignment"
	NotificationTypeAttendance = "attendance"
	NotificationTypeSystem     = "system"
)

// TopicGroupPrefix marks group names a client may join on its own.
// Role and per-user groups are assigned server-side only.
const TopicGroupPrefix = "topic:"

// UserGroup returns the personal group name for a user id.
func UserGroup(userID string) string {
	return fmt.Sprintf("user_%s", userID)
}

// IsClientJoinable reports whether a connected client may self-join
// the named group.
func IsClientJoinable(group string) bool {
	return strings.HasPrefix(group, TopicGroupPrefix) && len(group) > len(TopicGroupPrefix)
}

// Package models defines the core data structures shared by the portal client
// and the development API server.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of portal roles a user can hold.
type Role string

const (
	// RoleAdmin manages users, events and opportunities across departments.
	RoleAdmin Role = "admin"
	// RoleStudent browses events and confirms attendance.
	RoleStudent Role = "student"
	// RoleHead manages the events and opportunities of one department.
	RoleHead Role = "head"
	// RoleEmployee publishes events and follows their confirmations.
	RoleEmployee Role = "employee"
)

// AllRoles lists every valid role in menu order.
var AllRoles = []Role{RoleAdmin, RoleStudent, RoleHead, RoleEmployee}

// Valid reports whether r belongs to the closed role set.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStudent, RoleHead, RoleEmployee:
		return true
	}
	return false
}

// ParseRole converts a raw role string (case-insensitive) into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// User is the identity record returned by the current-user endpoint.
type User struct {
	// ID is the unique identifier for the user.
	ID string `json:"id"`
	// Username is the login name chosen by the user.
	Username string `json:"username"`
	// Email is the address used to sign in.
	Email string `json:"email"`
	// FullName is the display name.
	FullName string `json:"full_name"`
	// Department the user belongs to, if any.
	Department string `json:"department"`
	// Role decides which views the user may open.
	Role Role `json:"role"`
}

// Event is a campus event published by an employee, a head or an admin.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location,omitempty"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Deadline    time.Time `json:"deadline"`
	Department  string    `json:"department,omitempty"`
	CreatedBy   string    `json:"created_by,omitempty"`
}

// Opportunity is an internship, job or volunteering offer.
type Opportunity struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Deadline    time.Time `json:"deadline"`
	Department  string    `json:"department,omitempty"`
}

// Notification is a message delivered to a single user.
type Notification struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Message          string    `json:"message"`
	NotificationType string    `json:"notification_type,omitempty"`
	IsRead           bool      `json:"is_read"`
	CreatedAt        time.Time `json:"created_at"`
}

// ConfirmationStatus is the state of a student's attendance confirmation.
type ConfirmationStatus string

// ConfirmationConfirmed is the only status a student may submit.
const ConfirmationConfirmed ConfirmationStatus = "confirmed"

// EventConfirmation records a student's attendance confirmation for an event.
type EventConfirmation struct {
	ID        string             `json:"id,omitempty"`
	EventID   string             `json:"event_id"`
	StudentID string             `json:"student_id,omitempty"`
	Status    ConfirmationStatus `json:"status"`
	Note      string             `json:"note,omitempty"`
	CreatedAt time.Time          `json:"created_at,omitzero"`
}

// ConfirmedStudent is a row of the confirmed-students listings.
type ConfirmedStudent struct {
	StudentID  string `json:"student_id"`
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	EventID    string `json:"event_id"`
	EventTitle string `json:"event_title"`
}

// DashboardStats holds the counters shown on every role dashboard.
// The API returns a flat object whose keys differ per role.
type DashboardStats map[string]int64

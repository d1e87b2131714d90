package models

import "time"

// Group is a mentor-owned cohort of students.
type Group struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	MentorID   string    `db:"mentor_id" json:"mentorId"`
	IsArchived bool      `db:"is_archived" json:"isArchived"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// MembershipStatus describes a student's standing in a group.
type MembershipStatus string

// MembershipStatusActive is the only status written by enrollment.
const MembershipStatusActive MembershipStatus = "active"

// Membership records that a student belongs to a group.
type Membership struct {
	ID        string           `db:"id" json:"id"`
	GroupID   string           `db:"group_id" json:"groupId"`
	StudentID string           `db:"student_id" json:"studentId"`
	Status    MembershipStatus `db:"status" json:"status"`
	JoinedAt  time.Time        `db:"joined_at" json:"joinedAt"`
}

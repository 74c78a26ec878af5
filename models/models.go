package models

import "fmt"

// UnknownStudentName is shown wherever a record references a student ID that is not on the roster
const UnknownStudentName = "Unknown"

// Student represents a student on the roster
type Student struct {
	ID    string `json:"id"`    // Unique student ID (e.g., student number)
	Name  string `json:"name"`  // Student name
	Class string `json:"class"` // Class/grade label
}

// AttendanceStatus is either present or absent
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
	StatusAbsent  AttendanceStatus = "absent"
)

// Valid reports whether s is one of the known statuses
func (s AttendanceStatus) Valid() bool {
	return s == StatusPresent || s == StatusAbsent
}

// AttendanceRecord is one attendance observation for a student on a given day
type AttendanceRecord struct {
	StudentID string           `json:"studentId"`
	Date      string           `json:"date"` // YYYY-MM-DD
	Status    AttendanceStatus `json:"status"`
}

// MarkRecord is one (student, subject, score) observation
type MarkRecord struct {
	StudentID string `json:"studentId"`
	Subject   string `json:"subject"`
	Score     int    `json:"score"` // Out of 100
}

// AttendanceRow is an attendance record joined with the student's name
type AttendanceRow struct {
	Index       int    `json:"index"`
	StudentName string `json:"studentName"`
	AttendanceRecord
}

// MarkRow is a mark record joined with the student's name
type MarkRow struct {
	Index       int    `json:"index"`
	StudentName string `json:"studentName"`
	MarkRecord
}

// PerformanceSummary is the derived per-student aggregate shown in the ranking
type PerformanceSummary struct {
	Rank             int      `json:"rank"` // 1-based, positional
	StudentID        string   `json:"studentId"`
	Name             string   `json:"name"`
	Subjects         []string `json:"subjects"`
	AverageScore     float64  `json:"averageScore"`
	AverageScoreText string   `json:"averageScoreText"`
}

// FormatScore renders an average with two decimals, e.g. 85 -> "85.00"
func FormatScore(avg float64) string {
	return fmt.Sprintf("%.2f", avg)
}

package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"roster-server-go/models"
	"roster-server-go/performance"
)

const (
	studentsKey   = "students"      // JSON array of models.Student
	attendanceKey = "attendance"    // JSON array of models.AttendanceRecord
	marksKey      = "academicMarks" // JSON array of models.MarkRecord

	dateLayout = "2006-01-02"
)

var (
	ErrDuplicateStudent  = errors.New("student ID already exists")
	ErrInvalidStudent    = errors.New("student ID, Name and Class cannot be empty")
	ErrInvalidAttendance = errors.New("attendance needs a student ID, a YYYY-MM-DD date and a present/absent status")
	ErrInvalidMark       = errors.New("marks need a student ID, a subject and a score between 0 and 100")
	ErrIndexOutOfRange   = errors.New("record index out of range")
)

// RecordService reads and writes the roster collections over a Store
type RecordService struct {
	Store Store

	// Writers hold the write lock for their whole read-modify-write cycle;
	// readers spanning several collections hold the read lock
	mu sync.RWMutex
}

// NewRecordService creates a new RecordService instance
func NewRecordService(store Store) *RecordService {
	return &RecordService{Store: store}
}

// InitializeStorage writes an empty array under every collection key that does not exist yet
func (s *RecordService) InitializeStorage(ctx context.Context) error {
	for _, key := range []string{studentsKey, attendanceKey, marksKey} {
		created, err := s.Store.SetIfAbsent(ctx, key, "[]")
		if err != nil {
			return fmt.Errorf("failed to initialize %s: %w", key, err)
		}
		if created {
			log.Printf("Initialized empty collection %q", key)
		}
	}
	return nil
}

// --- Collection access ---

// readCollection decodes the array stored under key. An absent key or a
// malformed value reads as an empty collection; only backend failures are errors.
func readCollection[T any](ctx context.Context, store Store, key string) ([]T, error) {
	raw, found, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	out := []T{}
	if !found {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		log.Printf("Warning: collection %q is malformed, treating it as empty: %v", key, err)
		return []T{}, nil
	}
	if out == nil {
		// "null" decodes to a nil slice
		out = []T{}
	}
	return out, nil
}

func writeCollection[T any](ctx context.Context, store Store, key string, items []T) error {
	data, err := encodeCollection(key, items)
	if err != nil {
		return err
	}
	return store.Set(ctx, key, data)
}

func encodeCollection[T any](key string, items []T) (string, error) {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return string(data), nil
}

// Students returns the stored students in insertion order
func (s *RecordService) Students(ctx context.Context) ([]models.Student, error) {
	return readCollection[models.Student](ctx, s.Store, studentsKey)
}

// SaveStudents replaces the stored students
func (s *RecordService) SaveStudents(ctx context.Context, students []models.Student) error {
	return writeCollection(ctx, s.Store, studentsKey, students)
}

// Attendance returns the stored attendance records in insertion order
func (s *RecordService) Attendance(ctx context.Context) ([]models.AttendanceRecord, error) {
	return readCollection[models.AttendanceRecord](ctx, s.Store, attendanceKey)
}

// SaveAttendance replaces the stored attendance records
func (s *RecordService) SaveAttendance(ctx context.Context, records []models.AttendanceRecord) error {
	return writeCollection(ctx, s.Store, attendanceKey, records)
}

// Marks returns the stored mark records in insertion order
func (s *RecordService) Marks(ctx context.Context) ([]models.MarkRecord, error) {
	return readCollection[models.MarkRecord](ctx, s.Store, marksKey)
}

// SaveMarks replaces the stored mark records
func (s *RecordService) SaveMarks(ctx context.Context, marks []models.MarkRecord) error {
	return writeCollection(ctx, s.Store, marksKey, marks)
}

// --- Student Operations ---

func normalizeStudent(st models.Student) models.Student {
	return models.Student{
		ID:    strings.TrimSpace(st.ID),
		Name:  strings.TrimSpace(st.Name),
		Class: strings.TrimSpace(st.Class),
	}
}

// ListStudents returns all students
func (s *RecordService) ListStudents(ctx context.Context) ([]models.Student, error) {
	return s.Students(ctx)
}

// AddStudent appends a student and returns the record as stored (fields trimmed).
// The ID must not already be on the roster.
func (s *RecordService) AddStudent(ctx context.Context, student models.Student) (models.Student, error) {
	student = normalizeStudent(student)
	if student.ID == "" || student.Name == "" || student.Class == "" {
		return models.Student{}, ErrInvalidStudent
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	students, err := s.Students(ctx)
	if err != nil {
		return models.Student{}, err
	}
	for _, existing := range students {
		if existing.ID == student.ID {
			return models.Student{}, ErrDuplicateStudent
		}
	}
	students = append(students, student)
	if err := s.SaveStudents(ctx, students); err != nil {
		return models.Student{}, err
	}
	log.Printf("Added student: %s (%s)", student.Name, student.ID)
	return student, nil
}

// UpdateStudent changes the name and class of the student at index. The ID is kept.
func (s *RecordService) UpdateStudent(ctx context.Context, index int, student models.Student) (models.Student, error) {
	student = normalizeStudent(student)
	if student.Name == "" || student.Class == "" {
		return models.Student{}, ErrInvalidStudent
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	students, err := s.Students(ctx)
	if err != nil {
		return models.Student{}, err
	}
	if index < 0 || index >= len(students) {
		return models.Student{}, ErrIndexOutOfRange
	}
	student.ID = students[index].ID
	students[index] = student
	if err := s.SaveStudents(ctx, students); err != nil {
		return models.Student{}, err
	}
	return student, nil
}

// DeleteStudent removes the student at index together with every attendance
// and mark record carrying the same student ID
func (s *RecordService) DeleteStudent(ctx context.Context, index int) (models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	students, err := s.Students(ctx)
	if err != nil {
		return models.Student{}, err
	}
	if index < 0 || index >= len(students) {
		return models.Student{}, ErrIndexOutOfRange
	}
	removed := students[index]
	students = append(students[:index], students[index+1:]...)

	attendance, err := s.Attendance(ctx)
	if err != nil {
		return models.Student{}, err
	}
	marks, err := s.Marks(ctx)
	if err != nil {
		return models.Student{}, err
	}
	attendance = filterOut(attendance, func(r models.AttendanceRecord) bool { return r.StudentID == removed.ID })
	marks = filterOut(marks, func(m models.MarkRecord) bool { return m.StudentID == removed.ID })

	values := make(map[string]string, 3)
	if values[studentsKey], err = encodeCollection(studentsKey, students); err != nil {
		return models.Student{}, err
	}
	if values[attendanceKey], err = encodeCollection(attendanceKey, attendance); err != nil {
		return models.Student{}, err
	}
	if values[marksKey], err = encodeCollection(marksKey, marks); err != nil {
		return models.Student{}, err
	}
	// One atomic write so a failure cannot leave orphaned attendance or marks
	if err := s.Store.SetMany(ctx, values); err != nil {
		return models.Student{}, fmt.Errorf("failed to delete student %s: %w", removed.ID, err)
	}
	log.Printf("Deleted student %s and their attendance and marks", removed.ID)
	return removed, nil
}

func filterOut[T any](items []T, drop func(T) bool) []T {
	kept := make([]T, 0, len(items))
	for _, it := range items {
		if !drop(it) {
			kept = append(kept, it)
		}
	}
	return kept
}

// --- Attendance Operations ---

func validAttendance(r models.AttendanceRecord) bool {
	if strings.TrimSpace(r.StudentID) == "" || !r.Status.Valid() {
		return false
	}
	_, err := time.Parse(dateLayout, r.Date)
	return err == nil
}

// ListAttendance returns attendance records joined with student names
func (s *RecordService) ListAttendance(ctx context.Context) ([]models.AttendanceRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := s.Attendance(ctx)
	if err != nil {
		return nil, err
	}
	students, err := s.Students(ctx)
	if err != nil {
		return nil, err
	}
	dir := performance.NewDirectory(students)
	rows := make([]models.AttendanceRow, 0, len(records))
	for i, r := range records {
		rows = append(rows, models.AttendanceRow{Index: i, StudentName: dir.NameOrUnknown(r.StudentID), AttendanceRecord: r})
	}
	return rows, nil
}

// MarkAttendance appends an attendance record. The student ID is not checked against the roster.
func (s *RecordService) MarkAttendance(ctx context.Context, record models.AttendanceRecord) error {
	if !validAttendance(record) {
		return ErrInvalidAttendance
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.Attendance(ctx)
	if err != nil {
		return err
	}
	return s.SaveAttendance(ctx, append(records, record))
}

// UpdateAttendance replaces the attendance record at index
func (s *RecordService) UpdateAttendance(ctx context.Context, index int, record models.AttendanceRecord) error {
	if !validAttendance(record) {
		return ErrInvalidAttendance
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.Attendance(ctx)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(records) {
		return ErrIndexOutOfRange
	}
	records[index] = record
	return s.SaveAttendance(ctx, records)
}

// DeleteAttendance removes the attendance record at index
func (s *RecordService) DeleteAttendance(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.Attendance(ctx)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(records) {
		return ErrIndexOutOfRange
	}
	return s.SaveAttendance(ctx, append(records[:index], records[index+1:]...))
}

// --- Marks Operations ---

// ListMarks returns mark records joined with student names
func (s *RecordService) ListMarks(ctx context.Context) ([]models.MarkRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	marks, err := s.Marks(ctx)
	if err != nil {
		return nil, err
	}
	students, err := s.Students(ctx)
	if err != nil {
		return nil, err
	}
	dir := performance.NewDirectory(students)
	rows := make([]models.MarkRow, 0, len(marks))
	for i, m := range marks {
		rows = append(rows, models.MarkRow{Index: i, StudentName: dir.NameOrUnknown(m.StudentID), MarkRecord: m})
	}
	return rows, nil
}

// AddMark appends a mark record; the score must be within 0-100
func (s *RecordService) AddMark(ctx context.Context, mark models.MarkRecord) error {
	mark.StudentID = strings.TrimSpace(mark.StudentID)
	mark.Subject = strings.TrimSpace(mark.Subject)
	if mark.StudentID == "" || mark.Subject == "" || mark.Score < 0 || mark.Score > 100 {
		return ErrInvalidMark
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	marks, err := s.Marks(ctx)
	if err != nil {
		return err
	}
	return s.SaveMarks(ctx, append(marks, mark))
}

// UpdateMark replaces the mark record at index. The score range is not enforced here.
func (s *RecordService) UpdateMark(ctx context.Context, index int, mark models.MarkRecord) error {
	mark.StudentID = strings.TrimSpace(mark.StudentID)
	mark.Subject = strings.TrimSpace(mark.Subject)
	if mark.StudentID == "" || mark.Subject == "" {
		return ErrInvalidMark
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	marks, err := s.Marks(ctx)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(marks) {
		return ErrIndexOutOfRange
	}
	marks[index] = mark
	return s.SaveMarks(ctx, marks)
}

// DeleteMark removes the mark record at index
func (s *RecordService) DeleteMark(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	marks, err := s.Marks(ctx)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(marks) {
		return ErrIndexOutOfRange
	}
	return s.SaveMarks(ctx, append(marks[:index], marks[index+1:]...))
}

// --- Performance ---

// Performance returns the ranked per-student summaries; empty when there are no marks
func (s *RecordService) Performance(ctx context.Context) ([]models.PerformanceSummary, error) {
	marks, students, err := s.marksAndStudents(ctx)
	if err != nil {
		return nil, err
	}
	return performance.ComputeRanking(marks, students), nil
}

// marksAndStudents reads both collections under the read lock so they come from the same state
func (s *RecordService) marksAndStudents(ctx context.Context) ([]models.MarkRecord, []models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	marks, err := s.Marks(ctx)
	if err != nil {
		return nil, nil, err
	}
	students, err := s.Students(ctx)
	if err != nil {
		return nil, nil, err
	}
	return marks, students, nil
}

// --- Seed Data (Optional) ---

// SeedDemoData adds a few demo students when the roster is empty
func (s *RecordService) SeedDemoData(ctx context.Context) error {
	students, err := s.Students(ctx)
	if err != nil {
		return err
	}
	if len(students) > 0 {
		log.Printf("Found %d existing students. Skipping demo data.", len(students))
		return nil
	}

	log.Println("Seeding demo students...")
	demo := []models.Student{
		{ID: "S001", Name: "Alice", Class: "Grade 5"},
		{ID: "S002", Name: "Bob", Class: "Grade 5"},
		{ID: "S003", Name: "Charlie", Class: "Grade 6"},
	}
	for _, st := range demo {
		if _, err := s.AddStudent(ctx, st); err != nil {
			log.Printf("Error adding demo student %s: %v", st.ID, err)
		}
	}
	log.Println("Seeding complete.")
	return nil
}

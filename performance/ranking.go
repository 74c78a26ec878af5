// Package performance computes the ranked academic performance view from mark records.
package performance

import (
	"sort"

	"roster-server-go/models"
)

// Directory resolves student IDs to display names.
type Directory struct {
	names map[string]string
}

// NewDirectory indexes students by ID. Later entries win on duplicate IDs.
func NewDirectory(students []models.Student) Directory {
	names := make(map[string]string, len(students))
	for _, s := range students {
		names[s.ID] = s.Name
	}
	return Directory{names: names}
}

// Lookup returns the student's name and whether the ID is on the roster.
func (d Directory) Lookup(studentID string) (string, bool) {
	name, ok := d.names[studentID]
	return name, ok
}

// NameOrUnknown returns the student's name, or models.UnknownStudentName when the ID is not on the roster.
func (d Directory) NameOrUnknown(studentID string) string {
	if name, ok := d.Lookup(studentID); ok {
		return name
	}
	return models.UnknownStudentName
}

type tally struct {
	studentID string
	total     int
	count     int
	subjects  []string
	seen      map[string]struct{}
}

// ComputeRanking groups marks by student, averages each student's scores and
// returns one summary per student with at least one mark, sorted by average
// descending. Ties keep the order in which the students first appear in marks.
// Ranks are positional and 1-based.
func ComputeRanking(marks []models.MarkRecord, students []models.Student) []models.PerformanceSummary {
	dir := NewDirectory(students)

	var order []*tally
	byID := make(map[string]*tally)
	for _, m := range marks {
		t, ok := byID[m.StudentID]
		if !ok {
			t = &tally{studentID: m.StudentID, seen: make(map[string]struct{})}
			byID[m.StudentID] = t
			order = append(order, t)
		}
		t.total += m.Score
		t.count++
		if _, dup := t.seen[m.Subject]; !dup {
			t.seen[m.Subject] = struct{}{}
			t.subjects = append(t.subjects, m.Subject)
		}
	}

	out := make([]models.PerformanceSummary, 0, len(order))
	for _, t := range order {
		avg := float64(t.total) / float64(t.count)
		out = append(out, models.PerformanceSummary{
			StudentID:        t.studentID,
			Name:             dir.NameOrUnknown(t.studentID),
			Subjects:         t.subjects,
			AverageScore:     avg,
			AverageScoreText: models.FormatScore(avg),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AverageScore > out[j].AverageScore
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

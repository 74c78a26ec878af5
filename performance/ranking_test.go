package performance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster-server-go/models"
)

func TestComputeRanking_Empty(t *testing.T) {
	got := ComputeRanking(nil, []models.Student{{ID: "s1", Name: "Alice", Class: "5A"}})
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestComputeRanking_AverageAndSubjects(t *testing.T) {
	students := []models.Student{
		{ID: "s1", Name: "Alice", Class: "5A"},
		{ID: "s2", Name: "Bob", Class: "5A"},
	}
	marks := []models.MarkRecord{
		{StudentID: "s1", Subject: "Math", Score: 80},
		{StudentID: "s2", Subject: "Math", Score: 70},
		{StudentID: "s1", Subject: "Science", Score: 90},
		{StudentID: "s1", Subject: "Math", Score: 85},
	}

	got := ComputeRanking(marks, students)
	require.Len(t, got, 2)

	assert.Equal(t, "s1", got[0].StudentID)
	assert.Equal(t, "Alice", got[0].Name)
	assert.InDelta(t, 85.0, got[0].AverageScore, 1e-9)
	assert.Equal(t, "85.00", got[0].AverageScoreText)
	assert.Equal(t, []string{"Math", "Science"}, got[0].Subjects)
	assert.Equal(t, 1, got[0].Rank)

	assert.Equal(t, "s2", got[1].StudentID)
	assert.Equal(t, "70.00", got[1].AverageScoreText)
	assert.Equal(t, 2, got[1].Rank)
}

func TestComputeRanking_TwoDecimalAverage(t *testing.T) {
	marks := []models.MarkRecord{
		{StudentID: "s1", Subject: "Math", Score: 80},
		{StudentID: "s1", Subject: "Art", Score: 90},
		{StudentID: "s1", Subject: "PE", Score: 91},
	}
	got := ComputeRanking(marks, nil)
	require.Len(t, got, 1)
	assert.Equal(t, "87.00", got[0].AverageScoreText)

	marks = append(marks, models.MarkRecord{StudentID: "s1", Subject: "Music", Score: 100})
	got = ComputeRanking(marks, nil)
	assert.Equal(t, "90.25", got[0].AverageScoreText)
}

func TestComputeRanking_UnknownStudent(t *testing.T) {
	marks := []models.MarkRecord{{StudentID: "ghost", Subject: "Math", Score: 50}}
	got := ComputeRanking(marks, []models.Student{{ID: "s1", Name: "Alice"}})
	require.Len(t, got, 1)
	assert.Equal(t, models.UnknownStudentName, got[0].Name)
	assert.Equal(t, "ghost", got[0].StudentID)
}

func TestComputeRanking_ExcludesStudentsWithoutMarks(t *testing.T) {
	students := []models.Student{{ID: "s1", Name: "Alice"}, {ID: "s2", Name: "Bob"}}
	marks := []models.MarkRecord{{StudentID: "s2", Subject: "Math", Score: 60}}
	got := ComputeRanking(marks, students)
	require.Len(t, got, 1)
	assert.Equal(t, "s2", got[0].StudentID)
}

func TestComputeRanking_SortedNonIncreasingWithPositionalTies(t *testing.T) {
	marks := []models.MarkRecord{
		{StudentID: "a", Subject: "X", Score: 40},
		{StudentID: "b", Subject: "X", Score: 75},
		{StudentID: "c", Subject: "X", Score: 75},
		{StudentID: "d", Subject: "X", Score: 99},
		{StudentID: "e", Subject: "X", Score: 10},
	}
	got := ComputeRanking(marks, nil)
	require.Len(t, got, 5)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].AverageScore, got[i].AverageScore)
		assert.Equal(t, i+1, got[i].Rank)
	}
	// b appears before c in the input, so it keeps the higher rank
	assert.Equal(t, "b", got[1].StudentID)
	assert.Equal(t, "c", got[2].StudentID)
	assert.Equal(t, 2, got[1].Rank)
	assert.Equal(t, 3, got[2].Rank)
}

func TestDirectory_Lookup(t *testing.T) {
	dir := NewDirectory([]models.Student{{ID: "s1", Name: "Alice"}})

	name, ok := dir.Lookup("s1")
	assert.True(t, ok)
	assert.Equal(t, "Alice", name)

	_, ok = dir.Lookup("s2")
	assert.False(t, ok)
	assert.Equal(t, models.UnknownStudentName, dir.NameOrUnknown("s2"))
}

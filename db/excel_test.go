package db

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"roster-server-go/models"
)

func buildWorkbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf := new(bytes.Buffer)
	require.NoError(t, f.Write(buf))
	return buf
}

func TestImportStudentsFromExcel(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	addStudent(t, svc, models.Student{ID: "S001", Name: "Existing", Class: "5A"})

	book := buildWorkbook(t, [][]interface{}{
		{"Student ID", "Name", "Class"},
		{"S001", "Duplicate", "5A"},
		{"S002", "Bob", ""},
		{"S003", "Carol", "6C"},
		{"", "No ID", "6C"},
		{"S004", ""},
		{"S003", "Carol Again", "6C"},
	})

	count, err := svc.ImportStudentsFromExcel(ctx, book, "5B")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	students, err := svc.Students(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Student{
		{ID: "S001", Name: "Existing", Class: "5A"},
		{ID: "S002", Name: "Bob", Class: "5B"},
		{ID: "S003", Name: "Carol", Class: "6C"},
	}, students)
}

func TestImportStudentsFromExcel_NotAWorkbook(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.ImportStudentsFromExcel(context.Background(), bytes.NewBufferString("id,name\n1,a\n"), "5A")
	assert.Error(t, err)
}

func TestExportPerformanceExcel(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	seedRoster(t, svc)
	require.NoError(t, svc.AddMark(ctx, models.MarkRecord{StudentID: "ghost", Subject: "Art", Score: 40}))

	buf := new(bytes.Buffer)
	require.NoError(t, svc.ExportPerformanceExcel(ctx, buf))

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{performanceSheet, marksSheet}, f.GetSheetList())

	rows, err := f.GetRows(performanceSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Rank", "Student ID", "Student Name", "Subjects", "Average Score"}, rows[0])
	assert.Equal(t, []string{"1", "s2", "Bob", "Math", "95.00"}, rows[1])
	assert.Equal(t, []string{"2", "s1", "Alice", "Math, Science", "85.00"}, rows[2])
	assert.Equal(t, []string{"3", "ghost", models.UnknownStudentName, "Art", "40.00"}, rows[3])

	markRows, err := f.GetRows(marksSheet)
	require.NoError(t, err)
	require.Len(t, markRows, 5)
	assert.Equal(t, []string{"s1", "Alice", "Math", "80"}, markRows[1])
	assert.Equal(t, []string{"ghost", models.UnknownStudentName, "Art", "40"}, markRows[4])
}

package db

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/xuri/excelize/v2"

	"roster-server-go/models"
	"roster-server-go/performance"
)

const (
	performanceSheet = "Performance"
	marksSheet       = "Marks"
)

// --- Excel Import ---

// ImportStudentsFromExcel reads an Excel file stream and adds its students to the roster.
// Column A is the student ID, column B the name and the optional column C the class;
// defaultClass is used when column C is empty. The first row is a header.
// Rows missing an ID or a name, and IDs already on the roster, are skipped.
func (s *RecordService) ImportStudentsFromExcel(ctx context.Context, file io.Reader, defaultClass string) (int, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		log.Printf("Error opening Excel reader: %v", err)
		return 0, fmt.Errorf("failed to open excel file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("Error closing excel file: %v", err)
		}
	}()

	// Assuming data is in the first sheet
	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return 0, errors.New("excel file does not contain any sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		log.Printf("Error getting rows from sheet '%s': %v", sheetName, err)
		return 0, fmt.Errorf("failed to get rows from sheet %s: %w", sheetName, err)
	}

	defaultClass = strings.TrimSpace(defaultClass)
	var parsed []models.Student
	for i, row := range rows {
		if i == 0 {
			continue // Skip header row
		}
		cell := func(col int) string {
			if len(row) > col {
				return strings.TrimSpace(row[col])
			}
			return ""
		}
		st := models.Student{ID: cell(0), Name: cell(1), Class: cell(2)}
		if st.Class == "" {
			st.Class = defaultClass
		}
		if st.ID == "" || st.Name == "" || st.Class == "" {
			log.Printf("Skipping row %d due to missing ID, Name or Class (ID: '%s', Name: '%s')", i+1, st.ID, st.Name)
			continue
		}
		parsed = append(parsed, st)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	students, err := s.Students(ctx)
	if err != nil {
		return 0, err
	}
	known := make(map[string]struct{}, len(students))
	for _, st := range students {
		known[st.ID] = struct{}{}
	}

	imported := 0
	for _, st := range parsed {
		if _, dup := known[st.ID]; dup {
			log.Printf("Skipping student %s (%s) during import: %v", st.Name, st.ID, ErrDuplicateStudent)
			continue
		}
		known[st.ID] = struct{}{}
		students = append(students, st)
		imported++
	}
	if imported == 0 {
		return 0, nil
	}
	if err := s.SaveStudents(ctx, students); err != nil {
		return 0, err
	}

	log.Printf("Successfully imported %d students from sheet %s", imported, sheetName)
	return imported, nil
}

// --- Excel Export ---

// ExportPerformanceExcel writes a workbook with the ranked performance on the
// first sheet and every mark record on the second.
func (s *RecordService) ExportPerformanceExcel(ctx context.Context, w io.Writer) error {
	marks, students, err := s.marksAndStudents(ctx)
	if err != nil {
		return err
	}
	ranking := performance.ComputeRanking(marks, students)
	dir := performance.NewDirectory(students)

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("Error closing excel file: %v", err)
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), performanceSheet); err != nil {
		return fmt.Errorf("failed to name performance sheet: %w", err)
	}
	if err := writeSheetRow(f, performanceSheet, 1, []interface{}{"Rank", "Student ID", "Student Name", "Subjects", "Average Score"}); err != nil {
		return err
	}
	for i, p := range ranking {
		row := []interface{}{p.Rank, p.StudentID, p.Name, strings.Join(p.Subjects, ", "), p.AverageScoreText}
		if err := writeSheetRow(f, performanceSheet, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(marksSheet); err != nil {
		return fmt.Errorf("failed to create marks sheet: %w", err)
	}
	if err := writeSheetRow(f, marksSheet, 1, []interface{}{"Student ID", "Student Name", "Subject", "Marks"}); err != nil {
		return err
	}
	for i, m := range marks {
		row := []interface{}{m.StudentID, dir.NameOrUnknown(m.StudentID), m.Subject, m.Score}
		if err := writeSheetRow(f, marksSheet, i+2, row); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write excel file: %w", err)
	}
	return nil
}

func writeSheetRow(f *excelize.File, sheet string, rowNum int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d of %s: %w", rowNum, sheet, err)
	}
	return nil
}

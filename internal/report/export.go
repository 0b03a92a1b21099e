package report

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExportGradesXLSX renders every grade row for a (program, term) into a
// workbook, one row per (student, subject). Used by the staff-facing
// export endpoint.
func (s *SQLStore) ExportGradesXLSX(ctx context.Context, programID, termName string) (*excelize.File, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.student_id, COALESCE(u.username, ''), g.subject_id, g.ca_score, g.exam_score, g.total_score, g.letter
		FROM grades g
		LEFT JOIN users u ON u.id = g.student_id
		WHERE g.program_id=$1 AND g.term=$2
		ORDER BY g.student_id, g.subject_id`,
		programID, termName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	f := excelize.NewFile()
	sheet := "Grades"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Student ID", "Username", "Subject", "CA (40)", "Exam (60)", "Total", "Grade"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	rowNum := 2
	for rows.Next() {
		var studentID, username, subjectID, letter string
		var ca, exam, total float64
		if err := rows.Scan(&studentID, &username, &subjectID, &ca, &exam, &total, &letter); err != nil {
			return nil, err
		}
		values := []interface{}{studentID, username, subjectID, ca, exam, total, letter}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, rowNum)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
		rowNum++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	title := fmt.Sprintf("%s %s", programID, termName)
	_ = f.SetDocProps(&excelize.DocProperties{Title: title})
	return f, nil
}

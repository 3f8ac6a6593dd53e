package services

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/luct-edu/lecture-reporting-service/internal/models"
	"github.com/luct-edu/lecture-reporting-service/internal/repositories"
	"github.com/luct-edu/lecture-reporting-service/internal/validator"
)

const (
	exportSheet     = "Reports"
	exportBatchSize = 500
	exportMaxRows   = 20000
)

var exportHeader = []interface{}{
	"Week", "Date", "Faculty", "Course", "Class Code", "Lecturer",
	"Present", "Registered", "Attendance %", "Venue", "Time",
	"Topic", "Learning Outcomes", "Recommendations", "Status", "Feedback",
}

// Export writes every report matching params as one workbook row.
// Pagination in params is ignored.
func (s *reportService) Export(ctx context.Context, actor Actor, params models.ListReportsParams, w io.Writer) error {
	if !actor.HasRole(models.RolePRL, models.RolePL) {
		return NewPermissionError(actor.ID, 0, "report", "export", "only PRL, PL and admins export reports")
	}

	filters, err := s.buildFilters(actor, params)
	if err != nil {
		return err
	}
	filters.Limit = exportBatchSize
	if filters.SortBy == "" {
		filters.SortBy = "lecture_date"
	}

	// batches read inside one transaction, which skips the list cache
	var reports []*models.Report
	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		for offset := 0; offset < exportMaxRows; offset += exportBatchSize {
			filters.Offset = offset
			batch, _, err := txRepo.Report().List(ctx, nil, filters)
			if err != nil {
				return err
			}
			reports = append(reports, batch...)
			if len(batch) < exportBatchSize {
				break
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to load reports: %w", err)
	}

	ids := make([]uint, len(reports))
	for i, r := range reports {
		ids[i] = r.ID
	}
	counts, err := s.repo.Report().CountFeedback(ctx, nil, ids)
	if err != nil {
		return fmt.Errorf("failed to count feedback: %w", err)
	}

	wb, err := buildReportWorkbook(reports, counts)
	if err != nil {
		return err
	}
	defer wb.Close()

	if _, err := wb.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Info("Reports exported", "rows", len(reports), "user_id", actor.ID)
	return nil
}

func buildReportWorkbook(reports []*models.Report, feedbackCounts map[uint]int64) (*excelize.File, error) {
	wb := excelize.NewFile()
	if err := wb.SetSheetName(wb.GetSheetName(0), exportSheet); err != nil {
		wb.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := wb.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		wb.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	if style, err := wb.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(exportHeader), 1)
		_ = wb.SetCellStyle(exportSheet, "A1", last, style)
	}
	_ = wb.SetPanes(exportSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	for i, r := range reports {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			wb.Close()
			return nil, err
		}
		row := reportRow(r, feedbackCounts[r.ID])
		if err := wb.SetSheetRow(exportSheet, cell, &row); err != nil {
			wb.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	return wb, nil
}

func reportRow(r *models.Report, feedback int64) []interface{} {
	var faculty, course, classCode, lecturer, recommendations string
	if r.Faculty != nil {
		faculty = r.Faculty.Name
	}
	if r.Course != nil {
		course = r.Course.Code + " " + r.Course.Name
	}
	if r.Class != nil {
		classCode = r.Class.ClassCode
	}
	if r.Lecturer != nil {
		lecturer = r.Lecturer.FullName
	}
	if r.Recommendations != nil {
		recommendations = *r.Recommendations
	}

	return []interface{}{
		r.Week,
		time.Time(r.LectureDate).Format(validator.DateLayout),
		faculty,
		course,
		classCode,
		lecturer,
		r.StudentsPresent,
		r.TotalRegistered,
		math.Round(r.AttendanceRate()*10) / 10,
		r.Venue,
		r.ScheduledTime,
		r.Topic,
		r.LearningOutcomes,
		recommendations,
		string(r.Status),
		feedback,
	}
}

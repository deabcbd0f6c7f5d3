package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"schulmanager-sync/internal/model"
)

// FetchExams pulls the exam list for one student over the user-configured
// date window; a zero range falls back to the current week.
func (c *Client) FetchExams(ctx context.Context, studentID string, dateRange model.DateRangeConfig) ([]model.ExamItem, error) {
	student, ok := c.findStudent(studentID)
	if !ok {
		c.log.Warn().Str("student_id", studentID).Msg("Student info not found")
		return []model.ExamItem{}, nil
	}

	bundleVersion, err := c.requireBundleVersion(ctx)
	if err != nil {
		return []model.ExamItem{}, err
	}
	token, _ := c.sessionState()

	sid, err := strconv.ParseInt(studentID, 10, 64)
	if err != nil {
		return []model.ExamItem{}, fmt.Errorf("invalid student id %q: %w", studentID, err)
	}

	today := c.today()
	var start, end string
	if dateRange.PastDays > 0 || dateRange.FutureDays > 0 {
		start = today.AddDate(0, 0, -dateRange.PastDays).Format("2006-01-02")
		end = today.AddDate(0, 0, dateRange.FutureDays).Format("2006-01-02")
	} else {
		startOfWeek := today.AddDate(0, 0, -mondayOffset(today))
		start = startOfWeek.Format("2006-01-02")
		end = startOfWeek.AddDate(0, 0, 6).Format("2006-01-02")
	}

	firstname, lastname := splitName(student.Name)
	payload := model.BatchPayload{
		BundleVersion: bundleVersion,
		Requests: []model.CallRequest{
			{
				ModuleName:   "exams",
				EndpointName: "get-exams",
				Parameters: map[string]any{
					"student": map[string]any{
						"id":        sid,
						"firstname": firstname,
						"lastname":  lastname,
						"sex":       "Male",
						"classId":   student.ClassID,
					},
					"start": start,
					"end":   end,
				},
			},
		},
	}

	resp, err := c.postBatch(ctx, token, payload, "exams_"+studentID)
	if err != nil {
		return []model.ExamItem{}, err
	}

	for _, result := range resp.Results {
		if !result.OK() || result.Data == nil {
			continue
		}
		var exams []model.ExamItem
		if err := json.Unmarshal(result.Data, &exams); err != nil {
			continue
		}
		c.log.Debug().Int("count", len(exams)).Str("student_id", studentID).
			Msg("Fetched exams")
		return exams, nil
	}

	c.log.Debug().Str("student_id", studentID).Msg("No exams found")
	return []model.ExamItem{}, nil
}

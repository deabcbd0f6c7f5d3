package portal

import (
	"context"
	"fmt"

	"schulmanager-sync/internal/config"
	"schulmanager-sync/internal/model"
	"schulmanager-sync/pkg/errors"
)

// Service is the portal contract consumed by the coordinator: a full
// snapshot per refresh cycle, a roster accessor and a cache reset.
type Service interface {
	Authenticate(ctx context.Context) error
	Students() []model.Student
	Update(ctx context.Context, features map[string]bool, dateRange model.DateRangeConfig) (*model.IntegrationData, error)
	ClearAuthCache()
}

// Authenticate logs in and fails when the account turns out to span
// several schools; those accounts must be configured with an explicit
// school list and handled by the multi-school client.
func (c *Client) Authenticate(ctx context.Context) error {
	choices, err := c.Login(ctx)
	if err != nil {
		return err
	}
	if len(choices) > 0 {
		return fmt.Errorf("%w: configure the schools list to select accounts", errors.ErrMultipleAccounts)
	}
	return nil
}

// Update rebuilds the full snapshot: for every student the enabled
// features are fetched sequentially, and a failing fetch degrades to the
// feature's empty default without aborting the remaining fetches. Login
// and bundle discovery run at most once per cycle via the shared
// ensure-authenticated gate.
func (c *Client) Update(ctx context.Context, features map[string]bool, dateRange model.DateRangeConfig) (*model.IntegrationData, error) {
	if err := c.ensureAuthenticated(ctx); err != nil {
		return nil, err
	}

	enabled := func(name string) bool {
		if features == nil {
			return true
		}
		v, ok := features[name]
		return !ok || v
	}

	weeks := dateRange.ScheduleWeeks
	if weeks == 0 {
		weeks = config.DefaultScheduleWeeks
	}

	data := model.NewIntegrationData()
	data.Students = c.Students()

	for _, student := range data.Students {
		sid := student.ID

		if enabled("homework") {
			homework, err := c.FetchHomework(ctx, sid)
			if err != nil {
				c.log.Warn().Err(err).Str("student_id", sid).Msg("Homework fetch failed")
				homework = []model.HomeworkItem{}
			}
			data.Homework[sid] = homework
		} else {
			data.Homework[sid] = []model.HomeworkItem{}
		}

		if enabled("schedule") {
			schedule, err := c.FetchSchedule(ctx, sid, weeks)
			if err != nil {
				c.log.Warn().Err(err).Str("student_id", sid).Msg("Schedule fetch failed")
				schedule = model.EmptySchedulePayload()
			}
			data.Schedule[sid] = schedule
		} else {
			data.Schedule[sid] = model.EmptySchedulePayload()
		}

		if enabled("exams") {
			exams, err := c.FetchExams(ctx, sid, dateRange)
			if err != nil {
				c.log.Warn().Err(err).Str("student_id", sid).Msg("Exams fetch failed")
				exams = []model.ExamItem{}
			}
			data.Exams[sid] = exams
		} else {
			data.Exams[sid] = []model.ExamItem{}
		}

		if enabled("grades") {
			grades, err := c.FetchGrades(ctx, sid)
			if err != nil {
				c.log.Warn().Err(err).Str("student_id", sid).Msg("Grades fetch failed")
				grades = model.EmptyGradesPayload()
			}
			data.Grades[sid] = grades
		} else {
			data.Grades[sid] = model.EmptyGradesPayload()
		}
	}

	c.dumpRequest("hub_data", map[string]any{"students": len(data.Students)})
	return data, nil
}

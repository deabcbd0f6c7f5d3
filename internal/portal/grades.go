package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"schulmanager-sync/internal/model"
)

// legacyBundleVersion is only used for the subject lookup when discovery
// has not produced a version yet; the endpoint tolerates stale versions.
const legacyBundleVersion = "7aa63feca5"

const defaultGradeCategory = "Sonstige"

// ParseGermanGrade converts a raw grade value into a numeric grade.
// Accepted forms: plain numbers, decimal strings, "4+"/"4-" tendency
// suffixes (both map to the base grade) and the "0~3" prefix form, with an
// optional tendency after the separator. Anything else is unparseable and
// returns nil; such grades are excluded from every average.
func ParseGermanGrade(value model.GradeValue) *float64 {
	if value.IsNumber {
		v := value.Number
		return &v
	}

	s := strings.TrimSpace(value.Raw)
	if s == "" {
		return nil
	}

	if strings.Contains(s, "~") {
		parts := strings.Split(s, "~")
		if len(parts) != 2 {
			return nil
		}
		s = strings.TrimSuffix(strings.TrimSuffix(parts[1], "+"), "-")
		return parseGradeFloat(s)
	}

	if strings.HasSuffix(s, "+") || strings.HasSuffix(s, "-") {
		return parseGradeFloat(s[:len(s)-1])
	}

	return parseGradeFloat(s)
}

func parseGradeFloat(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// gradeTendency extracts the plus/minus marker of a raw grade string. The
// tendency never feeds the numeric average; it is metadata only.
func gradeTendency(value model.GradeValue) string {
	if value.IsNumber {
		return ""
	}
	switch {
	case strings.HasSuffix(value.Raw, "+"):
		return "plus"
	case strings.HasSuffix(value.Raw, "-"):
		return "minus"
	}
	return ""
}

// subjectAverage is the unweighted mean of all valid numeric grades across
// all categories, rounded to two decimals. Derived values outside the
// German 1-6 scale are excluded.
func subjectAverage(categories map[string][]model.GradeEntry) *float64 {
	var sum float64
	var count int
	for _, entries := range categories {
		for _, entry := range entries {
			if entry.NumericValue == nil {
				continue
			}
			v := *entry.NumericValue
			if v < 1.0 || v > 6.0 {
				continue
			}
			sum += v
			count++
		}
	}
	if count == 0 {
		return nil
	}
	avg := round2(sum / float64(count))
	return &avg
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// academicYearWindow returns the August-to-July school year containing the
// reference date.
func academicYearWindow(today time.Time) (start, end time.Time) {
	year := today.Year()
	if today.Month() >= time.August {
		start = time.Date(year, time.August, 1, 0, 0, 0, 0, today.Location())
		end = time.Date(year+1, time.July, 31, 0, 0, 0, 0, today.Location())
	} else {
		start = time.Date(year-1, time.August, 1, 0, 0, 0, 0, today.Location())
		end = time.Date(year, time.July, 31, 0, 0, 0, 0, today.Location())
	}
	return start, end
}

// FetchGrades pulls the school-year grading payload for one student and
// normalizes it into per-subject categories with averages.
func (c *Client) FetchGrades(ctx context.Context, studentID string) (model.GradesPayload, error) {
	sid, err := strconv.ParseInt(studentID, 10, 64)
	if err != nil {
		return model.EmptyGradesPayload(), fmt.Errorf("invalid student id %q: %w", studentID, err)
	}

	bundleVersion, err := c.requireBundleVersion(ctx)
	if err != nil {
		return model.EmptyGradesPayload(), err
	}
	token, _ := c.sessionState()

	start, end := academicYearWindow(c.today())

	payload := model.BatchPayload{
		BundleVersion: bundleVersion,
		Requests: []model.CallRequest{
			{
				ModuleName:   "grades",
				EndpointName: "get-grading-information-for-student",
				Parameters: map[string]any{
					"studentId":         sid,
					"termId":            c.cfg.TermID(),
					"start":             start.Format("2006-01-02"),
					"end":               end.Format("2006-01-02"),
					"gradingPeriodType": "entireYear",
				},
			},
		},
	}

	resp, err := c.postBatch(ctx, token, payload, "grades_"+studentID)
	if err != nil {
		return model.EmptyGradesPayload(), err
	}

	subjects := c.fetchSubjects(ctx)

	for _, result := range resp.Results {
		if !result.OK() || result.Data == nil {
			continue
		}
		var info model.GradingInformation
		if err := json.Unmarshal(result.Data, &info); err != nil {
			c.log.Warn().Err(err).Str("student_id", studentID).
				Msg("Unexpected grading payload shape")
			continue
		}
		return processGrades(info, subjects), nil
	}

	c.log.Debug().Str("student_id", studentID).Msg("No grades found")
	return model.EmptyGradesPayload(), nil
}

// fetchSubjects retrieves the subject list once per session via the
// generic query endpoint and caches it by subject id. Failures degrade to
// an empty lookup; grade processing then falls back to course names.
func (c *Client) fetchSubjects(ctx context.Context) map[int64]model.SubjectInfo {
	c.mu.Lock()
	if c.subjectsCache != nil {
		cached := c.subjectsCache
		c.mu.Unlock()
		return cached
	}
	c.mu.Unlock()

	if err := c.ensureAuthenticated(ctx); err != nil {
		c.log.Warn().Err(err).Msg("Cannot fetch subjects without session")
		return map[int64]model.SubjectInfo{}
	}
	token, bundleVersion := c.sessionState()
	if bundleVersion == "" {
		bundleVersion = legacyBundleVersion
	}

	payload := model.BatchPayload{
		BundleVersion: bundleVersion,
		Requests: []model.CallRequest{
			{
				ModuleName:   "grades",
				EndpointName: "poqa",
				Parameters: map[string]any{
					"action": map[string]any{
						"model":  "main/subject",
						"action": "findAll",
						"parameters": []any{map[string]any{
							"attributes": []string{"id", "name", "abbreviation", "orderIndex", "officialKey"},
						}},
					},
					"uiState": "main.modules.grades.student",
				},
			},
		},
	}

	resp, err := c.postBatch(ctx, token, payload, "subjects")
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to fetch subjects")
		return map[int64]model.SubjectInfo{}
	}
	if len(resp.Results) == 0 || !resp.Results[0].OK() || resp.Results[0].Data == nil {
		c.log.Warn().Msg("No results in subjects response")
		return map[int64]model.SubjectInfo{}
	}

	var subjects []model.SubjectInfo
	if err := json.Unmarshal(resp.Results[0].Data, &subjects); err != nil {
		c.log.Warn().Err(err).Msg("Unexpected subjects payload shape")
		return map[int64]model.SubjectInfo{}
	}

	cache := make(map[int64]model.SubjectInfo, len(subjects))
	for _, s := range subjects {
		if s.ID == 0 {
			continue
		}
		if s.Name == "" {
			s.Name = fmt.Sprintf("Fach %d", s.ID)
		}
		if s.Abbreviation == "" {
			s.Abbreviation = fmt.Sprintf("F%d", s.ID)
		}
		cache[s.ID] = s
	}

	c.mu.Lock()
	c.subjectsCache = cache
	c.mu.Unlock()

	c.log.Debug().Int("subjects", len(cache)).Msg("Cached subjects")
	return cache
}

// deriveSubjectInfo resolves a display name and abbreviation: subject
// lookup first, then the course name, then a synthetic label.
func deriveSubjectInfo(subjects map[int64]model.SubjectInfo, courseName string, subjectID int64) (name, abbreviation string) {
	if info, ok := subjects[subjectID]; ok {
		return info.Name, info.Abbreviation
	}
	if courseName != "" {
		abbr := courseName
		if len(abbr) > 3 {
			abbr = abbr[:3]
		}
		return courseName, strings.ToUpper(abbr)
	}
	return fmt.Sprintf("Fach %d", subjectID), fmt.Sprintf("F%d", subjectID)
}

// processGrades joins the course/grade-type lookups of the grading payload
// and groups the parsed entries per subject and category.
func processGrades(info model.GradingInformation, subjects map[int64]model.SubjectInfo) model.GradesPayload {
	courseMap := make(map[int64]model.Course, len(info.Courses))
	for _, course := range info.Courses {
		courseMap[course.ID] = course
	}

	typeMap := map[int64]model.GradeType{}
	for _, preset := range info.TypePresets {
		if preset.GradeType != nil {
			typeMap[preset.GradeType.ID] = *preset.GradeType
		}
	}

	// Best display name per subject; longer course names win over stubs.
	subjectInfo := map[int64][2]string{}
	for _, course := range info.Courses {
		if course.SubjectID == 0 {
			continue
		}
		name, abbr := deriveSubjectInfo(subjects, course.Name, course.SubjectID)
		if _, seen := subjectInfo[course.SubjectID]; !seen || len(course.Name) > 3 {
			subjectInfo[course.SubjectID] = [2]string{name, abbr}
		}
	}

	out := model.EmptyGradesPayload()

	for _, event := range info.GradingEvents {
		course, ok := courseMap[event.CourseID]
		if !ok {
			continue
		}
		subjectID := course.SubjectID
		if subjectID == 0 {
			continue
		}

		subject, ok := out.Subjects[subjectID]
		if !ok {
			name := fmt.Sprintf("Fach %d", subjectID)
			abbr := fmt.Sprintf("F%d", subjectID)
			if pair, ok := subjectInfo[subjectID]; ok {
				name, abbr = pair[0], pair[1]
			}
			subject = &model.SubjectGrades{
				Name:         name,
				Abbreviation: abbr,
				Grades:       map[string][]model.GradeEntry{},
			}
			out.Subjects[subjectID] = subject
		}

		category := defaultGradeCategory
		if event.GradeTypeID != nil {
			if gradeType, ok := typeMap[*event.GradeTypeID]; ok && gradeType.Name != "" {
				category = gradeType.Name
			}
		}
		var typeAbbreviation string
		if event.GradeTypeID != nil {
			typeAbbreviation = typeMap[*event.GradeTypeID].Abbreviation
		}

		weighting := 1.0
		if event.Weighting != nil {
			weighting = *event.Weighting
		}

		for _, raw := range event.Grades {
			if raw.Value.IsEmpty() {
				continue
			}
			entry := model.GradeEntry{
				NumericValue:     ParseGermanGrade(raw.Value),
				OriginalValue:    raw.Value.Raw,
				Tendency:         gradeTendency(raw.Value),
				Date:             event.Date,
				Topic:            event.Topic,
				Weighting:        weighting,
				Duration:         event.DurationInMinutes,
				TypeAbbreviation: typeAbbreviation,
				IsRepeatExam:     raw.IsRepeatExam,
			}
			subject.Grades[category] = append(subject.Grades[category], entry)
		}
	}

	var subjectAverages []float64
	for _, subject := range out.Subjects {
		subject.Average = subjectAverage(subject.Grades)
		if subject.Average != nil {
			subjectAverages = append(subjectAverages, *subject.Average)
		}
	}

	if len(subjectAverages) > 0 {
		var sum float64
		for _, avg := range subjectAverages {
			sum += avg
		}
		overall := round2(sum / float64(len(subjectAverages)))
		out.OverallAverage = &overall
	}

	out.TotalSubjects = len(out.Subjects)
	out.SubjectsWithGrades = len(subjectAverages)
	return out
}

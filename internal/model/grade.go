package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// GradeValue tolerates the upstream habit of sending grade values either as
// JSON numbers or as German notational strings ("4-", "0~3+").
type GradeValue struct {
	Raw      string
	Number   float64
	IsNumber bool
}

func (v *GradeValue) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*v = GradeValue{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*v = GradeValue{Raw: str}
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*v = GradeValue{Raw: s, Number: n, IsNumber: true}
	return nil
}

func (v GradeValue) MarshalJSON() ([]byte, error) {
	if v.IsNumber {
		return json.Marshal(v.Number)
	}
	return json.Marshal(v.Raw)
}

func (v GradeValue) IsEmpty() bool {
	return !v.IsNumber && v.Raw == ""
}

// Raw shapes of grades/get-grading-information-for-student.

type Course struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	SubjectID int64  `json:"subjectId"`
}

type GradeType struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
}

type TypePreset struct {
	GradeType *GradeType `json:"gradeType"`
}

type RawGrade struct {
	Value        GradeValue `json:"value"`
	IsRepeatExam bool       `json:"isRepeatExam"`
}

type GradingEvent struct {
	CourseID          int64      `json:"courseId"`
	GradeTypeID       *int64     `json:"gradeTypeId"`
	Date              string     `json:"date"`
	Topic             string     `json:"topic"`
	Weighting         *float64   `json:"weighting"`
	DurationInMinutes *int       `json:"durationInMinutes"`
	Grades            []RawGrade `json:"grades"`
}

type GradingInformation struct {
	Courses       []Course       `json:"courses"`
	GradingEvents []GradingEvent `json:"gradingEvents"`
	TypePresets   []TypePreset   `json:"typePresets"`
}

type SubjectInfo struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
	OfficialKey  string `json:"officialKey,omitempty"`
	OrderIndex   int    `json:"orderIndex,omitempty"`
}

// Normalized shapes.

// GradeEntry is one scored assessment. NumericValue is absent when the raw
// value could not be parsed; such entries are kept for display but excluded
// from every average.
type GradeEntry struct {
	NumericValue     *float64 `json:"value,omitempty"`
	OriginalValue    string   `json:"original_value"`
	Tendency         string   `json:"tendency,omitempty"`
	Date             string   `json:"date,omitempty"`
	Topic            string   `json:"topic"`
	Weighting        float64  `json:"weighting"`
	Duration         *int     `json:"duration,omitempty"`
	TypeAbbreviation string   `json:"type_abbreviation"`
	IsRepeatExam     bool     `json:"is_repeat_exam"`
}

type SubjectGrades struct {
	Name         string                  `json:"name"`
	Abbreviation string                  `json:"abbreviation"`
	Average      *float64                `json:"average"`
	Grades       map[string][]GradeEntry `json:"grades"`
}

type GradesPayload struct {
	Subjects           map[int64]*SubjectGrades `json:"subjects"`
	OverallAverage     *float64                 `json:"overall_average"`
	TotalSubjects      int                      `json:"total_subjects"`
	SubjectsWithGrades int                      `json:"subjects_with_grades"`
}

// EmptyGradesPayload is the default used when a grades fetch fails or the
// feature is disabled.
func EmptyGradesPayload() GradesPayload {
	return GradesPayload{Subjects: map[int64]*SubjectGrades{}}
}

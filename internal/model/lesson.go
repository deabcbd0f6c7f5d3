package model

// Lesson variant tags as delivered by schedules/get-actual-lessons.
const (
	LessonRegular       = "regularLesson"
	LessonCancelled     = "cancelledLesson"
	LessonSubstitution  = "substitution"
	LessonSpecial       = "specialLesson"
	LessonRoomChange    = "roomChange"
	LessonTeacherChange = "teacherChange"
	LessonIrregular     = "irregularLesson"
	LessonExam          = "exam"
	LessonEvent         = "event"
)

type Subject struct {
	ID           int64  `json:"id,omitempty"`
	Name         string `json:"name,omitempty"`
	Abbreviation string `json:"abbreviation,omitempty"`
}

type Room struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type Teacher struct {
	ID           int64  `json:"id,omitempty"`
	Abbreviation string `json:"abbreviation,omitempty"`
	Firstname    string `json:"firstname,omitempty"`
	Lastname     string `json:"lastname,omitempty"`
}

type ClassHour struct {
	ID     int64  `json:"id,omitempty"`
	Number int    `json:"number,omitempty"`
	From   string `json:"from,omitempty"`
	Until  string `json:"until,omitempty"`
}

// LessonDetail is the subject/room/teacher tuple of either the actual
// lesson or one of the displaced originals.
type LessonDetail struct {
	Subject  *Subject  `json:"subject,omitempty"`
	Room     *Room     `json:"room,omitempty"`
	Teachers []Teacher `json:"teachers,omitempty"`
}

// Lesson is one scheduled period. Field presence varies with the variant
// tag: cancellations carry OriginalLessons, substitutions ActualLesson, and
// some payloads place the subject at the top level instead.
type Lesson struct {
	Type             string         `json:"type"`
	Date             string         `json:"date,omitempty"`
	Start            string         `json:"start,omitempty"`
	Day              string         `json:"day,omitempty"`
	ClassHour        *ClassHour     `json:"classHour,omitempty"`
	ActualLesson     *LessonDetail  `json:"actualLesson,omitempty"`
	OriginalLessons  []LessonDetail `json:"originalLessons,omitempty"`
	Subject          *Subject       `json:"subject,omitempty"`
	Room             *Room          `json:"room,omitempty"`
	Teachers         []Teacher      `json:"teachers,omitempty"`
	Comment          string         `json:"comment,omitempty"`
	SubstitutionText string         `json:"substitutionText,omitempty"`
}

// EffectiveDate resolves the lesson date with fixed priority: date, then
// start, then day, truncated to YYYY-MM-DD.
func (l *Lesson) EffectiveDate() string {
	for _, v := range []string{l.Date, l.Start, l.Day} {
		if v == "" {
			continue
		}
		if len(v) > 10 {
			return v[:10]
		}
		return v
	}
	return ""
}

// EffectiveDetail resolves the actual subject/room/teacher tuple, trying
// the embedded actual lesson before the top-level fields.
func (l *Lesson) EffectiveDetail() LessonDetail {
	if l.ActualLesson != nil {
		return *l.ActualLesson
	}
	return LessonDetail{Subject: l.Subject, Room: l.Room, Teachers: l.Teachers}
}

// HourNumber returns the ordinal class hour, or 0 when absent.
func (l *Lesson) HourNumber() int {
	if l.ClassHour == nil {
		return 0
	}
	return l.ClassHour.Number
}

// ScheduleChange summarizes one non-regular lesson with German labels.
type ScheduleChange struct {
	Type            string `json:"type"`
	Hour            string `json:"hour"`
	Date            string `json:"date"`
	OriginalSubject string `json:"original_subject"`
	NewSubject      string `json:"new_subject"`
	OriginalTeacher string `json:"original_teacher"`
	NewTeacher      string `json:"new_teacher"`
	OriginalRoom    string `json:"original_room"`
	NewRoom         string `json:"new_room"`
	Reason          string `json:"reason"`
	Note            string `json:"note"`
}

type ScheduleChanges struct {
	Today    []ScheduleChange `json:"today"`
	Tomorrow []ScheduleChange `json:"tomorrow"`
	Summary  string           `json:"summary"`
}

type SchedulePayload struct {
	Today    []Lesson            `json:"today"`
	Tomorrow []Lesson            `json:"tomorrow"`
	Week     map[string][]Lesson `json:"week"`
	Display  []DisplayLesson     `json:"display"`
	Changes  ScheduleChanges     `json:"changes"`
}

// DisplayLesson is one merged schedule block for calendar-style consumers.
// When a cancelled lesson and its replacement share the same date and hour
// the replacement becomes the primary lesson and the cancellation is folded
// into the description.
type DisplayLesson struct {
	Lesson      Lesson `json:"lesson"`
	Description string `json:"description,omitempty"`
}

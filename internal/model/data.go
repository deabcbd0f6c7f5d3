package model

// HomeworkItem and ExamItem are passed through as delivered by the portal;
// their field sets vary between schools and portal releases.
type HomeworkItem = map[string]any

type ExamItem = map[string]any

// DateRangeConfig carries the user-configured fetch windows.
type DateRangeConfig struct {
	PastDays      int `json:"past_days"`
	FutureDays    int `json:"future_days"`
	ScheduleWeeks int `json:"schedule_weeks"`
}

// IntegrationData is the full snapshot rebuilt on every refresh cycle.
// There is no incremental merge: consumers always see a complete view.
type IntegrationData struct {
	Students []Student                  `json:"students"`
	Homework map[string][]HomeworkItem  `json:"homework"`
	Schedule map[string]SchedulePayload `json:"schedule"`
	Exams    map[string][]ExamItem      `json:"exams"`
	Grades   map[string]GradesPayload   `json:"grades"`
}

func NewIntegrationData() *IntegrationData {
	return &IntegrationData{
		Students: []Student{},
		Homework: map[string][]HomeworkItem{},
		Schedule: map[string]SchedulePayload{},
		Exams:    map[string][]ExamItem{},
		Grades:   map[string]GradesPayload{},
	}
}

// EmptySchedulePayload is the default used when a schedule fetch fails or
// the feature is disabled.
func EmptySchedulePayload() SchedulePayload {
	return SchedulePayload{
		Today:    []Lesson{},
		Tomorrow: []Lesson{},
		Week:     map[string][]Lesson{},
		Display:  []DisplayLesson{},
		Changes: ScheduleChanges{
			Today:    []ScheduleChange{},
			Tomorrow: []ScheduleChange{},
			Summary:  NoChangesSummary,
		},
	}
}

// NoChangesSummary is the fixed sentence used when neither today nor
// tomorrow has any schedule change.
const NoChangesSummary = "Keine Stundenplanänderungen für heute und morgen"

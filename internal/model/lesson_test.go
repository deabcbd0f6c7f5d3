package model

import "testing"

func TestEffectiveDate(t *testing.T) {
	tests := []struct {
		name   string
		lesson Lesson
		want   string
	}{
		{"date wins", Lesson{Date: "2026-03-02", Start: "2026-03-03", Day: "2026-03-04"}, "2026-03-02"},
		{"start fallback", Lesson{Start: "2026-03-03T08:00:00+01:00"}, "2026-03-03"},
		{"day fallback", Lesson{Day: "2026-03-04"}, "2026-03-04"},
		{"nothing", Lesson{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.lesson.EffectiveDate(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestEffectiveDetail(t *testing.T) {
	actual := &LessonDetail{Subject: &Subject{Abbreviation: "D"}}
	lesson := Lesson{
		ActualLesson: actual,
		Subject:      &Subject{Abbreviation: "M"},
	}
	if got := lesson.EffectiveDetail(); got.Subject.Abbreviation != "D" {
		t.Errorf("embedded actual lesson must win, got %q", got.Subject.Abbreviation)
	}

	lesson = Lesson{Subject: &Subject{Abbreviation: "M"}, Room: &Room{Name: "112"}}
	got := lesson.EffectiveDetail()
	if got.Subject.Abbreviation != "M" || got.Room.Name != "112" {
		t.Errorf("top-level fields must be used as fallback: %+v", got)
	}
}

func TestHourNumber(t *testing.T) {
	if got := (&Lesson{}).HourNumber(); got != 0 {
		t.Errorf("missing class hour must be 0, got %d", got)
	}
	lesson := Lesson{ClassHour: &ClassHour{Number: 4}}
	if got := lesson.HourNumber(); got != 4 {
		t.Errorf("expected 4, got %d", got)
	}
}

package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"schulmanager-sync/internal/config"
	"schulmanager-sync/internal/model"
)

// German labels for the non-regular lesson variants.
var changeTypeLabels = map[string]string{
	model.LessonSubstitution:  "Vertretung",
	model.LessonCancelled:     "Entfall",
	model.LessonSpecial:       "Sonderstunde",
	model.LessonRoomChange:    "Raumänderung",
	model.LessonTeacherChange: "Lehrervertretung",
	model.LessonIrregular:     "Unregelmäßige Stunde",
	model.LessonExam:          "Prüfung",
	model.LessonEvent:         "Veranstaltung",
}

// FetchSchedule pulls the date-windowed lesson list for one student and
// normalizes it into today/tomorrow/week buckets plus structured change
// records. The window runs from Monday of the current week over `weeks`
// weeks, clamped to the current week plus at most two more.
func (c *Client) FetchSchedule(ctx context.Context, studentID string, weeks int) (model.SchedulePayload, error) {
	student, ok := c.findStudent(studentID)
	if !ok {
		c.log.Warn().Str("student_id", studentID).Msg("Student info not found")
		return model.EmptySchedulePayload(), nil
	}

	bundleVersion, err := c.requireBundleVersion(ctx)
	if err != nil {
		return model.EmptySchedulePayload(), err
	}
	token, _ := c.sessionState()

	if weeks < config.MinScheduleWeeks {
		weeks = config.MinScheduleWeeks
	}
	if weeks > config.MaxScheduleWeeks {
		weeks = config.MaxScheduleWeeks
	}

	today := c.today()
	startOfWeek := today.AddDate(0, 0, -mondayOffset(today))
	endOfRange := startOfWeek.AddDate(0, 0, 7*weeks-1)

	sid, err := strconv.ParseInt(studentID, 10, 64)
	if err != nil {
		return model.EmptySchedulePayload(), fmt.Errorf("invalid student id %q: %w", studentID, err)
	}

	firstname, lastname := splitName(student.Name)
	payload := model.BatchPayload{
		BundleVersion: bundleVersion,
		Requests: []model.CallRequest{
			{
				ModuleName:   "schedules",
				EndpointName: "get-actual-lessons",
				Parameters: map[string]any{
					"student": map[string]any{
						"id":        sid,
						"firstname": firstname,
						"lastname":  lastname,
						"classId":   student.ClassID,
						"class": map[string]any{
							"id":             student.ClassID,
							"name":           nil,
							"gradeLevels":    nil,
							"isCourseSystem": nil,
						},
					},
					"start": startOfWeek.Format("2006-01-02"),
					"end":   endOfRange.Format("2006-01-02"),
				},
			},
		},
	}

	resp, err := c.postBatch(ctx, token, payload, "schedule_batch_"+studentID)
	if err != nil {
		return model.EmptySchedulePayload(), err
	}

	return normalizeSchedule(resp, today), nil
}

// normalizeSchedule buckets the returned lessons by date and derives the
// merged display view, the structured change records and the German summary.
func normalizeSchedule(resp *model.BatchResponse, today time.Time) model.SchedulePayload {
	todayISO := today.Format("2006-01-02")
	tomorrowISO := today.AddDate(0, 0, 1).Format("2006-01-02")

	out := model.EmptySchedulePayload()
	var all []model.Lesson

	for _, result := range resp.Results {
		if !result.OK() || result.Data == nil {
			continue
		}
		var lessons []model.Lesson
		if err := json.Unmarshal(result.Data, &lessons); err != nil {
			continue
		}

		for _, lesson := range lessons {
			all = append(all, lesson)
			date := lesson.EffectiveDate()
			if date != "" {
				out.Week[date] = append(out.Week[date], lesson)
			}

			switch date {
			case todayISO:
				out.Today = append(out.Today, lesson)
				if change := detectLessonChange(lesson); change != nil {
					out.Changes.Today = append(out.Changes.Today, *change)
				}
			case tomorrowISO:
				out.Tomorrow = append(out.Tomorrow, lesson)
				if change := detectLessonChange(lesson); change != nil {
					out.Changes.Tomorrow = append(out.Changes.Tomorrow, *change)
				}
			}
		}
	}

	if len(all) > 0 {
		out.Display = MergeLessonsForDisplay(all)
	}
	out.Changes.Summary = changesSummary(out.Changes.Today, out.Changes.Tomorrow)
	return out
}

// detectLessonChange classifies one lesson; every variant other than the
// regular lesson is a change. Cancellations take their original triple from
// the first displaced lesson, everything else takes the new triple from the
// embedded actual lesson.
func detectLessonChange(lesson model.Lesson) *model.ScheduleChange {
	if lesson.Type == model.LessonRegular || lesson.Type == "" {
		return nil
	}

	label, ok := changeTypeLabels[lesson.Type]
	if !ok {
		label = lesson.Type
	}

	hour := "?"
	if n := lesson.HourNumber(); n > 0 {
		hour = strconv.Itoa(n)
	}

	change := &model.ScheduleChange{
		Type:   label,
		Hour:   hour,
		Date:   lesson.Date,
		Reason: lesson.SubstitutionText,
		Note:   lesson.Comment,
	}

	if lesson.Type == model.LessonCancelled && len(lesson.OriginalLessons) > 0 {
		original := lesson.OriginalLessons[0]
		if original.Subject != nil {
			change.OriginalSubject = original.Subject.Abbreviation
		}
		if len(original.Teachers) > 0 {
			change.OriginalTeacher = original.Teachers[0].Abbreviation
		}
		if original.Room != nil {
			change.OriginalRoom = original.Room.Name
		}
	}

	if lesson.ActualLesson != nil {
		if lesson.ActualLesson.Subject != nil {
			change.NewSubject = lesson.ActualLesson.Subject.Abbreviation
		}
		if len(lesson.ActualLesson.Teachers) > 0 {
			change.NewTeacher = lesson.ActualLesson.Teachers[0].Abbreviation
		}
		if lesson.ActualLesson.Room != nil {
			change.NewRoom = lesson.ActualLesson.Room.Name
		}
	}

	return change
}

// changesSummary renders the deterministic German paragraph enumerating
// today's and tomorrow's changes.
func changesSummary(today, tomorrow []model.ScheduleChange) string {
	if len(today) == 0 && len(tomorrow) == 0 {
		return model.NoChangesSummary
	}

	var parts []string
	parts = appendDaySummary(parts, "Heute", today)
	parts = appendDaySummary(parts, "Morgen", tomorrow)
	return strings.Join(parts, "\n")
}

func appendDaySummary(parts []string, day string, changes []model.ScheduleChange) []string {
	if len(changes) == 0 {
		return parts
	}

	countText := "Änderungen"
	if len(changes) == 1 {
		countText = "Änderung"
	}
	parts = append(parts, fmt.Sprintf("%s (%d %s):", day, len(changes), countText))

	for _, change := range changes {
		desc := fmt.Sprintf("  %s. Stunde: %s", change.Hour, change.Type)

		switch {
		case change.Type == "Entfall" && change.OriginalSubject != "":
			desc += fmt.Sprintf(" - %s entfällt", change.OriginalSubject)
			if change.OriginalTeacher != "" {
				desc += fmt.Sprintf(" (%s)", change.OriginalTeacher)
			}
		case change.Type == "Sonderstunde" && change.NewSubject != "":
			desc += " - " + change.NewSubject
			if change.NewTeacher != "" {
				desc += fmt.Sprintf(" (%s)", change.NewTeacher)
			}
			if change.NewRoom != "" {
				desc += " in Raum " + change.NewRoom
			}
		default:
			if change.NewSubject != "" {
				desc += " - " + change.NewSubject
			}
			if change.NewTeacher != "" {
				desc += fmt.Sprintf(" (%s)", change.NewTeacher)
			}
			if change.NewRoom != "" {
				desc += " in Raum " + change.NewRoom
			}
		}

		if change.Reason != "" {
			desc += " - " + change.Reason
		}
		parts = append(parts, desc)
	}
	return parts
}

// MergeLessonsForDisplay collapses a cancelled lesson and its replacement
// for the same date and hour into one display block: the replacement is the
// primary lesson and the cancelled original is folded into the description.
func MergeLessonsForDisplay(lessons []model.Lesson) []model.DisplayLesson {
	type slotKey struct {
		date string
		hour int
	}

	var order []slotKey
	slots := map[slotKey][]model.Lesson{}
	for _, lesson := range lessons {
		key := slotKey{date: lesson.EffectiveDate(), hour: lesson.HourNumber()}
		if _, seen := slots[key]; !seen {
			order = append(order, key)
		}
		slots[key] = append(slots[key], lesson)
	}

	var blocks []model.DisplayLesson
	for _, key := range order {
		group := slots[key]

		var primary *model.Lesson
		var cancelled *model.Lesson
		for i := range group {
			if group[i].Type == model.LessonCancelled {
				if cancelled == nil {
					cancelled = &group[i]
				}
			} else if primary == nil {
				primary = &group[i]
			}
		}

		switch {
		case primary != nil && cancelled != nil:
			blocks = append(blocks, model.DisplayLesson{
				Lesson:      *primary,
				Description: "Ursprünglich: " + describeOriginal(*cancelled),
			})
		case primary != nil:
			blocks = append(blocks, model.DisplayLesson{Lesson: *primary})
		case cancelled != nil:
			blocks = append(blocks, model.DisplayLesson{Lesson: *cancelled})
		}
	}
	return blocks
}

func describeOriginal(cancelled model.Lesson) string {
	detail := cancelled.EffectiveDetail()
	if len(cancelled.OriginalLessons) > 0 {
		detail = cancelled.OriginalLessons[0]
	}

	var parts []string
	if detail.Subject != nil && detail.Subject.Abbreviation != "" {
		parts = append(parts, detail.Subject.Abbreviation)
	}
	if len(detail.Teachers) > 0 && detail.Teachers[0].Abbreviation != "" {
		parts = append(parts, "("+detail.Teachers[0].Abbreviation+")")
	}
	if detail.Room != nil && detail.Room.Name != "" {
		parts = append(parts, "Raum "+detail.Room.Name)
	}
	if len(parts) == 0 {
		return "entfallene Stunde"
	}
	return strings.Join(parts, " ")
}

// mondayOffset returns how many days today lies past Monday.
func mondayOffset(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func splitName(name string) (first, last string) {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}

func (c *Client) findStudent(studentID string) (model.Student, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.students {
		if s.ID == studentID {
			return s, true
		}
	}
	return model.Student{}, false
}

func (c *Client) today() time.Time {
	now := c.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

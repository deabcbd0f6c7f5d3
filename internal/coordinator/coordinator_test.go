package coordinator

import (
	"context"
	"testing"
	"time"

	"schulmanager-sync/internal/config"
	"schulmanager-sync/internal/model"
	"schulmanager-sync/pkg/errors"
)

type fakePortal struct {
	data     *model.IntegrationData
	err      error
	updates  int
	cleared  bool
	students []model.Student
}

func (f *fakePortal) Authenticate(ctx context.Context) error { return nil }

func (f *fakePortal) Students() []model.Student { return f.students }

func (f *fakePortal) Update(ctx context.Context, features map[string]bool, dateRange model.DateRangeConfig) (*model.IntegrationData, error) {
	f.updates++
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

func (f *fakePortal) ClearAuthCache() { f.cleared = true }

type fakeStore struct {
	saved     *model.IntegrationData
	seen      map[string]map[string]bool
	published map[string][]any
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		seen:      map[string]map[string]bool{},
		published: map[string][]any{},
	}
}

func (f *fakeStore) SaveSnapshot(ctx context.Context, data *model.IntegrationData) error {
	f.saved = data
	return nil
}

func (f *fakeStore) SeenKeys(ctx context.Context, kind string) (map[string]bool, error) {
	out := map[string]bool{}
	for k := range f.seen[kind] {
		out[k] = true
	}
	return out, nil
}

func (f *fakeStore) MarkSeen(ctx context.Context, kind string, keys []string) error {
	if f.seen[kind] == nil {
		f.seen[kind] = map[string]bool{}
	}
	for _, k := range keys {
		f.seen[kind][k] = true
	}
	return nil
}

func (f *fakeStore) PublishEvent(ctx context.Context, channel string, payload any) error {
	f.published[channel] = append(f.published[channel], payload)
	return nil
}

func (f *fakeStore) HomeworkChannel() string { return "test.homework.new" }

func (f *fakeStore) GradeChannel() string { return "test.grade.new" }

func snapshotWithHomework(items ...model.HomeworkItem) *model.IntegrationData {
	data := model.NewIntegrationData()
	data.Students = []model.Student{{ID: "1001", Name: "Anna Schmidt"}}
	data.Homework["1001"] = items
	return data
}

func TestRefreshSeedsWithoutEvents(t *testing.T) {
	store := newFakeStore()
	portal := &fakePortal{data: snapshotWithHomework(
		model.HomeworkItem{"date": "2026-03-02", "subject": "Mathe", "homework": "Buch S. 12"},
	)}
	coord := New(&config.Config{}, portal, store)

	if _, err := coord.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	if len(store.published["test.homework.new"]) != 0 {
		t.Error("first refresh must not publish events")
	}
	if len(store.seen["homework"]) != 1 {
		t.Errorf("first refresh must seed the seen set, got %d keys", len(store.seen["homework"]))
	}
	if store.saved == nil {
		t.Error("snapshot must be persisted")
	}
	if coord.Data() == nil {
		t.Error("snapshot must be available via Data()")
	}
}

func TestRefreshPublishesNewHomework(t *testing.T) {
	store := newFakeStore()
	portal := &fakePortal{data: snapshotWithHomework(
		model.HomeworkItem{"date": "2026-03-02", "subject": "Mathe", "homework": "Buch S. 12"},
	)}
	coord := New(&config.Config{}, portal, store)

	if _, err := coord.Refresh(context.Background()); err != nil {
		t.Fatalf("seed refresh failed: %v", err)
	}

	portal.data = snapshotWithHomework(
		model.HomeworkItem{"date": "2026-03-02", "subject": "Mathe", "homework": "Buch S. 12"},
		model.HomeworkItem{"date": "2026-03-03", "subject": "Deutsch", "homework": "Gedicht lernen"},
	)
	if _, err := coord.Refresh(context.Background()); err != nil {
		t.Fatalf("second refresh failed: %v", err)
	}

	events := store.published["test.homework.new"]
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	event, ok := events[0].(HomeworkEvent)
	if !ok {
		t.Fatalf("unexpected event type %T", events[0])
	}
	if event.StudentName != "Anna Schmidt" {
		t.Errorf("unexpected student name %q", event.StudentName)
	}
	if event.Item["homework"] != "Gedicht lernen" {
		t.Errorf("unexpected item %+v", event.Item)
	}
	if len(store.seen["homework"]) != 2 {
		t.Errorf("seen set must grow to 2, got %d", len(store.seen["homework"]))
	}
}

func TestRefreshPublishesNewGrades(t *testing.T) {
	store := newFakeStore()

	grades := func(entries ...model.GradeEntry) *model.IntegrationData {
		data := model.NewIntegrationData()
		data.Students = []model.Student{{ID: "1001", Name: "Anna Schmidt"}}
		payload := model.EmptyGradesPayload()
		payload.Subjects[7] = &model.SubjectGrades{
			Name:   "Mathematik",
			Grades: map[string][]model.GradeEntry{"Klassenarbeit": entries},
		}
		data.Grades["1001"] = payload
		return data
	}

	portal := &fakePortal{data: grades(
		model.GradeEntry{Date: "2026-02-10", OriginalValue: "2", Topic: "Brüche"},
	)}
	coord := New(&config.Config{}, portal, store)

	if _, err := coord.Refresh(context.Background()); err != nil {
		t.Fatalf("seed refresh failed: %v", err)
	}

	portal.data = grades(
		model.GradeEntry{Date: "2026-02-10", OriginalValue: "2", Topic: "Brüche"},
		model.GradeEntry{Date: "2026-03-12", OriginalValue: "1-", Topic: "Geometrie"},
	)
	if _, err := coord.Refresh(context.Background()); err != nil {
		t.Fatalf("second refresh failed: %v", err)
	}

	events := store.published["test.grade.new"]
	if len(events) != 1 {
		t.Fatalf("expected 1 grade event, got %d", len(events))
	}
	event := events[0].(GradeEvent)
	if event.SubjectName != "Mathematik" || event.Grade.Topic != "Geometrie" {
		t.Errorf("unexpected event %+v", event)
	}
}

func TestRefreshUnchangedDataStaysQuiet(t *testing.T) {
	store := newFakeStore()
	portal := &fakePortal{data: snapshotWithHomework(
		model.HomeworkItem{"date": "2026-03-02", "subject": "Mathe", "homework": "Buch S. 12"},
	)}
	coord := New(&config.Config{}, portal, store)

	for i := 0; i < 3; i++ {
		if _, err := coord.Refresh(context.Background()); err != nil {
			t.Fatalf("refresh %d failed: %v", i, err)
		}
	}
	if len(store.published["test.homework.new"]) != 0 {
		t.Error("unchanged data must not publish events")
	}
}

func TestManualRefreshCooldown(t *testing.T) {
	store := newFakeStore()
	portal := &fakePortal{data: snapshotWithHomework()}
	coord := New(&config.Config{}, portal, store)

	current := time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)
	coord.Cooldown.now = func() time.Time { return current }

	if _, err := coord.ManualRefresh(context.Background()); err != nil {
		t.Fatalf("first manual refresh failed: %v", err)
	}
	if portal.updates != 1 {
		t.Fatalf("expected 1 update, got %d", portal.updates)
	}

	_, err := coord.ManualRefresh(context.Background())
	ce, ok := errors.IsCooldown(err)
	if !ok {
		t.Fatalf("expected cooldown error, got %v", err)
	}
	if ce.RemainingSeconds != 300 {
		t.Errorf("expected 300 seconds remaining, got %d", ce.RemainingSeconds)
	}
	if portal.updates != 1 {
		t.Error("blocked refresh must not reach the portal")
	}

	current = current.Add(5 * time.Minute)
	if _, err := coord.ManualRefresh(context.Background()); err != nil {
		t.Fatalf("refresh after cooldown failed: %v", err)
	}
	if portal.updates != 2 {
		t.Errorf("expected 2 updates, got %d", portal.updates)
	}
}

func TestHomeworkKey(t *testing.T) {
	item := model.HomeworkItem{"date": "2026-03-02", "subject": "Mathe", "homework": "Buch S. 12"}
	if got := homeworkKey("1001", item); got != "1001:2026-03-02:Mathe:Buch S. 12" {
		t.Errorf("unexpected key %q", got)
	}

	if got := homeworkKey("1001", model.HomeworkItem{"subject": "Mathe"}); got != "" {
		t.Errorf("item without date must not be keyed, got %q", got)
	}
	if got := homeworkKey("1001", model.HomeworkItem{"date": "2026-03-02"}); got != "" {
		t.Errorf("item without subject and text must not be keyed, got %q", got)
	}
}

func TestGradeKey(t *testing.T) {
	entry := model.GradeEntry{Date: "2026-02-10", OriginalValue: "2+", Topic: "Brüche"}
	want := "1001:7:Klassenarbeit:2026-02-10:2+:Brüche"
	if got := gradeKey("1001", 7, "Klassenarbeit", entry); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestClearAuthCachePassthrough(t *testing.T) {
	portal := &fakePortal{}
	coord := New(&config.Config{}, portal, nil)
	coord.ClearAuthCache()
	if !portal.cleared {
		t.Error("clear must reach the portal client")
	}
}

func TestSeedSnapshot(t *testing.T) {
	coord := New(&config.Config{}, &fakePortal{}, nil)
	coord.SeedSnapshot(nil)
	if coord.Data() != nil {
		t.Error("nil seed must be ignored")
	}

	seed := model.NewIntegrationData()
	coord.SeedSnapshot(seed)
	if coord.Data() != seed {
		t.Error("seed must become the current snapshot")
	}
}

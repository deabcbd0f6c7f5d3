package coordinator

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"schulmanager-sync/internal/config"
	"schulmanager-sync/internal/logger"
	"schulmanager-sync/internal/model"
	"schulmanager-sync/internal/portal"
	"schulmanager-sync/pkg/errors"
)

// Snapshots is the persistence and event surface the coordinator needs;
// the Redis store implements it.
type Snapshots interface {
	SaveSnapshot(ctx context.Context, data *model.IntegrationData) error
	SeenKeys(ctx context.Context, kind string) (map[string]bool, error)
	MarkSeen(ctx context.Context, kind string, keys []string) error
	PublishEvent(ctx context.Context, channel string, payload any) error
	HomeworkChannel() string
	GradeChannel() string
}

// HomeworkEvent announces one homework item never seen before.
type HomeworkEvent struct {
	StudentID   string             `json:"student_id"`
	StudentName string             `json:"student_name"`
	Item        model.HomeworkItem `json:"item"`
}

// GradeEvent announces one grade entry never seen before.
type GradeEvent struct {
	StudentID   string           `json:"student_id"`
	StudentName string           `json:"student_name"`
	SubjectID   int64            `json:"subject_id"`
	SubjectName string           `json:"subject_name"`
	Grade       model.GradeEntry `json:"grade"`
}

// Coordinator owns the refresh cycle: it drives the portal client, keeps
// the latest snapshot, enforces the manual-refresh cooldown and fires
// new-item events by comparing seen-item keys across refreshes. The portal
// client itself only ever returns complete current snapshots.
type Coordinator struct {
	cfg      *config.Config
	client   portal.Service
	store    Snapshots
	Cooldown *CooldownManager
	log      zerolog.Logger

	mu          sync.RWMutex
	data        *model.IntegrationData
	initialDone bool
}

func New(cfg *config.Config, client portal.Service, store Snapshots) *Coordinator {
	return &Coordinator{
		cfg:      cfg,
		client:   client,
		store:    store,
		Cooldown: NewCooldownManager(cfg.CooldownMinutes()),
		log:      logger.Component("coordinator"),
	}
}

// Data returns the snapshot of the last successful refresh, or nil before
// the first one.
func (c *Coordinator) Data() *model.IntegrationData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data
}

// SeedSnapshot installs a previously persisted snapshot so the API can
// serve data before the first live refresh completes. It does not count
// as a refresh: the next live cycle still seeds the seen-item sets.
func (c *Coordinator) SeedSnapshot(data *model.IntegrationData) {
	if data == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = data
	}
}

func (c *Coordinator) Students() []model.Student {
	return c.client.Students()
}

func (c *Coordinator) ClearAuthCache() {
	c.client.ClearAuthCache()
}

// Refresh performs one full update cycle. The first successful refresh
// seeds the seen-item sets without firing events; later refreshes fire one
// event per previously unseen homework item or grade entry.
func (c *Coordinator) Refresh(ctx context.Context) (*model.IntegrationData, error) {
	features := c.cfg.EnabledFeatures()
	dateRange := model.DateRangeConfig{
		PastDays:      c.cfg.ExamsPastDays(),
		FutureDays:    c.cfg.ExamsFutureDays(),
		ScheduleWeeks: c.cfg.ScheduleWeeks(),
	}

	c.log.Debug().Interface("features", features).Msg("Starting refresh cycle")

	data, err := c.client.Update(ctx, features, dateRange)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	firstRefresh := !c.initialDone
	c.initialDone = true
	c.data = data
	c.mu.Unlock()

	// Event detection must never break a refresh.
	if err := c.detectNewItems(ctx, data, firstRefresh); err != nil {
		c.log.Debug().Err(err).Msg("Event detection error")
	}

	if c.store != nil {
		if err := c.store.SaveSnapshot(ctx, data); err != nil {
			c.log.Warn().Err(err).Msg("Failed to persist snapshot")
		}
	}

	return data, nil
}

// ManualRefresh is the cooldown-gated refresh entry point. The rejection
// happens synchronously before any network traffic, and the timestamp is
// recorded before dispatch so overlapping requests within the window are
// rejected deterministically.
func (c *Coordinator) ManualRefresh(ctx context.Context) (*model.IntegrationData, error) {
	if !c.Cooldown.CanRefresh() {
		return nil, errors.CooldownError{RemainingSeconds: c.Cooldown.RemainingSeconds()}
	}
	c.Cooldown.RecordRefresh()
	c.log.Info().Int("next_allowed_in_s", c.Cooldown.RemainingSeconds()).
		Msg("Manual refresh requested")
	return c.Refresh(ctx)
}

func (c *Coordinator) detectNewItems(ctx context.Context, data *model.IntegrationData, seedOnly bool) error {
	if c.store == nil {
		return nil
	}

	names := make(map[string]string, len(data.Students))
	for _, s := range data.Students {
		names[s.ID] = s.Name
	}

	if err := c.detectHomework(ctx, data, names, seedOnly); err != nil {
		return err
	}
	return c.detectGrades(ctx, data, names, seedOnly)
}

func (c *Coordinator) detectHomework(ctx context.Context, data *model.IntegrationData, names map[string]string, seedOnly bool) error {
	seen := map[string]bool{}
	if !seedOnly {
		var err error
		seen, err = c.store.SeenKeys(ctx, "homework")
		if err != nil {
			return err
		}
	}

	var newKeys []string
	for sid, items := range data.Homework {
		for _, item := range items {
			key := homeworkKey(sid, item)
			if key == "" || seen[key] {
				continue
			}
			newKeys = append(newKeys, key)
			if seedOnly {
				continue
			}
			event := HomeworkEvent{StudentID: sid, StudentName: names[sid], Item: item}
			if err := c.store.PublishEvent(ctx, c.store.HomeworkChannel(), event); err != nil {
				c.log.Warn().Err(err).Msg("Failed to publish homework event")
			}
		}
	}
	return c.store.MarkSeen(ctx, "homework", newKeys)
}

func (c *Coordinator) detectGrades(ctx context.Context, data *model.IntegrationData, names map[string]string, seedOnly bool) error {
	seen := map[string]bool{}
	if !seedOnly {
		var err error
		seen, err = c.store.SeenKeys(ctx, "grades")
		if err != nil {
			return err
		}
	}

	var newKeys []string
	for sid, grades := range data.Grades {
		for subjectID, subject := range grades.Subjects {
			for category, entries := range subject.Grades {
				for _, entry := range entries {
					key := gradeKey(sid, subjectID, category, entry)
					if seen[key] {
						continue
					}
					newKeys = append(newKeys, key)
					if seedOnly {
						continue
					}
					event := GradeEvent{
						StudentID:   sid,
						StudentName: names[sid],
						SubjectID:   subjectID,
						SubjectName: subject.Name,
						Grade:       entry,
					}
					if err := c.store.PublishEvent(ctx, c.store.GradeChannel(), event); err != nil {
						c.log.Warn().Err(err).Msg("Failed to publish grade event")
					}
				}
			}
		}
	}
	return c.store.MarkSeen(ctx, "grades", newKeys)
}

// homeworkKey builds the composite identity of one homework item; items
// without a date, or with neither subject nor text, cannot be keyed.
func homeworkKey(sid string, item model.HomeworkItem) string {
	date := stringField(item, "date")
	subject := stringField(item, "subject")
	text := stringField(item, "homework")
	if date == "" || (subject == "" && text == "") {
		return ""
	}
	return fmt.Sprintf("%s:%s:%s:%s", sid, date, subject, text)
}

func gradeKey(sid string, subjectID int64, category string, entry model.GradeEntry) string {
	return fmt.Sprintf("%s:%d:%s:%s:%s:%s",
		sid, subjectID, category, entry.Date, entry.OriginalValue, entry.Topic)
}

func stringField(item map[string]any, key string) string {
	if v, ok := item[key].(string); ok {
		return v
	}
	return ""
}

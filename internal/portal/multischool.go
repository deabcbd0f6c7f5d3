package portal

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"schulmanager-sync/internal/config"
	"schulmanager-sync/internal/logger"
	"schulmanager-sync/internal/model"
	"schulmanager-sync/pkg/errors"
)

// MultiSchoolClient drives one login per configured school of a
// multi-school parent account. Every school gets its own session token and
// roster; students carry their school id and name so consumers can tell
// them apart.
type MultiSchoolClient struct {
	cfg     *config.Config
	clients []*Client
	log     zerolog.Logger
}

func NewMultiSchoolClient(cfg *config.Config) *MultiSchoolClient {
	clients := make([]*Client, 0, len(cfg.Portal.Schools))
	for _, school := range cfg.Portal.Schools {
		clients = append(clients, newSchoolClient(cfg, school.ID, school.Label))
	}
	return &MultiSchoolClient{
		cfg:     cfg,
		clients: clients,
		log:     logger.Component("portal-multischool"),
	}
}

// NewService returns the single- or multi-school client depending on
// whether a schools list is configured.
func NewService(cfg *config.Config) Service {
	if len(cfg.Portal.Schools) > 0 {
		return NewMultiSchoolClient(cfg)
	}
	return NewClient(cfg)
}

// Authenticate logs into every configured school. A school that still
// answers with a choice list was selected with a wrong institution id.
func (m *MultiSchoolClient) Authenticate(ctx context.Context) error {
	if len(m.clients) == 0 {
		return errors.NewAuthError("no schools configured", nil)
	}
	for _, client := range m.clients {
		choices, err := client.Login(ctx)
		if err != nil {
			return fmt.Errorf("login for school %s failed: %w", client.schoolName, err)
		}
		if len(choices) > 0 {
			return errors.NewAuthError(
				fmt.Sprintf("school %s still reports multiple accounts", client.schoolName), nil)
		}
	}
	m.log.Info().Int("schools", len(m.clients)).Msg("All school logins successful")
	return nil
}

// Students aggregates the rosters of all schools.
func (m *MultiSchoolClient) Students() []model.Student {
	var students []model.Student
	for _, client := range m.clients {
		students = append(students, client.Students()...)
	}
	return students
}

func (m *MultiSchoolClient) ClearAuthCache() {
	for _, client := range m.clients {
		client.ClearAuthCache()
	}
}

// Update merges the per-school snapshots into one. A failing school is
// logged and skipped; its students simply drop out of the snapshot for
// this cycle.
func (m *MultiSchoolClient) Update(ctx context.Context, features map[string]bool, dateRange model.DateRangeConfig) (*model.IntegrationData, error) {
	merged := model.NewIntegrationData()
	var lastErr error

	for _, client := range m.clients {
		data, err := client.Update(ctx, features, dateRange)
		if err != nil {
			m.log.Warn().Err(err).Str("school", client.schoolName).Msg("School update failed")
			lastErr = err
			continue
		}
		merged.Students = append(merged.Students, data.Students...)
		for sid, v := range data.Homework {
			merged.Homework[sid] = v
		}
		for sid, v := range data.Schedule {
			merged.Schedule[sid] = v
		}
		for sid, v := range data.Exams {
			merged.Exams[sid] = v
		}
		for sid, v := range data.Grades {
			merged.Grades[sid] = v
		}
	}

	if len(merged.Students) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return merged, nil
}

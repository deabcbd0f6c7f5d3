package portal

import (
	"context"
	"encoding/json"
	"strconv"

	"schulmanager-sync/internal/model"
)

// FetchHomework pulls the raw homework list for one student. The entries
// are passed through untouched; their field set varies between schools.
func (c *Client) FetchHomework(ctx context.Context, studentID string) ([]model.HomeworkItem, error) {
	sid, err := strconv.ParseInt(studentID, 10, 64)
	if err != nil {
		return []model.HomeworkItem{}, nil
	}

	params := map[string]any{"student": map[string]any{"id": sid}}
	data, err := c.Call(ctx, "classbook", "get-homework", params)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return []model.HomeworkItem{}, nil
	}

	var items []model.HomeworkItem
	if err := json.Unmarshal(data, &items); err != nil {
		c.log.Warn().Err(err).Str("student_id", studentID).
			Msg("Unexpected homework payload shape")
		return []model.HomeworkItem{}, nil
	}
	return items, nil
}

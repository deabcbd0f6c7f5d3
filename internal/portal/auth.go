package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"schulmanager-sync/internal/model"
	"schulmanager-sync/pkg/errors"
)

// studentNameFallback is used when a roster entry has neither first nor
// last name.
const studentNameFallback = "Schüler"

// Login authenticates against the portal. On a multi-school account the
// returned choice list is non-empty and no token is cached; the caller must
// drive one login per selected school instead.
func (c *Client) Login(ctx context.Context) ([]model.SchoolAccount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loginLocked(ctx); err != nil {
		return nil, err
	}
	if len(c.multipleAccounts) > 0 {
		choices := make([]model.SchoolAccount, len(c.multipleAccounts))
		copy(choices, c.multipleAccounts)
		return choices, nil
	}
	return nil, nil
}

// loginLocked performs the salt fetch, hashing and login call. The caller
// must hold c.mu. A fresh salt is fetched per attempt; salts are presumed
// single-use by the server.
func (c *Client) loginLocked(ctx context.Context) error {
	salt, err := c.fetchSalt(ctx)
	if err != nil {
		return err
	}

	hash, err := hashPassword(c.password, salt)
	if err != nil {
		return err
	}

	body := model.LoginRequest{
		EmailOrUsername: c.username,
		Password:        c.password,
		Hash:            hash,
		MobileApp:       false,
		InstitutionID:   c.institutionID,
	}
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.loginURL(), bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header = commonHeaders()
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")

	c.dumpRequest("login_request", map[string]any{
		"url":      c.loginURL(),
		"username": c.username,
		"password": c.password,
		"hash":     hash,
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NewTransportError("login", 0, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.NewTransportError("login", resp.StatusCode, err)
	}

	c.dumpResponse("login_response", resp.StatusCode, raw)

	// An explicit rejection is an auth failure regardless of body shape.
	if resp.StatusCode != http.StatusOK {
		return errors.NewAuthError(fmt.Sprintf("login rejected with status %d", resp.StatusCode), nil)
	}

	var data model.LoginResponse
	if err := json.Unmarshal(raw, &data); err != nil {
		return errors.NewTransportError("login", resp.StatusCode, err)
	}

	if len(data.MultipleAccounts) > 0 {
		c.multipleAccounts = data.MultipleAccounts
		c.log.Debug().Int("schools", len(data.MultipleAccounts)).
			Msg("Multi-school account detected")
		return nil
	}

	if data.JWT == "" {
		return errors.NewAuthError("login response carries no token", nil)
	}
	c.token = data.JWT
	c.multipleAccounts = nil

	if data.User != nil {
		if c.institutionID == nil && data.User.InstitutionID != nil {
			c.institutionID = data.User.InstitutionID
			c.log.Debug().Int64("institution_id", *c.institutionID).
				Msg("Extracted institution id from login")
		}
		c.students = c.extractStudents(data.User.AssociatedParents)
	} else {
		c.students = nil
	}

	c.log.Info().Int("students", len(c.students)).Msg("Login successful")
	return nil
}

// extractStudents builds the roster from the associated-parent records.
// Entries without a student id are skipped.
func (c *Client) extractStudents(parents []model.AssociatedParent) []model.Student {
	students := make([]model.Student, 0, len(parents))
	for _, p := range parents {
		if p.Student == nil || p.Student.ID == 0 {
			continue
		}
		name := strings.TrimSpace(p.Student.Firstname + " " + p.Student.Lastname)
		if name == "" {
			name = studentNameFallback
		}
		students = append(students, model.Student{
			ID:         strconv.FormatInt(p.Student.ID, 10),
			Name:       name,
			ClassID:    p.Student.ClassID,
			SchoolID:   c.institutionID,
			SchoolName: c.schoolName,
		})
	}
	return students
}

// fetchSalt retrieves the per-attempt hashing salt for the configured
// username. The endpoint answers with a JSON-encoded string.
func (c *Client) fetchSalt(ctx context.Context) (string, error) {
	body := model.SaltRequest{EmailOrUsername: c.username}
	buf, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal salt request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.saltURL(), bytes.NewReader(buf))
	if err != nil {
		return "", fmt.Errorf("failed to create salt request: %w", err)
	}
	req.Header = commonHeaders()
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.NewTransportError("get-salt", 0, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.NewTransportError("get-salt", resp.StatusCode, err)
	}

	var salt string
	if err := json.Unmarshal(raw, &salt); err != nil {
		limit := len(raw)
		if limit > 500 {
			limit = 500
		}
		c.dumper.Dump("get_salt_response", map[string]any{
			"status": resp.StatusCode,
			"raw":    string(raw[:limit]),
		})
		return "", errors.NewAuthError(fmt.Sprintf("salt response not parseable (status %d)", resp.StatusCode), err)
	}

	c.dumper.Dump("get_salt_response", map[string]any{
		"status":   resp.StatusCode,
		"salt_len": len(salt),
	})
	return salt, nil
}

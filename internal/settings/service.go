// Package settings reads and writes global key/value settings stored in
// the database. Settings are grouped; both groups and settings are
// addressed by key and seeded with defaults on first initialization.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/homebase-sh/homebase/internal/schema"
	"github.com/homebase-sh/homebase/pkg/types"
)

// Value types a setting can declare.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
)

// Setting is one persisted key/value pair.
type Setting struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"groupId,omitempty"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	ValueType string    `json:"valueType"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Group is a named bucket of settings.
type Group struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Label     string    `json:"label"`
	SortOrder int       `json:"sortOrder"`
	CreatedAt time.Time `json:"createdAt"`
}

// Service performs settings operations over an open connection.
type Service struct {
	conn   *sql.DB
	logger *slog.Logger
}

// New creates a settings service bound to conn.
func New(conn *sql.DB, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{conn: conn, logger: logger}
}

// EnsureGroup creates the group if it does not already exist and returns
// it. Repeated calls with the same key return the stored group
// unchanged.
func (s *Service) EnsureGroup(ctx context.Context, key, label string, sortOrder int) (*Group, error) {
	if g, err := s.GroupByKey(ctx, key); err == nil {
		return g, nil
	} else if !errors.Is(err, types.ErrGroupNotFound) {
		return nil, err
	}

	g := &Group{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Key:       key,
		Label:     label,
		SortOrder: sortOrder,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.conn.ExecContext(ctx,
		"INSERT INTO "+schema.TableSettingGroups+
			" (id, key, label, sort_order, created_at) VALUES (?, ?, ?, ?, ?)",
		g.ID, g.Key, g.Label, g.SortOrder, g.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("creating setting group %s: %w", key, err)
	}
	s.logger.Info("setting group created", "group", key)
	return g, nil
}

// GroupByKey fetches one group by its key.
func (s *Service) GroupByKey(ctx context.Context, key string) (*Group, error) {
	row := s.conn.QueryRowContext(ctx,
		"SELECT id, key, label, sort_order, created_at FROM "+
			schema.TableSettingGroups+" WHERE key = ?", key)

	var g Group
	var createdAt string
	err := row.Scan(&g.ID, &g.Key, &g.Label, &g.SortOrder, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", types.ErrGroupNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("reading setting group %s: %w", key, err)
	}
	g.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &g, nil
}

// Groups returns all groups ordered by sort order, then key.
func (s *Service) Groups(ctx context.Context) ([]Group, error) {
	rows, err := s.conn.QueryContext(ctx,
		"SELECT id, key, label, sort_order, created_at FROM "+
			schema.TableSettingGroups+" ORDER BY sort_order, key")
	if err != nil {
		return nil, fmt.Errorf("listing setting groups: %w", err)
	}
	defer rows.Close()

	var out []Group
	for rows.Next() {
		var g Group
		var createdAt string
		if err := rows.Scan(&g.ID, &g.Key, &g.Label, &g.SortOrder, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning setting group: %w", err)
		}
		g.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, g)
	}
	return out, rows.Err()
}

// Get fetches one setting by key.
func (s *Service) Get(ctx context.Context, key string) (*Setting, error) {
	row := s.conn.QueryRowContext(ctx,
		"SELECT id, COALESCE(group_id, ''), key, COALESCE(value, ''), value_type, updated_at FROM "+
			schema.TableSettings+" WHERE key = ?", key)

	var st Setting
	var updatedAt string
	err := row.Scan(&st.ID, &st.GroupID, &st.Key, &st.Value, &st.ValueType, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", types.ErrSettingNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("reading setting %s: %w", key, err)
	}
	st.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &st, nil
}

// Set upserts a setting. An existing key keeps its id and group; a new
// key is created ungrouped. Use SetInGroup to attach a group on create.
func (s *Service) Set(ctx context.Context, key, value, valueType string) (*Setting, error) {
	return s.set(ctx, key, value, valueType, "")
}

// SetInGroup upserts a setting, attaching it to groupID when the key is
// created. The group of an existing setting is not changed.
func (s *Service) SetInGroup(ctx context.Context, key, value, valueType, groupID string) (*Setting, error) {
	return s.set(ctx, key, value, valueType, groupID)
}

func (s *Service) set(ctx context.Context, key, value, valueType, groupID string) (*Setting, error) {
	if valueType == "" {
		valueType = TypeString
	}
	now := time.Now().UTC()

	existing, err := s.Get(ctx, key)
	switch {
	case err == nil:
		_, err = s.conn.ExecContext(ctx,
			"UPDATE "+schema.TableSettings+
				" SET value = ?, value_type = ?, updated_at = ? WHERE key = ?",
			value, valueType, now.Format(time.RFC3339), key)
		if err != nil {
			return nil, fmt.Errorf("updating setting %s: %w", key, err)
		}
		existing.Value = value
		existing.ValueType = valueType
		existing.UpdatedAt = now
		return existing, nil
	case errors.Is(err, types.ErrSettingNotFound):
		st := &Setting{
			ID:        uuid.Must(uuid.NewV7()).String(),
			GroupID:   groupID,
			Key:       key,
			Value:     value,
			ValueType: valueType,
			UpdatedAt: now,
		}
		var group any
		if groupID != "" {
			group = groupID
		}
		_, err = s.conn.ExecContext(ctx,
			"INSERT INTO "+schema.TableSettings+
				" (id, group_id, key, value, value_type, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
			st.ID, group, st.Key, st.Value, st.ValueType, now.Format(time.RFC3339))
		if err != nil {
			return nil, fmt.Errorf("creating setting %s: %w", key, err)
		}
		return st, nil
	default:
		return nil, err
	}
}

// List returns every setting ordered by key. When groupKey is non-empty
// only the settings of that group are returned; an unknown group key is
// an error.
func (s *Service) List(ctx context.Context, groupKey string) ([]Setting, error) {
	query := "SELECT id, COALESCE(group_id, ''), key, COALESCE(value, ''), value_type, updated_at FROM " +
		schema.TableSettings
	var args []any
	if groupKey != "" {
		g, err := s.GroupByKey(ctx, groupKey)
		if err != nil {
			return nil, err
		}
		query += " WHERE group_id = ?"
		args = append(args, g.ID)
	}
	query += " ORDER BY key"

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing settings: %w", err)
	}
	defer rows.Close()

	var out []Setting
	for rows.Next() {
		var st Setting
		var updatedAt string
		if err := rows.Scan(&st.ID, &st.GroupID, &st.Key, &st.Value, &st.ValueType, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning setting: %w", err)
		}
		st.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		out = append(out, st)
	}
	return out, rows.Err()
}

// Delete removes a setting. Deleting an absent key is not an error.
func (s *Service) Delete(ctx context.Context, key string) error {
	_, err := s.conn.ExecContext(ctx,
		"DELETE FROM "+schema.TableSettings+" WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("deleting setting %s: %w", key, err)
	}
	return nil
}

// Default describes one seeded setting.
type Default struct {
	Key       string
	Value     string
	ValueType string
	Group     string
}

// defaultGroups and defaultSettings are seeded on first initialization.
var defaultGroups = []struct {
	Key       string
	Label     string
	SortOrder int
}{
	{"general", "General", 0},
	{"appearance", "Appearance", 1},
	{"security", "Security", 2},
}

var defaultSettings = []Default{
	{Key: "site_name", Value: "Homebase", ValueType: TypeString, Group: "general"},
	{Key: "site_description", Value: "", ValueType: TypeString, Group: "general"},
	{Key: "theme", Value: "system", ValueType: TypeString, Group: "appearance"},
	{Key: "allow_signups", Value: "true", ValueType: TypeBoolean, Group: "security"},
	{Key: "session_lifetime_hours", Value: "720", ValueType: TypeInteger, Group: "security"},
}

// Seed creates the default groups and settings that do not exist yet.
// Existing values are never overwritten, so it is safe to run on every
// start.
func (s *Service) Seed(ctx context.Context) error {
	groups := make(map[string]string, len(defaultGroups))
	for _, dg := range defaultGroups {
		g, err := s.EnsureGroup(ctx, dg.Key, dg.Label, dg.SortOrder)
		if err != nil {
			return err
		}
		groups[dg.Key] = g.ID
	}

	for _, d := range defaultSettings {
		_, err := s.Get(ctx, d.Key)
		if err == nil {
			continue
		}
		if !errors.Is(err, types.ErrSettingNotFound) {
			return err
		}
		if _, err := s.SetInGroup(ctx, d.Key, d.Value, d.ValueType, groups[d.Group]); err != nil {
			return err
		}
	}
	s.logger.Info("default settings seeded", "groups", len(defaultGroups), "settings", len(defaultSettings))
	return nil
}

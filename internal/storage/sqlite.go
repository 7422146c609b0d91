package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"nudged/internal/notify"
	"nudged/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db           *sql.DB
	log          logx.Logger
	historyLimit int
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log, historyLimit: cfg.HistoryLimit}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) PutScheduled(ctx context.Context, sn ScheduledNotification) error {
	meta, actions := encodeJSON(sn.Notification.Metadata), encodeJSON(sn.Notification.Actions)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scheduled(id, title, message, priority, source, url, metadata, actions,
		                       scheduled_for, created_at, event_id, recurrence, category, digest)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET scheduled_for=excluded.scheduled_for`,
		sn.ID, sn.Notification.Title, sn.Notification.Message, string(sn.Notification.Priority),
		sn.Notification.Source, nullStr(sn.Notification.URL), nullStr(meta), nullStr(actions),
		sn.ScheduledFor.UnixMilli(), sn.CreatedAt.UnixMilli(),
		nullStr(sn.EventID), nullStr(sn.Recurrence), nullStr(sn.Category), boolInt(sn.Digest),
	)
	return err
}

const scheduledCols = `id, title, message, priority, source, url, metadata, actions,
	scheduled_for, created_at, event_id, recurrence, category, digest`

func (s *sqliteStore) DueScheduled(ctx context.Context, now time.Time) ([]ScheduledNotification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+scheduledCols+` FROM scheduled WHERE scheduled_for <= ? ORDER BY scheduled_for ASC`,
		now.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScheduledNotification
	for rows.Next() {
		sn, err := scanScheduled(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sn)
	}
	return out, rows.Err()
}

func (s *sqliteStore) ScheduledByEventID(ctx context.Context, eventID string) (*ScheduledNotification, error) {
	if eventID == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+scheduledCols+` FROM scheduled WHERE event_id = ? LIMIT 1`, eventID)
	sn, err := scanScheduled(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sn, nil
}

func (s *sqliteStore) DeleteScheduled(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scheduled WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScheduled(r rowScanner) (ScheduledNotification, error) {
	var sn ScheduledNotification
	var prio string
	var url, meta, actions, eventID, recur, category sql.NullString
	var schedMS, createdMS int64
	var digest int
	err := r.Scan(&sn.ID, &sn.Notification.Title, &sn.Notification.Message, &prio,
		&sn.Notification.Source, &url, &meta, &actions,
		&schedMS, &createdMS, &eventID, &recur, &category, &digest)
	if err != nil {
		return sn, err
	}
	sn.Notification.Priority = notify.Priority(prio)
	sn.Notification.URL = url.String
	if meta.Valid {
		_ = json.Unmarshal([]byte(meta.String), &sn.Notification.Metadata)
	}
	if actions.Valid {
		_ = json.Unmarshal([]byte(actions.String), &sn.Notification.Actions)
	}
	sn.ScheduledFor = time.UnixMilli(schedMS)
	sn.CreatedAt = time.UnixMilli(createdMS)
	sn.EventID = eventID.String
	sn.Recurrence = recur.String
	sn.Category = category.String
	sn.Digest = digest != 0
	return sn, nil
}

func (s *sqliteStore) ReminderState(ctx context.Context, itemID string) (*ReminderState, error) {
	var st ReminderState
	var remMS, confMS sql.NullInt64
	var completed int
	err := s.db.QueryRowContext(ctx,
		`SELECT item_id, reminder_count, last_reminder_at, last_confirmation_at, last_confirmed_completed
		 FROM reminder_state WHERE item_id = ?`, itemID).
		Scan(&st.ItemID, &st.ReminderCount, &remMS, &confMS, &completed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if remMS.Valid {
		st.LastReminderAt = time.UnixMilli(remMS.Int64)
	}
	if confMS.Valid {
		st.LastConfirmationAt = time.UnixMilli(confMS.Int64)
	}
	st.LastConfirmedCompleted = completed != 0
	return &st, nil
}

func (s *sqliteStore) PutReminderState(ctx context.Context, st ReminderState) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reminder_state(item_id, reminder_count, last_reminder_at, last_confirmation_at, last_confirmed_completed)
		 VALUES(?,?,?,?,?)
		 ON CONFLICT(item_id) DO UPDATE SET
		   reminder_count=excluded.reminder_count,
		   last_reminder_at=excluded.last_reminder_at,
		   last_confirmation_at=excluded.last_confirmation_at,
		   last_confirmed_completed=excluded.last_confirmed_completed`,
		st.ItemID, st.ReminderCount, nullTime(st.LastReminderAt), nullTime(st.LastConfirmationAt),
		boolInt(st.LastConfirmedCompleted))
	return err
}

func (s *sqliteStore) DeleteReminderState(ctx context.Context, itemID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM reminder_state WHERE item_id = ?`, itemID)
	return err
}

func (s *sqliteStore) ListReminderStates(ctx context.Context) ([]ReminderState, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT item_id, reminder_count, last_reminder_at, last_confirmation_at, last_confirmed_completed
		 FROM reminder_state ORDER BY item_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReminderState
	for rows.Next() {
		var st ReminderState
		var remMS, confMS sql.NullInt64
		var completed int
		if err := rows.Scan(&st.ItemID, &st.ReminderCount, &remMS, &confMS, &completed); err != nil {
			return nil, err
		}
		if remMS.Valid {
			st.LastReminderAt = time.UnixMilli(remMS.Int64)
		}
		if confMS.Valid {
			st.LastConfirmationAt = time.UnixMilli(confMS.Int64)
		}
		st.LastConfirmedCompleted = completed != 0
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *sqliteStore) AppendHistory(ctx context.Context, n notify.Notification) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO history(id, source, title, message, priority, url, at) VALUES(?,?,?,?,?,?,?)`,
		n.ID, n.Source, n.Title, n.Message, string(n.Priority), nullStr(n.URL), n.Timestamp.UnixMilli())
	if err != nil {
		return err
	}
	// Ring-buffer semantics: keep only the newest historyLimit rows.
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM history WHERE seq NOT IN (SELECT seq FROM history ORDER BY seq DESC LIMIT ?)`,
		s.historyLimit)
	return err
}

func (s *sqliteStore) RecentHistory(ctx context.Context, limit int) ([]notify.Notification, error) {
	if limit <= 0 {
		limit = s.historyLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, title, message, priority, url, at FROM
		   (SELECT * FROM history ORDER BY seq DESC LIMIT ?) ORDER BY seq ASC`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []notify.Notification
	for rows.Next() {
		var n notify.Notification
		var prio string
		var url sql.NullString
		var atMS int64
		if err := rows.Scan(&n.ID, &n.Source, &n.Title, &n.Message, &prio, &url, &atMS); err != nil {
			return nil, err
		}
		n.Priority = notify.Priority(prio)
		n.URL = url.String
		n.Timestamp = time.UnixMilli(atMS)
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *sqliteStore) Preferences(ctx context.Context) (*notify.Preferences, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM preferences WHERE id = 1`).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p notify.Preferences
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *sqliteStore) PutPreferences(ctx context.Context, p notify.Preferences) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO preferences(id, body) VALUES(1, ?)
		 ON CONFLICT(id) DO UPDATE SET body=excluded.body`, string(b))
	return err
}

func encodeJSON(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	s := string(b)
	if s == "null" {
		return ""
	}
	return s
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UnixMilli()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"outreach_engine/internal/model"
)

func sessionKey(account string) string {
	return strings.ToLower(strings.TrimSpace(account))
}

func (s *Store) GetBrowserSession(ctx context.Context, account string) (model.BrowserSession, bool, error) {
	var row struct {
		account   string
		cookies   string
		updatedAt int64
	}
	err := s.db.QueryRowContext(ctx, `
		SELECT account, cookies_json, updated_at FROM browser_sessions WHERE account = ?
	`, sessionKey(account)).Scan(&row.account, &row.cookies, &row.updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.BrowserSession{}, false, nil
		}
		return model.BrowserSession{}, false, err
	}
	out := model.BrowserSession{Account: row.account, UpdatedAt: time.UnixMilli(row.updatedAt)}
	if err := json.Unmarshal([]byte(row.cookies), &out.Cookies); err != nil {
		return model.BrowserSession{}, false, err
	}
	return out, true, nil
}

func (s *Store) SaveBrowserSession(ctx context.Context, sess model.BrowserSession) error {
	key := sessionKey(sess.Account)
	if key == "" {
		return errors.New("account is required")
	}
	if sess.Cookies == nil {
		sess.Cookies = []model.Cookie{}
	}
	b, err := json.Marshal(sess.Cookies)
	if err != nil {
		return err
	}
	updated := sess.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO browser_sessions (account, cookies_json, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(account) DO UPDATE SET
			cookies_json = excluded.cookies_json,
			updated_at = excluded.updated_at
	`, key, string(b), updated.UnixMilli())
	return err
}

func (s *Store) DeleteBrowserSession(ctx context.Context, account string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM browser_sessions WHERE account = ?`, sessionKey(account))
	return err
}

package store

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/01moynul/pawshop-golang/internal/apperr"
	"github.com/01moynul/pawshop-golang/internal/models"
)

// --- Contact messages ---

func (s *Store) CreateMessage(ctx context.Context, m *models.Message) error {
	return s.with(ctx, func(q Querier) error {
		res, err := q.ExecContext(ctx,
			`INSERT INTO messages (name, email, subject, body, is_read, created_at)
			VALUES (?, ?, ?, ?, 0, CURRENT_TIMESTAMP)`, m.Name, m.Email, m.Subject, m.Body)
		if err != nil {
			return errors.Wrap(err, "insert message")
		}
		m.ID, err = res.LastInsertId()
		return errors.Wrap(err, "message id")
	})
}

func (s *Store) ListMessages(ctx context.Context, unreadOnly bool) ([]models.Message, error) {
	query := `SELECT id, name, email, subject, body, is_read, created_at FROM messages`
	if unreadOnly {
		query += ` WHERE is_read = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	messages := []models.Message{}
	err := s.with(ctx, func(q Querier) error {
		return sqlx.SelectContext(ctx, q, &messages, query)
	})
	return messages, errors.Wrap(err, "list messages")
}

func (s *Store) MarkMessageRead(ctx context.Context, id int64) error {
	return s.markRead(ctx, "messages", "message", id)
}

func (s *Store) DeleteMessage(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "messages", "message", id)
}

func (s *Store) markRead(ctx context.Context, table, what string, id int64) error {
	return s.with(ctx, func(q Querier) error {
		res, err := q.ExecContext(ctx, `UPDATE `+table+` SET is_read = 1 WHERE id = ?`, id)
		if err != nil {
			return errors.Wrapf(err, "mark %s read", what)
		}
		n, err := affected(res)
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.NotFoundf("%s %d not found", what, id)
		}
		return nil
	})
}

// --- Newsletter ---

// Subscribe activates email. Subscribing an already active address is a no-op.
func (s *Store) Subscribe(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	return s.with(ctx, func(q Querier) error {
		_, err := q.ExecContext(ctx,
			`INSERT INTO newsletter_subscriptions (email, active, created_at) VALUES (?, 1, CURRENT_TIMESTAMP)`, email)
		if err != nil && !s.dialect().IsUniqueViolation(err) {
			return errors.Wrap(err, "subscribe")
		}
		return nil
	})
}

// Unsubscribe deactivates the active subscription of email, if any.
func (s *Store) Unsubscribe(ctx context.Context, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var ok bool
	err := s.with(ctx, func(q Querier) error {
		res, err := q.ExecContext(ctx,
			`UPDATE newsletter_subscriptions SET active = 0, unsubscribed_at = CURRENT_TIMESTAMP
			WHERE email = ? AND active = 1`, email)
		if err != nil {
			return errors.Wrap(err, "unsubscribe")
		}
		n, err := affected(res)
		ok = n > 0
		return err
	})
	return ok, err
}

func (s *Store) ActiveSubscribers(ctx context.Context) ([]string, error) {
	emails := []string{}
	err := s.with(ctx, func(q Querier) error {
		return sqlx.SelectContext(ctx, q, &emails,
			`SELECT email FROM newsletter_subscriptions WHERE active = 1 ORDER BY id`)
	})
	return emails, errors.Wrap(err, "list subscribers")
}

// --- Admin notifications ---

func (s *Store) CreateNotification(ctx context.Context, kind, message, link string) error {
	return s.with(ctx, func(q Querier) error {
		_, err := q.ExecContext(ctx,
			`INSERT INTO notifications (kind, message, link, is_read, created_at)
			VALUES (?, ?, ?, 0, CURRENT_TIMESTAMP)`, kind, message, nullIfEmpty(link))
		return errors.Wrap(err, "insert notification")
	})
}

func (s *Store) ListNotifications(ctx context.Context, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	notifications := []models.Notification{}
	err := s.with(ctx, func(q Querier) error {
		return sqlx.SelectContext(ctx, q, &notifications,
			`SELECT id, kind, message, link, is_read, created_at FROM notifications
			ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	})
	return notifications, errors.Wrap(err, "list notifications")
}

func (s *Store) MarkNotificationRead(ctx context.Context, id int64) error {
	return s.markRead(ctx, "notifications", "notification", id)
}

package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/01moynul/pawshop-golang/internal/apperr"
	"github.com/01moynul/pawshop-golang/internal/models"
)

const campaignColumns = `id, title, description, discount_percent, image, active, starts_at, ends_at, created_at`

// ListActiveCampaigns returns active campaigns whose window contains now.
func (s *Store) ListActiveCampaigns(ctx context.Context, now time.Time) ([]models.Campaign, error) {
	now = now.UTC()
	campaigns := []models.Campaign{}
	err := s.with(ctx, func(q Querier) error {
		return sqlx.SelectContext(ctx, q, &campaigns,
			`SELECT `+campaignColumns+` FROM campaigns
			WHERE active = 1
				AND (starts_at IS NULL OR starts_at <= ?)
				AND (ends_at IS NULL OR ends_at >= ?)
			ORDER BY created_at DESC, id DESC`, now, now)
	})
	return campaigns, errors.Wrap(err, "list active campaigns")
}

func (s *Store) ListCampaigns(ctx context.Context) ([]models.Campaign, error) {
	campaigns := []models.Campaign{}
	err := s.with(ctx, func(q Querier) error {
		return sqlx.SelectContext(ctx, q, &campaigns, `SELECT `+campaignColumns+` FROM campaigns ORDER BY id DESC`)
	})
	return campaigns, errors.Wrap(err, "list campaigns")
}

func (s *Store) CreateCampaign(ctx context.Context, c *models.Campaign) error {
	return s.with(ctx, func(q Querier) error {
		res, err := q.ExecContext(ctx,
			`INSERT INTO campaigns (title, description, discount_percent, image, active, starts_at, ends_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
			c.Title, c.Description, c.DiscountPercent, c.Image, c.Active, utcPtr(c.StartsAt), utcPtr(c.EndsAt))
		if err != nil {
			return errors.Wrap(err, "insert campaign")
		}
		if c.ID, err = res.LastInsertId(); err != nil {
			return errors.Wrap(err, "campaign id")
		}
		return sqlx.GetContext(ctx, q, c, `SELECT `+campaignColumns+` FROM campaigns WHERE id = ?`, c.ID)
	})
}

func (s *Store) UpdateCampaign(ctx context.Context, c *models.Campaign) error {
	return s.with(ctx, func(q Querier) error {
		res, err := q.ExecContext(ctx,
			`UPDATE campaigns SET title = ?, description = ?, discount_percent = ?, image = ?, active = ?,
				starts_at = ?, ends_at = ?
			WHERE id = ?`,
			c.Title, c.Description, c.DiscountPercent, c.Image, c.Active, utcPtr(c.StartsAt), utcPtr(c.EndsAt), c.ID)
		if err != nil {
			return errors.Wrap(err, "update campaign")
		}
		if n, err := affected(res); err != nil || n == 0 {
			if err != nil {
				return err
			}
			return apperr.NotFoundf("campaign %d not found", c.ID)
		}
		return sqlx.GetContext(ctx, q, c, `SELECT `+campaignColumns+` FROM campaigns WHERE id = ?`, c.ID)
	})
}

func (s *Store) DeleteCampaign(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "campaigns", "campaign", id)
}

// deleteByID removes one row of table, reporting NotFound when nothing matched.
func (s *Store) deleteByID(ctx context.Context, table, what string, id int64) error {
	return s.with(ctx, func(q Querier) error {
		res, err := q.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
		if err != nil {
			return errors.Wrapf(err, "delete %s", what)
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

func utcPtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

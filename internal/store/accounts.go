package store

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/01moynul/pawshop-golang/internal/apperr"
	"github.com/01moynul/pawshop-golang/internal/models"
)

const userColumns = `id, role, email, password_hash, full_name, phone_number, created_at, updated_at`

// CreateUser inserts u. A duplicate email is a Conflict.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return s.with(ctx, func(q Querier) error {
		res, err := q.ExecContext(ctx,
			`INSERT INTO users (role, email, password_hash, full_name, phone_number, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
			u.Role, u.Email, u.PasswordHash, u.FullName, u.PhoneNumber)
		if err != nil {
			if s.dialect().IsUniqueViolation(err) {
				return apperr.Conflictf("email %s is already registered", u.Email)
			}
			return errors.Wrap(err, "insert user")
		}
		if u.ID, err = res.LastInsertId(); err != nil {
			return errors.Wrap(err, "user id")
		}
		return sqlx.GetContext(ctx, q, u, `SELECT `+userColumns+` FROM users WHERE id = ?`, u.ID)
	})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u models.User
	err := s.with(ctx, func(q Querier) error {
		return sqlx.GetContext(ctx, q, &u, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	})
	if err != nil {
		return nil, notFound(err, "user", email)
	}
	return &u, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	err := s.with(ctx, func(q Querier) error {
		return sqlx.GetContext(ctx, q, &u, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	})
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return &u, nil
}

// --- Wishlist ---

// AddToWishlist is idempotent: adding a product twice keeps one row.
func (s *Store) AddToWishlist(ctx context.Context, userID, productID int64) error {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return err
	}
	return s.with(ctx, func(q Querier) error {
		_, err := q.ExecContext(ctx,
			`INSERT INTO wishlist (user_id, product_id, created_at) VALUES (?, ?, CURRENT_TIMESTAMP)`, userID, productID)
		if err != nil && !s.dialect().IsUniqueViolation(err) {
			return errors.Wrap(err, "add to wishlist")
		}
		return nil
	})
}

func (s *Store) RemoveFromWishlist(ctx context.Context, userID, productID int64) error {
	return s.with(ctx, func(q Querier) error {
		_, err := q.ExecContext(ctx, `DELETE FROM wishlist WHERE user_id = ? AND product_id = ?`, userID, productID)
		return errors.Wrap(err, "remove from wishlist")
	})
}

func (s *Store) ListWishlist(ctx context.Context, userID int64) ([]models.WishlistItem, error) {
	items := []models.WishlistItem{}
	err := s.with(ctx, func(q Querier) error {
		return sqlx.SelectContext(ctx, q, &items,
			`SELECT w.product_id, p.name, p.image, w.created_at
			FROM wishlist w JOIN products p ON p.id = w.product_id
			WHERE w.user_id = ?
			ORDER BY w.created_at DESC, w.product_id DESC`, userID)
	})
	return items, errors.Wrap(err, "list wishlist")
}

// --- Reviews ---

// CreateReview stores one review per user and product. A second review is a Conflict.
func (s *Store) CreateReview(ctx context.Context, r *models.Review) error {
	if _, err := s.GetProduct(ctx, r.ProductID); err != nil {
		return err
	}
	return s.with(ctx, func(q Querier) error {
		res, err := q.ExecContext(ctx,
			`INSERT INTO reviews (product_id, user_id, rating, comment, created_at)
			VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)`, r.ProductID, r.UserID, r.Rating, r.Comment)
		if err != nil {
			if s.dialect().IsUniqueViolation(err) {
				return apperr.Conflictf("product %d already reviewed", r.ProductID)
			}
			return errors.Wrap(err, "insert review")
		}
		if r.ID, err = res.LastInsertId(); err != nil {
			return errors.Wrap(err, "review id")
		}
		return sqlx.GetContext(ctx, q, r,
			`SELECT r.id, r.product_id, r.user_id, u.full_name AS user_name, r.rating, r.comment, r.created_at
			FROM reviews r JOIN users u ON u.id = r.user_id WHERE r.id = ?`, r.ID)
	})
}

func (s *Store) ListReviews(ctx context.Context, productID int64) ([]models.Review, error) {
	reviews := []models.Review{}
	err := s.with(ctx, func(q Querier) error {
		return sqlx.SelectContext(ctx, q, &reviews,
			`SELECT r.id, r.product_id, r.user_id, u.full_name AS user_name, r.rating, r.comment, r.created_at
			FROM reviews r JOIN users u ON u.id = r.user_id
			WHERE r.product_id = ?
			ORDER BY r.created_at DESC, r.id DESC`, productID)
	})
	return reviews, errors.Wrap(err, "list reviews")
}

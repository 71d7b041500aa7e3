// Package session keeps per-visitor state (cart, chosen category, theme) in
// an HS256-signed cookie.
package session

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/01moynul/pawshop-golang/internal/cart"
	"github.com/01moynul/pawshop-golang/internal/models"
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Session is the visitor state carried by the cookie.
type Session struct {
	ID       string             `json:"sid"`
	Cart     []models.CartEntry `json:"cart,omitempty"`
	Category string             `json:"category,omitempty"`
	Theme    string             `json:"theme,omitempty"`
}

// ToggleTheme flips between the light and dark themes.
func (s *Session) ToggleTheme() string {
	if s.Theme == ThemeDark {
		s.Theme = ThemeLight
	} else {
		s.Theme = ThemeDark
	}
	return s.Theme
}

type claims struct {
	Session
	jwt.RegisteredClaims
}

type ctxKey struct{}

// state is the request-scoped session plus the writer its cookie goes to.
type state struct {
	session *Session
	w       http.ResponseWriter
}

// Manager encodes sessions into cookies and serves as the cart store.
type Manager struct {
	secret []byte
	cookie string
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

var _ cart.Store = (*Manager)(nil)

func NewManager(secret, cookieName string, ttl time.Duration, secure bool) *Manager {
	return &Manager{secret: []byte(secret), cookie: cookieName, ttl: ttl, secure: secure, now: time.Now}
}

// Encode signs s.
func (m *Manager) Encode(s *Session) (string, error) {
	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Session: *s,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	})
	return token.SignedString(m.secret)
}

// Decode verifies value and returns the session it carries. Carts are
// normalized since the cookie round-trips through the client.
func (m *Manager) Decode(value string) (*Session, error) {
	c := &claims{}
	_, err := jwt.ParseWithClaims(value, c, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, errors.Wrap(err, "decode session")
	}
	if c.Session.ID == "" {
		return nil, errors.New("session without id")
	}
	s := c.Session
	s.Cart = cart.Normalize(s.Cart)
	return &s, nil
}

// Middleware loads the visitor's session, starting a fresh one when the
// cookie is missing or invalid, and makes it available to handlers.
func (m *Manager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var s *Session
		if raw, err := c.Cookie(m.cookie); err == nil && raw != "" {
			if s, err = m.Decode(raw); err != nil {
				log.WithError(err).Debug("discarding session cookie")
			}
		}
		if s == nil {
			s = &Session{ID: uuid.NewString(), Theme: ThemeLight}
			if err := m.write(c.Writer, s); err != nil {
				log.WithError(err).Error("failed to issue session cookie")
			}
		}

		st := &state{session: s, w: c.Writer}
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), ctxKey{}, st))
		c.Next()
	}
}

// Current returns the session of the request in ctx.
func Current(ctx context.Context) (*Session, bool) {
	st, ok := ctx.Value(ctxKey{}).(*state)
	if !ok {
		return nil, false
	}
	return st.session, true
}

// Update applies fn to the request's session and re-issues the cookie.
// It must run before the response body is written.
func (m *Manager) Update(ctx context.Context, fn func(s *Session)) error {
	st, ok := ctx.Value(ctxKey{}).(*state)
	if !ok {
		return errors.New("no session in context")
	}
	fn(st.session)
	return m.write(st.w, st.session)
}

func (m *Manager) GetCart(ctx context.Context, sessionID string) ([]models.CartEntry, error) {
	s, err := m.lookup(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return append([]models.CartEntry(nil), s.Cart...), nil
}

func (m *Manager) SetCart(ctx context.Context, sessionID string, entries []models.CartEntry) error {
	if _, err := m.lookup(ctx, sessionID); err != nil {
		return err
	}
	return m.Update(ctx, func(s *Session) {
		s.Cart = append([]models.CartEntry(nil), entries...)
	})
}

func (m *Manager) ClearCart(ctx context.Context, sessionID string) error {
	return m.SetCart(ctx, sessionID, nil)
}

func (m *Manager) lookup(ctx context.Context, sessionID string) (*Session, error) {
	s, ok := Current(ctx)
	if !ok {
		return nil, errors.New("no session in context")
	}
	if s.ID != sessionID {
		return nil, errors.Errorf("session %s is not the current session", sessionID)
	}
	return s, nil
}

// write sets the cookie on w, replacing one set earlier in the same response.
func (m *Manager) write(w http.ResponseWriter, s *Session) error {
	value, err := m.Encode(s)
	if err != nil {
		return err
	}

	prefix := m.cookie + "="
	var kept []string
	for _, v := range w.Header().Values("Set-Cookie") {
		if !strings.HasPrefix(v, prefix) {
			kept = append(kept, v)
		}
	}
	w.Header().Del("Set-Cookie")
	for _, v := range kept {
		w.Header().Add("Set-Cookie", v)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie,
		Value:    value,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

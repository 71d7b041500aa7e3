package notify

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01moynul/pawshop-golang/internal/models"
)

type sent struct {
	recipient, subject, body string
}

type mockSender struct {
	mu          sync.Mutex
	messages    []sent
	ShouldError bool
}

func (m *mockSender) Send(_ context.Context, recipient, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldError {
		return errors.New("relay refused")
	}
	m.messages = append(m.messages, sent{recipient, subject, body})
	return nil
}

func (m *mockSender) Sent() []sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sent(nil), m.messages...)
}

type mockInbox struct {
	mu    sync.Mutex
	kinds []string
}

func (m *mockInbox) CreateNotification(_ context.Context, kind, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kinds = append(m.kinds, kind)
	return nil
}

func (m *mockInbox) Kinds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.kinds...)
}

func setup(t *testing.T, opts Options) (*Dispatcher, *mockSender, *mockSender, *mockInbox) {
	email, sms, inbox := &mockSender{}, &mockSender{}, &mockInbox{}
	if opts.Workers == 0 {
		opts.Workers = 2
	}
	d := NewDispatcher(opts, map[Channel]Sender{
		Email: email,
		SMS:   sms,
		Inbox: InboxSender{Store: inbox},
	})
	t.Cleanup(d.Close)
	return d, email, sms, inbox
}

func order() *models.Order {
	return &models.Order{
		OrderCode:  "ABCD-EFGH-1234-5678",
		TotalPrice: decimal.NewFromInt(250),
		Contact:    models.Contact{Name: "Ada", Email: "ada@example.com", Phone: "+905551112233"},
	}
}

func TestNotifyOrderCreated(t *testing.T) {
	d, email, _, inbox := setup(t, Options{ShopName: "Pawshop"})

	d.NotifyOrderCreated(order())
	d.Close()

	require.Len(t, email.Sent(), 1)
	assert.Equal(t, "ada@example.com", email.Sent()[0].recipient)
	assert.Contains(t, email.Sent()[0].body, "250.00")
	assert.Equal(t, []string{KindNewOrder}, inbox.Kinds())
}

func TestNotifyStatusChangedSendsExactlyOneMessage(t *testing.T) {
	t.Run("email preferred", func(t *testing.T) {
		d, email, sms, _ := setup(t, Options{})
		o := order()
		o.ShippingCompany = sql.NullString{String: "Yurtici", Valid: true}
		o.TrackingNumber = sql.NullString{String: "TRK1", Valid: true}

		d.NotifyStatusChanged(o, models.StatusShipped)
		d.Close()

		require.Len(t, email.Sent(), 1)
		assert.Contains(t, email.Sent()[0].body, "TRK1")
		assert.Empty(t, sms.Sent())
	})

	t.Run("sms fallback", func(t *testing.T) {
		d, email, sms, _ := setup(t, Options{})
		o := order()
		o.Email = ""

		d.NotifyStatusChanged(o, models.StatusDelivered)
		d.Close()

		assert.Empty(t, email.Sent())
		assert.Len(t, sms.Sent(), 1)
	})
}

func TestFailedDeliveryIsRecordedInInbox(t *testing.T) {
	d, email, _, inbox := setup(t, Options{})
	email.ShouldError = true

	d.NotifyStatusChanged(order(), models.StatusPreparing)
	d.Close()

	assert.Equal(t, []string{KindDispatchFailed}, inbox.Kinds())
}

func TestNotifyLowStock(t *testing.T) {
	d, email, _, inbox := setup(t, Options{AdminEmail: "admin@example.com"})

	d.NotifyLowStock("Kibble", 2, 5)
	d.Close()

	assert.Equal(t, []string{KindLowStock}, inbox.Kinds())
	require.Len(t, email.Sent(), 1)
	assert.Equal(t, "admin@example.com", email.Sent()[0].recipient)
}

func TestSendNewsletter(t *testing.T) {
	d, email, _, inbox := setup(t, Options{Workers: 3})

	d.SendNewsletter("Spring sale", "20% off", []string{"a@example.com", "b@example.com", "c@example.com"})
	d.Close()

	assert.Len(t, email.Sent(), 3)
	assert.Equal(t, []string{KindNewsletter}, inbox.Kinds())
}

func TestEnqueueAfterCloseDoesNotPanic(t *testing.T) {
	d, email, _, _ := setup(t, Options{})
	d.Close()

	assert.NotPanics(t, func() {
		d.NotifyOrderCreated(order())
		d.SendNewsletter("s", "b", []string{"a@example.com"})
	})
	assert.Empty(t, email.Sent())
}

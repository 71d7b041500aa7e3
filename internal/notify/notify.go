// Package notify delivers customer and admin notifications off the request path.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/01moynul/pawshop-golang/internal/models"
)

// Notifier is what the shop's services call when something happened. Every
// method is best-effort and returns immediately.
type Notifier interface {
	NotifyOrderCreated(order *models.Order)
	NotifyStatusChanged(order *models.Order, status models.OrderStatus)
	NotifyLowStock(name string, stock, threshold int)
	SendNewsletter(subject, body string, emails []string)
}

type Channel int

const (
	Email Channel = iota
	SMS
	// Inbox is the admin notification table.
	Inbox
)

func (c Channel) String() string {
	switch c {
	case Email:
		return "email"
	case SMS:
		return "sms"
	case Inbox:
		return "inbox"
	default:
		return fmt.Sprintf("channel(%d)", int(c))
	}
}

// Sender delivers one message on one channel.
type Sender interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// Kinds of admin inbox entries.
const (
	KindLowStock       = "low_stock"
	KindNewOrder       = "new_order"
	KindDispatchFailed = "dispatch_failed"
	KindNewsletter     = "newsletter"
)

const sendTimeout = 30 * time.Second

type Options struct {
	Workers    int
	QueueSize  int
	ShopName   string
	BaseURL    string
	AdminEmail string
}

type job struct {
	channel   Channel
	recipient string
	subject   string
	body      string
}

// Dispatcher queues notifications to a fixed pool of workers.
type Dispatcher struct {
	opts    Options
	senders map[Channel]Sender
	jobs    chan job

	// closed stops new newsletters; stopped means jobs has been closed.
	mu       sync.RWMutex
	closed   bool
	stopped  bool
	workers  sync.WaitGroup
	detached sync.WaitGroup
}

var _ Notifier = (*Dispatcher)(nil)

func NewDispatcher(opts Options, senders map[Channel]Sender) *Dispatcher {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 64
	}
	d := &Dispatcher{opts: opts, senders: senders, jobs: make(chan job, opts.QueueSize)}
	for i := 0; i < opts.Workers; i++ {
		d.workers.Add(1)
		go d.work()
	}
	return d
}

func (d *Dispatcher) NotifyOrderCreated(o *models.Order) {
	if o.Email != "" {
		d.enqueue(job{
			channel:   Email,
			recipient: o.Email,
			subject:   fmt.Sprintf("%s order %s received", d.opts.ShopName, o.OrderCode),
			body: fmt.Sprintf("Hi %s,\n\nWe received your order %s totalling %s.\nTrack it at %s/orders/%s\n",
				o.Name, o.OrderCode, o.TotalPrice.StringFixed(2), d.opts.BaseURL, o.OrderCode),
		})
	}
	d.enqueue(job{
		channel:   Inbox,
		recipient: KindNewOrder,
		subject:   "/admin/orders/" + o.OrderCode,
		body:      fmt.Sprintf("New order %s from %s (%s)", o.OrderCode, o.Name, o.TotalPrice.StringFixed(2)),
	})
}

// NotifyStatusChanged sends exactly one message to the customer: by email
// when an address is on file, by SMS otherwise.
func (d *Dispatcher) NotifyStatusChanged(o *models.Order, status models.OrderStatus) {
	body := fmt.Sprintf("Hi %s,\n\nYour order %s is now %s.", o.Name, o.OrderCode, status)
	if status == models.StatusShipped && o.TrackingNumber.Valid {
		body += fmt.Sprintf("\nCarrier: %s\nTracking number: %s", o.ShippingCompany.String, o.TrackingNumber.String)
	}
	subject := fmt.Sprintf("Order %s: %s", o.OrderCode, status)

	switch {
	case o.Email != "":
		d.enqueue(job{channel: Email, recipient: o.Email, subject: subject, body: body})
	case o.Phone != "":
		d.enqueue(job{channel: SMS, recipient: o.Phone, subject: subject, body: body})
	default:
		log.WithField("order", o.OrderCode).Info("no contact on file, status notification skipped")
	}
}

func (d *Dispatcher) NotifyLowStock(name string, stock, threshold int) {
	message := fmt.Sprintf("%s is low on stock: %d left (threshold %d)", name, stock, threshold)
	d.enqueue(job{channel: Inbox, recipient: KindLowStock, subject: "/admin/stock/low", body: message})
	if d.opts.AdminEmail != "" {
		d.enqueue(job{channel: Email, recipient: d.opts.AdminEmail, subject: "Low stock: " + name, body: message})
	}
}

// SendNewsletter mails every address in the background.
func (d *Dispatcher) SendNewsletter(subject, body string, emails []string) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		log.Warn("dispatcher closed, newsletter dropped")
		return
	}

	d.detached.Add(1)
	go func() {
		defer d.detached.Done()
		sent, failed := d.broadcast(context.Background(), subject, body, emails)
		log.WithFields(log.Fields{"sent": sent, "failed": failed}).Info("newsletter delivered")
		d.enqueue(job{
			channel:   Inbox,
			recipient: KindNewsletter,
			body:      fmt.Sprintf("Newsletter %q: %d sent, %d failed", subject, sent, failed),
		})
	}()
}

func (d *Dispatcher) broadcast(ctx context.Context, subject, body string, emails []string) (sent, failed int) {
	sender, ok := d.senders[Email]
	if !ok {
		return 0, len(emails)
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Workers)
	for _, to := range emails {
		to := to
		g.Go(func() error {
			sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
			defer cancel()
			err := sender.Send(sendCtx, to, subject, body)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				log.WithError(err).WithField("recipient", to).Warn("newsletter delivery failed")
				return nil
			}
			sent++
			return nil
		})
	}
	_ = g.Wait()
	return sent, failed
}

// Close stops accepting work and waits for queued and detached sends to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	d.detached.Wait()

	d.mu.Lock()
	d.stopped = true
	close(d.jobs)
	d.mu.Unlock()
	d.workers.Wait()
}

// enqueue never blocks: a full queue drops the job with a log line.
func (d *Dispatcher) enqueue(j job) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		log.WithField("channel", j.channel).Warn("dispatcher stopped, dropping message")
		return
	}

	select {
	case d.jobs <- j:
	default:
		log.WithFields(log.Fields{"channel": j.channel, "recipient": j.recipient}).
			Error("notification queue full, dropping message")
	}
}

func (d *Dispatcher) work() {
	defer d.workers.Done()
	for j := range d.jobs {
		d.deliver(j)
	}
}

func (d *Dispatcher) deliver(j job) {
	fields := log.Fields{"channel": j.channel, "recipient": j.recipient}

	sender, ok := d.senders[j.channel]
	if !ok {
		log.WithFields(fields).Warn("no sender configured for channel")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	err := sender.Send(ctx, j.recipient, j.subject, j.body)
	if err == nil {
		log.WithFields(fields).Debug("notification sent")
		return
	}

	log.WithError(err).WithFields(fields).Error("notification failed")
	if j.channel == Inbox {
		return
	}
	if inbox, ok := d.senders[Inbox]; ok {
		msg := fmt.Sprintf("Could not send %s to %s (%s): %v", j.channel, j.recipient, j.subject, errors.Cause(err))
		if err := inbox.Send(ctx, KindDispatchFailed, "", msg); err != nil {
			log.WithError(err).Error("failed to record notification failure")
		}
	}
}

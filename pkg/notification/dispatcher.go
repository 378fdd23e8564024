package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bankops/caseflow/pkg/eventbus"
	"github.com/bankops/caseflow/pkg/events"
	"github.com/bankops/caseflow/pkg/models"
	"github.com/bankops/caseflow/pkg/persistence"
)

// ErrUnknownTemplate indicates a send for a notification type with no registered template.
var ErrUnknownTemplate = errors.New("unknown notification template")

// SendRequest describes one dispatch call.
type SendRequest struct {
	Type          string
	Recipient     string
	RecipientKind models.RecipientKind
	CaseID        string
	Data          map[string]any
	Priority      models.NotificationPriority // Overrides the template default when set
}

// ChannelResult records the outcome of one channel attempt. Channel failures
// never fail the overall send; callers inspect these results instead.
type ChannelResult struct {
	Channel models.Channel
	Target  string
	Err     error
}

// Delivery is the best-effort outcome of a Send call.
type Delivery struct {
	Notification *models.Notification
	Channels     []ChannelResult
}

// Dispatcher formats templates and fans deliveries out to channel senders.
type Dispatcher struct {
	store     persistence.DataStore
	senders   map[models.Channel]ChannelSender
	publisher eventbus.EventPublisher
	logger    *slog.Logger
}

// NewDispatcher wires a dispatcher. publisher may be nil; lifecycle events are
// then skipped.
func NewDispatcher(store persistence.DataStore, senders map[models.Channel]ChannelSender, publisher eventbus.EventPublisher, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:     store,
		senders:   senders,
		publisher: publisher,
		logger:    logger,
	}
}

// Send formats the template, persists a pending notification row and delivers
// it on every channel the template lists. Each channel runs independently; one
// failing never blocks the others.
func (d *Dispatcher) Send(ctx context.Context, req SendRequest) (*Delivery, error) {
	tmpl, ok := LookupTemplate(req.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, req.Type)
	}

	priority := tmpl.Priority
	if req.Priority != "" {
		priority = req.Priority
	}

	n := &models.Notification{
		Type:          req.Type,
		Title:         substitute(tmpl.Title, req.Data),
		Message:       substitute(tmpl.Message, req.Data),
		Recipient:     req.Recipient,
		RecipientKind: req.RecipientKind,
		CaseID:        req.CaseID,
		Priority:      priority,
		Status:        models.NotificationStatusPending,
	}

	err := d.store.Notifications().Create(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("failed to persist notification: %w", err)
	}

	results := make([]ChannelResult, len(tmpl.Channels))

	var wg sync.WaitGroup

	for i, channel := range tmpl.Channels {
		wg.Add(1)

		go func(i int, channel models.Channel) {
			defer wg.Done()

			results[i] = d.deliver(ctx, channel, req, n)
		}(i, channel)
	}

	wg.Wait()

	d.updateStatus(ctx, n, finalStatus(results))

	d.publishSent(ctx, req, n)

	return &Delivery{Notification: n, Channels: results}, nil
}

// finalStatus folds the per-channel outcomes into the notification's status: a
// notification counts as sent when at least one channel delivered it, and
// failed only when every channel failed.
func finalStatus(results []ChannelResult) models.NotificationStatus {
	for _, result := range results {
		if result.Err == nil {
			return models.NotificationStatusSent
		}
	}

	return models.NotificationStatusFailed
}

// SendWithCaseData loads the case and its customer, merges the usual
// substitution keys into data and sends.
func (d *Dispatcher) SendWithCaseData(ctx context.Context, notificationType, caseID, recipient string, kind models.RecipientKind, extra map[string]any) (*Delivery, error) {
	c, err := d.store.Cases().GetByID(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load case %s: %w", caseID, err)
	}

	data := map[string]any{
		"caseNumber": c.CaseNumber,
		"loanAmount": c.LoanAmount,
		"status":     c.Status,
	}

	customer, err := d.store.Customers().GetByID(ctx, c.CustomerID)
	if err == nil {
		data["customerName"] = customer.FullName
	} else {
		d.logger.WarnContext(ctx, "Failed to load customer for notification",
			"case_id", caseID, "customer_id", c.CustomerID, "error", err)
	}

	for k, v := range extra {
		data[k] = v
	}

	return d.Send(ctx, SendRequest{
		Type:          notificationType,
		Recipient:     recipient,
		RecipientKind: kind,
		CaseID:        caseID,
		Data:          data,
	})
}

// deliver resolves the channel target and sends. It runs on its own goroutine
// and must not touch n beyond reads; the caller folds the results into the
// notification's status after all channels have finished. Errors are recorded
// and logged, never returned upward.
func (d *Dispatcher) deliver(ctx context.Context, channel models.Channel, req SendRequest, n *models.Notification) ChannelResult {
	result := ChannelResult{Channel: channel}

	sender, ok := d.senders[channel]
	if !ok {
		result.Err = fmt.Errorf("no sender configured for channel %s", channel)
		d.logger.WarnContext(ctx, "Skipping notification channel", "channel", channel, "error", result.Err)

		return result
	}

	target, err := d.resolveTarget(ctx, channel, req)
	if err != nil {
		result.Err = err
		d.logger.ErrorContext(ctx, "Failed to resolve notification target",
			"channel", channel, "recipient", req.Recipient, "error", err)

		return result
	}

	result.Target = target

	err = sender.Send(ctx, target, n)
	if err != nil {
		result.Err = err
		d.logger.ErrorContext(ctx, "Notification delivery failed",
			"channel", channel, "target", target, "error", err)
	}

	return result
}

// resolveTarget maps the recipient to a channel-specific address. User ids are
// looked up in the data store; raw emails/phones pass through; roles deliver
// to the role inbox.
func (d *Dispatcher) resolveTarget(ctx context.Context, channel models.Channel, req SendRequest) (string, error) {
	switch req.RecipientKind {
	case models.RecipientUser:
		user, err := d.store.Users().GetByID(ctx, req.Recipient)
		if err != nil {
			return "", fmt.Errorf("failed to resolve user %s: %w", req.Recipient, err)
		}

		switch channel {
		case models.ChannelSMS:
			return user.Phone, nil
		case models.ChannelEmail:
			return user.Email, nil
		default:
			return user.ID, nil
		}
	case models.RecipientEmail, models.RecipientPhone, models.RecipientRole:
		return req.Recipient, nil
	default:
		return "", fmt.Errorf("unsupported recipient kind %q", req.RecipientKind)
	}
}

func (d *Dispatcher) updateStatus(ctx context.Context, n *models.Notification, status models.NotificationStatus) {
	n.Status = status

	err := d.store.Notifications().UpdateStatus(ctx, n.ID, status)
	if err != nil {
		d.logger.ErrorContext(ctx, "Failed to update notification status",
			"notification_id", n.ID, "status", status, "error", err)
	}
}

func (d *Dispatcher) publishSent(ctx context.Context, req SendRequest, n *models.Notification) {
	if d.publisher == nil {
		return
	}

	event := events.NotificationSent{
		BaseEvent:      events.NewBaseEvent(events.NotificationSentEvent, "", "", req.CaseID),
		NotificationID: n.ID,
		Template:       req.Type,
		Recipient:      req.Recipient,
	}

	err := d.publisher.Publish(ctx, n.ID, event)
	if err != nil {
		d.logger.WarnContext(ctx, "Failed to publish notification event", "error", err)
	}
}

package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dormduty/dormduty/internal/event"
	"github.com/dormduty/dormduty/internal/model"
	"github.com/dormduty/dormduty/internal/store"
)

// Notifier turns domain events into web push notifications: swap requests go
// to their recipient, pending completions to the room's admins, and verdicts
// back to the submitter.
type Notifier struct {
	service *Service
	push    *store.PushStore
	members *store.MembershipStore
	chores  *store.ChoreStore
	bus     *event.Bus
	logger  *slog.Logger
}

func NewNotifier(svc *Service, pushStore *store.PushStore, members *store.MembershipStore, chores *store.ChoreStore, bus *event.Bus, logger *slog.Logger) *Notifier {
	return &Notifier{
		service: svc,
		push:    pushStore,
		members: members,
		chores:  chores,
		bus:     bus,
		logger:  logger,
	}
}

// Run consumes bus events until the context is cancelled.
func (n *Notifier) Run(ctx context.Context) {
	events, cancel := n.bus.Subscribe(64)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			n.handle(e)
		}
	}
}

func (n *Notifier) handle(e event.Event) {
	switch e.Type {
	case event.TypeSwapRequested:
		n.notifySwapRequested(e)
	case event.TypeCompletionSubmitted:
		if e.Status == model.CompletionPending {
			n.notifyCompletionSubmitted(e)
		}
	case event.TypeCompletionVerified:
		n.notifyCompletionVerified(e)
	}
}

func (n *Notifier) notifySwapRequested(e event.Event) {
	choreName := n.choreName(e.ChoreID)
	n.sendToMembership(e.MembershipID, model.NotifTypeSwapRequested, Payload{
		Title: "Swap Request",
		Body:  fmt.Sprintf("Someone asked you to take over %q", choreName),
		Tag:   fmt.Sprintf("swap-%d", e.EntityID),
	})
}

func (n *Notifier) notifyCompletionSubmitted(e event.Event) {
	choreName := n.choreName(e.ChoreID)
	members, err := n.members.ListByRoom(e.RoomID)
	if err != nil {
		n.logger.Error("notifier: list members", "error", err)
		return
	}
	payload := Payload{
		Title: "Completion Awaiting Approval",
		Body:  fmt.Sprintf("%q was marked done and needs a review", choreName),
		Tag:   fmt.Sprintf("completion-%d", e.EntityID),
	}
	for _, m := range members {
		if m.Role != model.RoleAdmin || !m.IsActive || m.ID == e.MembershipID {
			continue
		}
		n.sendToUser(m.UserID, model.NotifTypeCompletionSubmitted, payload)
	}
}

func (n *Notifier) notifyCompletionVerified(e event.Event) {
	choreName := n.choreName(e.ChoreID)
	body := fmt.Sprintf("Your completion of %q was approved", choreName)
	if e.Status == model.CompletionRejected {
		body = fmt.Sprintf("Your completion of %q was rejected", choreName)
	}
	n.sendToMembership(e.MembershipID, model.NotifTypeCompletionVerified, Payload{
		Title: "Completion Reviewed",
		Body:  body,
		Tag:   fmt.Sprintf("verified-%d", e.EntityID),
	})
}

func (n *Notifier) sendToMembership(membershipID int64, notifType string, payload Payload) {
	m, err := n.members.GetByID(membershipID)
	if err != nil || m == nil {
		return
	}
	n.sendToUser(m.UserID, notifType, payload)
}

func (n *Notifier) sendToUser(userID int64, notifType string, payload Payload) {
	subs, err := n.push.ListByUser(userID)
	if err != nil {
		n.logger.Error("notifier: list subscriptions", "error", err)
		return
	}
	for _, sub := range subs {
		if err := n.service.Send(&sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				n.push.DeleteByEndpoint(sub.Endpoint)
				continue
			}
			n.logger.Error("notifier: send", "type", notifType, "error", err)
		}
	}
}

func (n *Notifier) choreName(choreID int64) string {
	c, err := n.chores.GetByID(choreID)
	if err != nil || c == nil {
		return "a chore"
	}
	return c.Name
}

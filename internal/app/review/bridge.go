// Package review bridges the application lifecycle to the human review
// channel: it renders newly submitted applications as actionable messages and
// translates button activations back into lifecycle calls.
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jessiesmp/intake/internal/app/domain/application"
	"github.com/jessiesmp/intake/internal/app/domain/role"
	"github.com/jessiesmp/intake/internal/app/services/applications"
	"github.com/jessiesmp/intake/internal/app/services/permissions"
	"github.com/jessiesmp/intake/internal/app/services/roles"
	"github.com/jessiesmp/intake/internal/app/storage"
	"github.com/jessiesmp/intake/pkg/logger"
)

// Button is one actionable element of a review message.
type Button struct {
	Label string
	Data  string
}

// MessageRef identifies a message in the review channel.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Callback is an inbound button activation.
type Callback struct {
	ID      string
	ActorID string
	Data    string
	Message MessageRef
}

// Transport abstracts the messaging channel. Implementations must be safe for
// concurrent use.
type Transport interface {
	// SendReview posts a message with an inline keyboard to the review
	// channel.
	SendReview(ctx context.Context, text string, keyboard [][]Button) (MessageRef, error)
	// EditKeyboard replaces the keyboard of an existing message.
	EditKeyboard(ctx context.Context, ref MessageRef, keyboard [][]Button) error
	// Ack sends a transient acknowledgement for a callback to its actor.
	Ack(ctx context.Context, callbackID, text string) error
	// Post sends a plain message to the review channel.
	Post(ctx context.Context, text string) error
}

// defaultPromptTTL bounds how long a role-grant prompt waits for the
// reviewer's reply.
const defaultPromptTTL = 5 * time.Minute

type pendingPrompt struct {
	role          role.Role
	applicationID string
	expires       time.Time
}

// Bridge implements the review-channel protocol. It is an event sink of the
// lifecycle manager for outbound messages and the handler for inbound
// callbacks and reviewer replies.
type Bridge struct {
	apps      *applications.Service
	perms     *permissions.Service
	roles     *roles.Service
	transport Transport
	log       *logger.Logger

	promptTTL time.Duration
	mu        sync.Mutex
	prompts   map[string]pendingPrompt
}

// New constructs a bridge over the given transport.
func New(apps *applications.Service, perms *permissions.Service, roleSvc *roles.Service, transport Transport, log *logger.Logger) *Bridge {
	if log == nil {
		log = logger.NewDefault("review")
	}
	return &Bridge{
		apps:      apps,
		perms:     perms,
		roles:     roleSvc,
		transport: transport,
		log:       log,
		promptTTL: defaultPromptTTL,
		prompts:   make(map[string]pendingPrompt),
	}
}

var _ applications.EventSink = (*Bridge)(nil)

// ApplicationSubmitted posts the review message. A transport failure is
// logged and swallowed: the application record is already persisted and
// queryable, and the submitter must not see a channel-side error.
func (b *Bridge) ApplicationSubmitted(ctx context.Context, app application.Application) {
	keyboard := [][]Button{{
		{Label: "✅ Approve", Data: Token{Kind: KindApprove, ApplicationID: app.ID}.String()},
		{Label: "❌ Reject", Data: Token{Kind: KindReject, ApplicationID: app.ID}.String()},
	}}
	if _, err := b.transport.SendReview(ctx, renderApplication(app), keyboard); err != nil {
		b.log.WithError(err).
			WithField("application_id", app.ID).
			Warn("review channel unreachable; application persisted without reviewer notification")
	}
}

// ApplicationDecided is part of the event sink contract. The message update
// happens in the callback path, which knows the message to edit.
func (b *Bridge) ApplicationDecided(_ context.Context, app application.Application) {
	b.log.WithField("application_id", app.ID).
		WithField("status", app.Status).
		Debug("decision event observed")
}

// HandleCallback processes one inbound button activation. Unrecognized and
// inert tokens are acknowledged and ignored; permission denials acknowledge
// without mutating state or the displayed message.
func (b *Bridge) HandleCallback(ctx context.Context, cb Callback) {
	token, ok := ParseToken(cb.Data)
	if !ok {
		b.log.WithField("data", cb.Data).Debug("ignoring unrecognized action token")
		b.ack(ctx, cb.ID, "")
		return
	}

	switch token.Kind {
	case KindDecided:
		b.ack(ctx, cb.ID, "Application already decided")
	case KindApprove, KindReject:
		b.handleDecision(ctx, cb, token)
	case KindAssignRole:
		b.handleRolePrompt(ctx, cb, token)
	}
}

func (b *Bridge) handleDecision(ctx context.Context, cb Callback, token Token) {
	outcome := application.StatusApproved
	if token.Kind == KindReject {
		outcome = application.StatusRejected
	}

	decided, err := b.apps.Decide(ctx, token.ApplicationID, cb.ActorID, outcome)
	switch {
	case err == nil:
		caps, capErr := b.perms.Capabilities(ctx, cb.ActorID)
		if capErr != nil {
			b.log.WithError(capErr).WithField("actor", cb.ActorID).Warn("capability lookup after decision failed")
		}
		if editErr := b.transport.EditKeyboard(ctx, cb.Message, decidedKeyboard(decided, caps)); editErr != nil {
			b.log.WithError(editErr).WithField("application_id", decided.ID).Warn("update review message")
		}
		if outcome == application.StatusApproved {
			b.ack(ctx, cb.ID, "Application approved")
		} else {
			b.ack(ctx, cb.ID, "Application rejected")
		}
	case errors.Is(err, applications.ErrAlreadyDecided):
		b.ack(ctx, cb.ID, "Application already decided")
	case errors.Is(err, permissions.ErrForbidden):
		b.ack(ctx, cb.ID, "You do not have permission for this action")
	case errors.Is(err, storage.ErrNotFound):
		b.ack(ctx, cb.ID, "Application not found")
	default:
		b.log.WithError(err).WithField("application_id", token.ApplicationID).Error("apply decision")
		b.ack(ctx, cb.ID, "Something went wrong, try again")
	}
}

func (b *Bridge) handleRolePrompt(ctx context.Context, cb Callback, token Token) {
	caps, err := b.perms.Capabilities(ctx, cb.ActorID)
	if err != nil {
		b.log.WithError(err).WithField("actor", cb.ActorID).Error("evaluate capabilities")
		b.ack(ctx, cb.ID, "Something went wrong, try again")
		return
	}
	if !roles.CanGrant(caps, token.Role) {
		b.ack(ctx, cb.ID, "You do not have permission for this action")
		return
	}

	actor := role.Normalize(cb.ActorID)
	b.mu.Lock()
	b.prompts[actor] = pendingPrompt{
		role:          token.Role,
		applicationID: token.ApplicationID,
		expires:       time.Now().Add(b.promptTTL),
	}
	b.mu.Unlock()

	b.ack(ctx, cb.ID, fmt.Sprintf("Reply with the @username to grant %s", token.Role))
}

// HandleMessage completes a pending role grant: the reviewer's next free-text
// message in the channel supplies the target handle. Messages from reviewers
// without a live prompt are ignored.
func (b *Bridge) HandleMessage(ctx context.Context, actorID, text string) {
	actor := role.Normalize(actorID)

	b.mu.Lock()
	prompt, ok := b.prompts[actor]
	if ok {
		delete(b.prompts, actor)
	}
	b.mu.Unlock()

	if !ok {
		return
	}
	if time.Now().After(prompt.expires) {
		b.log.WithField("actor", actor).Debug("role prompt expired")
		return
	}

	target := extractHandle(text)
	if target == "" {
		b.post(ctx, fmt.Sprintf("@%s: no username found in reply, role grant cancelled", actor))
		return
	}

	err := b.roles.Assign(ctx, actor, target, prompt.role)
	switch {
	case err == nil:
		b.post(ctx, fmt.Sprintf("Granted %s to @%s", prompt.role, target))
	case errors.Is(err, permissions.ErrForbidden):
		b.post(ctx, fmt.Sprintf("@%s: you do not have permission to grant %s", actor, prompt.role))
	default:
		b.log.WithError(err).WithField("target", target).Error("grant role")
		b.post(ctx, "Role grant failed, try again")
	}
}

func (b *Bridge) ack(ctx context.Context, callbackID, text string) {
	if err := b.transport.Ack(ctx, callbackID, text); err != nil {
		b.log.WithError(err).Debug("acknowledge callback")
	}
}

func (b *Bridge) post(ctx context.Context, text string) {
	if err := b.transport.Post(ctx, text); err != nil {
		b.log.WithError(err).Warn("post to review channel")
	}
}

// decidedKeyboard builds the post-decision keyboard. Root and owner deciders
// get the role-grant menu; everyone else gets only the inert decided label.
func decidedKeyboard(app application.Application, caps permissions.Capabilities) [][]Button {
	label := Button{Label: "✅ Approved", Data: labelAlreadyApproved}
	if app.Status == application.StatusRejected {
		label = Button{Label: "❌ Rejected", Data: labelAlreadyRejected}
	}

	if !caps.IsOwner {
		return [][]Button{{label}}
	}
	return [][]Button{
		{
			{Label: "🎮 Admin", Data: Token{Kind: KindAssignRole, Role: role.Admin, ApplicationID: app.ID}.String()},
			{Label: "👑 Owner", Data: Token{Kind: KindAssignRole, Role: role.Owner, ApplicationID: app.ID}.String()},
			{Label: "📋 Curator", Data: Token{Kind: KindAssignRole, Role: role.Curator, ApplicationID: app.ID}.String()},
		},
		{label},
	}
}

func renderApplication(app application.Application) string {
	var sb strings.Builder
	sb.WriteString("🎮 *New membership application*\n\n")
	fmt.Fprintf(&sb, "*Nickname:* %s\n", app.Payload.Nickname)
	if app.Payload.Age != "" {
		fmt.Fprintf(&sb, "*Age:* %s\n", app.Payload.Age)
	}
	if app.Payload.Experience != "" {
		fmt.Fprintf(&sb, "*Experience:* %s\n", app.Payload.Experience)
	}
	if app.Payload.Playstyle != "" {
		fmt.Fprintf(&sb, "*Playstyle:* %s\n", app.Payload.Playstyle)
	}
	contact := app.Payload.Contact
	if contact == "" {
		contact = "not provided"
	}
	fmt.Fprintf(&sb, "*Contact:* %s\n", contact)
	if app.Payload.About != "" {
		fmt.Fprintf(&sb, "\n*About:*\n%s\n", app.Payload.About)
	}
	fmt.Fprintf(&sb, "\n*Application ID:* %s\n", app.ID)
	fmt.Fprintf(&sb, "*Submitted:* %s", app.CreatedAt.Format(time.RFC1123))
	return sb.String()
}

// extractHandle returns the first @-prefixed word in text, without the @.
func extractHandle(text string) string {
	for _, field := range strings.Fields(text) {
		if strings.HasPrefix(field, "@") && len(field) > 1 {
			return strings.TrimPrefix(field, "@")
		}
	}
	return ""
}

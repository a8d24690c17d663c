// Package dashboard composes the client components into one screen state:
// the session gates the subscription check, which gates the invoice feed.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/polkiloo/invoicedesk/internal/client"
	"github.com/polkiloo/invoicedesk/internal/client/editor"
	"github.com/polkiloo/invoicedesk/internal/client/feed"
	"github.com/polkiloo/invoicedesk/internal/client/gate"
	"github.com/polkiloo/invoicedesk/internal/client/session"
	"github.com/polkiloo/invoicedesk/internal/client/upload"
	"github.com/polkiloo/invoicedesk/internal/domain/model"
)

// View is what the dashboard currently shows.
type View string

const (
	ViewUnavailable          View = "unavailable"
	ViewLoading              View = "loading"
	ViewSignedOut            View = "signed-out"
	ViewCheckingSubscription View = "checking-subscription"
	ViewPurchase             View = "purchase"
	ViewFeed                 View = "feed"
	ViewEditor               View = "editor"
)

const (
	signInFailedMessage = "Failed to sign in."
	signUpFailedMessage = "Failed to sign up."
)

var (
	ErrUnavailable    = errors.New("dashboard unavailable")
	ErrUnknownInvoice = errors.New("invoice not in feed")
	ErrWrongView      = errors.New("action not available in this view")
)

// Snapshot is a consistent copy of the dashboard state for rendering.
type Snapshot struct {
	View         View
	Identity     *model.Identity
	Subscription model.SubscriptionStatus
	Invoices     []model.Invoice
	LoginError   string
	Err          error
}

// Dashboard owns one instance of every client component.
type Dashboard struct {
	conns  *client.Connections
	logger *slog.Logger
	err    error

	Session *session.Store
	Gate    *gate.Gate
	Feed    *feed.Feed
	Upload  *upload.Flow

	mu         sync.Mutex
	view       View
	identity   *model.Identity
	loginError string
	editor     *editor.Editor
	cancel     context.CancelFunc
	done       chan struct{}
	changes    client.Notifier[View]
}

// New builds the dashboard. Invalid connections leave it in ViewUnavailable.
func New(conns *client.Connections, cfg client.Config, logger *slog.Logger) *Dashboard {
	d := &Dashboard{conns: conns, logger: logger, view: ViewLoading}
	if err := conns.Validate(); err != nil {
		logger.Error("client connections unusable", slog.Any("error", err))
		d.err = err
		d.view = ViewUnavailable
		d.changes.Publish(d.view)
		return d
	}

	d.Session = session.New(conns, cfg.InitialAuthToken, logger)
	d.Gate = gate.New(conns.Subscriptions, logger)
	d.Feed = feed.New(conns.Records, logger)
	d.Upload = upload.New(conns.Uploads, logger)
	d.changes.Publish(d.view)
	return d
}

// Mount starts the session and the bootstrap sign-in and begins reacting to
// auth and invoice notifications.
func (d *Dashboard) Mount(ctx context.Context) error {
	if d.err != nil {
		return errors.Join(ErrUnavailable, d.err)
	}
	d.mu.Lock()
	if d.cancel != nil {
		d.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	done := d.done
	d.mu.Unlock()

	if d.conns.Health != nil {
		if err := d.conns.Health.Health(ctx); err != nil {
			d.logger.Warn("backend health probe failed", slog.Any("error", err))
		}
	}

	states := d.Session.Watch(ctx)
	snapshots := d.Feed.Watch(ctx)
	d.Session.Start(ctx)
	d.Session.Bootstrap(ctx)

	go d.run(ctx, states, snapshots, done)
	return nil
}

func (d *Dashboard) run(ctx context.Context, states <-chan session.State, snapshots <-chan []model.Invoice, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-states:
			if !ok {
				return
			}
			d.onSession(ctx, state)
		case snapshot, ok := <-snapshots:
			if !ok {
				return
			}
			d.onSnapshot(snapshot)
		}
	}
}

func (d *Dashboard) onSession(ctx context.Context, state session.State) {
	if ctx.Err() != nil {
		return
	}
	if !state.Settled {
		d.setView(ViewLoading)
		return
	}
	if state.Identity == nil {
		d.Feed.Unmount()
		d.Gate.Resolve(ctx, nil)
		d.mu.Lock()
		d.identity = nil
		d.editor = nil
		d.mu.Unlock()
		d.setView(ViewSignedOut)
		return
	}

	d.mu.Lock()
	same := d.identity != nil && d.identity.UID == state.Identity.UID
	d.identity = state.Identity
	if !same {
		d.editor = nil
	}
	d.mu.Unlock()
	if status := d.Gate.Status(); same && status != model.SubscriptionUnknown {
		if status == model.SubscriptionActive && !d.Feed.Mounted() {
			if err := d.Feed.Mount(ctx); err != nil {
				d.logger.Error("invoice feed unavailable", slog.Any("error", err))
			}
		}
		d.changes.Publish(d.View())
		return
	}

	d.Feed.Unmount()
	d.setView(ViewCheckingSubscription)
	status := d.Gate.Resolve(ctx, state.Identity)
	if ctx.Err() != nil {
		return
	}
	d.applyStatus(ctx, status)
}

func (d *Dashboard) applyStatus(ctx context.Context, status model.SubscriptionStatus) {
	if status != model.SubscriptionActive {
		d.Feed.Unmount()
		d.setView(ViewPurchase)
		return
	}
	if !d.Feed.Mounted() {
		if err := d.Feed.Mount(ctx); err != nil {
			d.logger.Error("invoice feed unavailable", slog.Any("error", err))
		}
	}
	d.setView(ViewFeed)
}

func (d *Dashboard) onSnapshot(snapshot []model.Invoice) {
	d.mu.Lock()
	ed := d.editor
	d.mu.Unlock()

	if ed != nil && snapshot != nil {
		id := ed.Invoice().ID
		found := false
		for _, invoice := range snapshot {
			if invoice.ID == id {
				ed.Refresh(invoice)
				found = true
				break
			}
		}
		if !found && !ed.Editing() {
			d.CloseEditor()
			return
		}
	}
	d.changes.Publish(d.View())
}

// Unmount stops every subscription the dashboard opened. Later notifications
// change nothing.
func (d *Dashboard) Unmount() {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.cancel, d.done = nil, nil
	d.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	d.Feed.Unmount()
	d.Session.Stop()
}

// SignIn submits the login form. Failures are kept as LoginError.
func (d *Dashboard) SignIn(ctx context.Context, email, password string) error {
	if d.err != nil {
		return ErrUnavailable
	}
	return d.loginResult(d.Session.SignIn(ctx, email, password), signInFailedMessage)
}

// SignUp submits the registration form. Failures are kept as LoginError.
func (d *Dashboard) SignUp(ctx context.Context, email, password string) error {
	if d.err != nil {
		return ErrUnavailable
	}
	return d.loginResult(d.Session.SignUp(ctx, email, password), signUpFailedMessage)
}

func (d *Dashboard) loginResult(err error, fallback string) error {
	message := ""
	if err != nil {
		message = fallback
		var remote *client.RemoteError
		if errors.As(err, &remote) && remote.Message != "" {
			message = remote.Message
		}
		d.logger.Info("login rejected", slog.Any("error", err))
	}
	d.mu.Lock()
	d.loginError = message
	d.mu.Unlock()
	d.changes.Publish(d.View())
	return err
}

// SignOut closes the feed and editor before ending the session.
func (d *Dashboard) SignOut(ctx context.Context) error {
	if d.err != nil {
		return ErrUnavailable
	}
	d.Feed.Unmount()
	d.mu.Lock()
	d.editor = nil
	d.mu.Unlock()
	return d.Session.SignOut(ctx)
}

// Open switches to the editor for a record of the feed.
func (d *Dashboard) Open(id string) (*editor.Editor, error) {
	if d.View() != ViewFeed && d.View() != ViewEditor {
		return nil, ErrWrongView
	}
	invoice, ok := d.Feed.Select(id)
	if !ok {
		return nil, ErrUnknownInvoice
	}
	ed := editor.New(d.conns.Records, invoice, d.logger)
	d.mu.Lock()
	d.editor = ed
	d.mu.Unlock()
	d.setView(ViewEditor)
	return ed, nil
}

// CloseEditor returns to the feed.
func (d *Dashboard) CloseEditor() {
	d.mu.Lock()
	d.editor = nil
	wasEditing := d.view == ViewEditor
	d.mu.Unlock()
	if wasEditing {
		d.setView(ViewFeed)
	}
}

// Editor is the open editor or nil.
func (d *Dashboard) Editor() *editor.Editor {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.editor
}

// BeginPurchase starts the checkout for the signed-in identity.
func (d *Dashboard) BeginPurchase(ctx context.Context) (*model.Checkout, error) {
	if d.View() != ViewPurchase {
		return nil, ErrWrongView
	}
	return d.Gate.BeginPurchase(ctx)
}

// CompletePurchase confirms the payment and opens the feed once the
// subscription is active.
func (d *Dashboard) CompletePurchase(ctx context.Context, confirmation model.PaymentConfirmation) error {
	if d.View() != ViewPurchase {
		return ErrWrongView
	}
	status, err := d.Gate.CompletePurchase(ctx, confirmation)
	if err != nil {
		return err
	}
	d.mu.Lock()
	running := d.cancel != nil
	d.mu.Unlock()
	if running {
		d.applyStatus(ctx, status)
	}
	return nil
}

func (d *Dashboard) setView(view View) {
	d.mu.Lock()
	d.view = view
	d.mu.Unlock()
	d.changes.Publish(view)
}

func (d *Dashboard) View() View {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.view
}

// Snapshot copies the state for rendering.
func (d *Dashboard) Snapshot() Snapshot {
	d.mu.Lock()
	snap := Snapshot{View: d.view, LoginError: d.loginError, Err: d.err}
	if d.identity != nil {
		identity := *d.identity
		snap.Identity = &identity
	}
	d.mu.Unlock()

	if d.err != nil {
		return snap
	}
	snap.Subscription = d.Gate.Status()
	snap.Invoices = d.Feed.Invoices()
	return snap
}

// Changes delivers the view after every state change until ctx is done.
func (d *Dashboard) Changes(ctx context.Context) <-chan View {
	ch, unsubscribe := d.changes.Subscribe()
	go func() {
		<-ctx.Done()
		unsubscribe()
	}()
	return ch
}

package test

import (
	"context"
	"io"
	"sync"

	"github.com/polkiloo/invoicedesk/internal/client"
	"github.com/polkiloo/invoicedesk/internal/domain/model"
)

// NewConnections bundles fakes into client connections.
func NewConnections(auth *FakeAuth, records *FakeRecords, subs *FakeSubscriptions, uploads *FakeUploader) *client.Connections {
	return &client.Connections{Auth: auth, Records: records, Subscriptions: subs, Uploads: uploads}
}

// FakeAuth is an in-memory auth provider. Sign-in results come from the Fn
// fields or default to a fixed identity.
type FakeAuth struct {
	SignInFn    func(email, password string) (model.Identity, error)
	SignUpFn    func(email, password string) (model.Identity, error)
	AnonymousFn func() (model.Identity, error)
	CustomFn    func(token string) (model.Identity, error)
	SignOutErr  error

	mu       sync.Mutex
	calls    []string
	watchers []context.Context
	states   client.Notifier[*model.Identity]
}

// NewFakeAuth starts signed out.
func NewFakeAuth() *FakeAuth {
	f := &FakeAuth{}
	f.states.Publish(nil)
	return f
}

func (f *FakeAuth) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

// Calls lists invoked methods in order.
func (f *FakeAuth) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *FakeAuth) finish(identity model.Identity, err error) (model.Identity, error) {
	if err != nil {
		return model.Identity{}, err
	}
	f.Emit(&identity)
	return identity, nil
}

func (f *FakeAuth) SignIn(ctx context.Context, email, password string) (model.Identity, error) {
	f.record("SignIn")
	if f.SignInFn != nil {
		return f.finish(f.SignInFn(email, password))
	}
	return f.finish(model.Identity{UID: "user-1", Email: email}, nil)
}

func (f *FakeAuth) SignUp(ctx context.Context, email, password string) (model.Identity, error) {
	f.record("SignUp")
	if f.SignUpFn != nil {
		return f.finish(f.SignUpFn(email, password))
	}
	return f.finish(model.Identity{UID: "user-1", Email: email}, nil)
}

func (f *FakeAuth) SignInAnonymously(ctx context.Context) (model.Identity, error) {
	f.record("SignInAnonymously")
	if f.AnonymousFn != nil {
		return f.finish(f.AnonymousFn())
	}
	return f.finish(model.Identity{UID: "anon-1", Anonymous: true}, nil)
}

func (f *FakeAuth) SignInWithCustomToken(ctx context.Context, token string) (model.Identity, error) {
	f.record("SignInWithCustomToken")
	if f.CustomFn != nil {
		return f.finish(f.CustomFn(token))
	}
	return f.finish(model.Identity{UID: "custom-1"}, nil)
}

func (f *FakeAuth) SignOut(ctx context.Context) error {
	f.record("SignOut")
	if f.SignOutErr != nil {
		return f.SignOutErr
	}
	f.Emit(nil)
	return nil
}

func (f *FakeAuth) WatchAuthState(ctx context.Context) <-chan *model.Identity {
	ch, unsubscribe := f.states.Subscribe()
	f.mu.Lock()
	f.watchers = append(f.watchers, ctx)
	f.mu.Unlock()
	go func() {
		<-ctx.Done()
		unsubscribe()
	}()
	return ch
}

// Emit pushes an auth-state notification.
func (f *FakeAuth) Emit(identity *model.Identity) {
	f.states.Publish(identity)
}

// ActiveWatchers counts subscriptions whose context is still live.
func (f *FakeAuth) ActiveWatchers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, ctx := range f.watchers {
		if ctx.Err() == nil {
			n++
		}
	}
	return n
}

type fakeWatch struct {
	ctx    context.Context
	ch     chan []model.Invoice
	closed bool
}

// FakeRecords is an in-memory record store. Watch channels stay open after
// cancellation so tests can deliver snapshots to stale subscriptions; only
// EndStreams closes them.
type FakeRecords struct {
	WatchErr  error
	ReplaceFn func(ctx context.Context, invoice model.Invoice) (*model.Invoice, error)
	DeleteErr error
	UpsertErr error

	mu       sync.Mutex
	watches  []*fakeWatch
	replaced []model.Invoice
	deleted  []string
	profiles []model.Identity
}

func (f *FakeRecords) WatchInvoices(ctx context.Context) (<-chan []model.Invoice, error) {
	if f.WatchErr != nil {
		return nil, f.WatchErr
	}
	ch := make(chan []model.Invoice, 8)
	f.mu.Lock()
	f.watches = append(f.watches, &fakeWatch{ctx: ctx, ch: ch})
	f.mu.Unlock()
	return ch, nil
}

// Emit delivers a snapshot to every subscription ever opened, live or not.
func (f *FakeRecords) Emit(snapshot []model.Invoice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range f.watches {
		if w.closed {
			continue
		}
		select {
		case w.ch <- snapshot:
		default:
		}
	}
}

// EndStreams closes every open subscription channel, as a store does when
// its connection drops.
func (f *FakeRecords) EndStreams() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range f.watches {
		if !w.closed {
			w.closed = true
			close(w.ch)
		}
	}
}

// ActiveWatchers counts subscriptions whose context is still live.
func (f *FakeRecords) ActiveWatchers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, w := range f.watches {
		if w.ctx.Err() == nil {
			n++
		}
	}
	return n
}

func (f *FakeRecords) ReplaceInvoice(ctx context.Context, invoice model.Invoice) (*model.Invoice, error) {
	f.mu.Lock()
	f.replaced = append(f.replaced, invoice)
	f.mu.Unlock()
	if f.ReplaceFn != nil {
		return f.ReplaceFn(ctx, invoice)
	}
	return &invoice, nil
}

func (f *FakeRecords) DeleteInvoice(ctx context.Context, id string) error {
	f.mu.Lock()
	f.deleted = append(f.deleted, id)
	f.mu.Unlock()
	return f.DeleteErr
}

func (f *FakeRecords) UpsertProfile(ctx context.Context, identity model.Identity) error {
	f.mu.Lock()
	f.profiles = append(f.profiles, identity)
	f.mu.Unlock()
	return f.UpsertErr
}

// Replaced returns every record passed to ReplaceInvoice.
func (f *FakeRecords) Replaced() []model.Invoice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Invoice(nil), f.replaced...)
}

// Deleted returns every id passed to DeleteInvoice.
func (f *FakeRecords) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

// Profiles returns every identity passed to UpsertProfile.
func (f *FakeRecords) Profiles() []model.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Identity(nil), f.profiles...)
}

// FakeSubscriptions answers subscription calls from its fields.
type FakeSubscriptions struct {
	mu        sync.Mutex
	Status    model.SubscriptionStatus
	CheckErr  error
	Checkout  *model.Checkout
	CreateErr error
	// ActivateOnConfirm flips Status to active after a successful ConfirmPayment.
	ActivateOnConfirm bool
	ConfirmErr        error

	checks    []string
	confirmed []model.PaymentConfirmation
}

func (f *FakeSubscriptions) CheckSubscription(ctx context.Context, uid string) (model.SubscriptionStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks = append(f.checks, uid)
	if f.CheckErr != nil {
		return model.SubscriptionUnknown, f.CheckErr
	}
	return f.Status, nil
}

func (f *FakeSubscriptions) CreateSubscription(ctx context.Context) (*model.Checkout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	if f.Checkout != nil {
		checkout := *f.Checkout
		return &checkout, nil
	}
	return &model.Checkout{SubscriptionID: "sub_1", KeyID: "key_1"}, nil
}

func (f *FakeSubscriptions) ConfirmPayment(ctx context.Context, confirmation model.PaymentConfirmation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmed = append(f.confirmed, confirmation)
	if f.ConfirmErr != nil {
		return f.ConfirmErr
	}
	if f.ActivateOnConfirm {
		f.Status = model.SubscriptionActive
	}
	return nil
}

// SetStatus changes the answer of later checks.
func (f *FakeSubscriptions) SetStatus(status model.SubscriptionStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Status = status
}

// Checks lists the uids passed to CheckSubscription.
func (f *FakeSubscriptions) Checks() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.checks...)
}

// Confirmed lists the confirmations passed to ConfirmPayment.
func (f *FakeSubscriptions) Confirmed() []model.PaymentConfirmation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.PaymentConfirmation(nil), f.confirmed...)
}

// FakeUploader records uploads and returns UploadFn's answer.
type FakeUploader struct {
	UploadFn func(name string, content []byte) (*model.Invoice, error)

	mu      sync.Mutex
	uploads map[string][]byte
	calls   int
}

func (f *FakeUploader) UploadInvoice(ctx context.Context, name string, content io.Reader) (*model.Invoice, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	if f.uploads == nil {
		f.uploads = make(map[string][]byte)
	}
	f.uploads[name] = data
	f.calls++
	f.mu.Unlock()
	if f.UploadFn != nil {
		return f.UploadFn(name, data)
	}
	return &model.Invoice{ID: "uploaded", FileName: name, Status: model.InvoiceStatusPending}, nil
}

// Calls returns the number of UploadInvoice calls.
func (f *FakeUploader) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Uploaded returns the bytes received for name.
func (f *FakeUploader) Uploaded(name string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads[name]
}

package dashboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polkiloo/invoicedesk/internal/client"
	"github.com/polkiloo/invoicedesk/internal/domain/model"
	testhelpers "github.com/polkiloo/invoicedesk/internal/test"
)

type fixture struct {
	d       *Dashboard
	auth    *testhelpers.FakeAuth
	records *testhelpers.FakeRecords
	subs    *testhelpers.FakeSubscriptions
	uploads *testhelpers.FakeUploader
}

func newFixture(t *testing.T, status model.SubscriptionStatus, cfg client.Config) *fixture {
	t.Helper()
	f := &fixture{
		auth:    testhelpers.NewFakeAuth(),
		records: &testhelpers.FakeRecords{},
		subs:    &testhelpers.FakeSubscriptions{Status: status},
		uploads: &testhelpers.FakeUploader{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.d = New(testhelpers.NewConnections(f.auth, f.records, f.subs, f.uploads), cfg, logger)
	return f
}

func (f *fixture) mount(t *testing.T) {
	t.Helper()
	require.NoError(t, f.d.Mount(context.Background()))
	t.Cleanup(f.d.Unmount)
}

func waitView(t *testing.T, d *Dashboard, want View) {
	t.Helper()
	require.Eventually(t, func() bool { return d.View() == want }, time.Second, 5*time.Millisecond,
		"expected view %s", want)
}

func TestUnavailableWithoutConnections(t *testing.T) {
	d := New(&client.Connections{}, client.Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.Equal(t, ViewUnavailable, d.View())
	assert.ErrorIs(t, d.Mount(context.Background()), ErrUnavailable)
	assert.ErrorIs(t, d.SignIn(context.Background(), "a@b.c", "pw"), ErrUnavailable)
	assert.ErrorIs(t, d.SignOut(context.Background()), ErrUnavailable)

	snap := d.Snapshot()
	assert.Equal(t, ViewUnavailable, snap.View)
	assert.ErrorIs(t, snap.Err, client.ErrNotConfigured)
	d.Unmount()
}

func TestBootstrapLeadsToFeed(t *testing.T) {
	f := newFixture(t, model.SubscriptionActive, client.Config{})
	f.mount(t)

	waitView(t, f.d, ViewFeed)
	snap := f.d.Snapshot()
	require.NotNil(t, snap.Identity)
	assert.True(t, snap.Identity.Anonymous)
	assert.Equal(t, model.SubscriptionActive, snap.Subscription)
	assert.Equal(t, []string{"anon-1"}, f.subs.Checks())

	f.records.Emit([]model.Invoice{{ID: "b"}, {ID: "a"}})
	require.Eventually(t, func() bool { return len(f.d.Snapshot().Invoices) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "b", f.d.Snapshot().Invoices[0].ID)
}

func TestClosedFeedRemountsOnIdentityEvent(t *testing.T) {
	f := newFixture(t, model.SubscriptionActive, client.Config{})
	f.mount(t)
	waitView(t, f.d, ViewFeed)
	require.Eventually(t, func() bool { return f.records.ActiveWatchers() == 1 }, time.Second, 5*time.Millisecond)

	f.records.EndStreams()
	require.Eventually(t, func() bool { return !f.d.Feed.Mounted() }, time.Second, 5*time.Millisecond)

	f.auth.Emit(&model.Identity{UID: "anon-1", Anonymous: true})
	require.Eventually(t, func() bool { return f.d.Feed.Mounted() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, f.records.ActiveWatchers())
	assert.Equal(t, []string{"anon-1"}, f.subs.Checks())
	assert.Equal(t, ViewFeed, f.d.View())

	f.records.Emit([]model.Invoice{{ID: "a"}})
	require.Eventually(t, func() bool { return len(f.d.Snapshot().Invoices) == 1 }, time.Second, 5*time.Millisecond)
}

func TestBootstrapUsesInitialToken(t *testing.T) {
	f := newFixture(t, model.SubscriptionActive, client.Config{InitialAuthToken: "one-time"})
	f.mount(t)

	waitView(t, f.d, ViewFeed)
	assert.Equal(t, []string{"SignInWithCustomToken"}, f.auth.Calls())
	assert.Equal(t, "custom-1", f.d.Snapshot().Identity.UID)
}

func TestBootstrapFailureShowsSignedOut(t *testing.T) {
	f := newFixture(t, model.SubscriptionActive, client.Config{})
	f.auth.AnonymousFn = func() (model.Identity, error) { return model.Identity{}, errors.New("disabled") }
	f.mount(t)

	waitView(t, f.d, ViewSignedOut)
	assert.Nil(t, f.d.Snapshot().Identity)
	assert.Empty(t, f.subs.Checks())
}

func TestInactiveSubscriptionShowsPurchase(t *testing.T) {
	f := newFixture(t, model.SubscriptionInactive, client.Config{})
	f.subs.ActivateOnConfirm = true
	f.mount(t)

	waitView(t, f.d, ViewPurchase)
	assert.False(t, f.d.Feed.Mounted())

	checkout, err := f.d.BeginPurchase(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sub_1", checkout.SubscriptionID)

	err = f.d.CompletePurchase(context.Background(), model.PaymentConfirmation{
		PaymentID:      "pay_1",
		SubscriptionID: checkout.SubscriptionID,
		Signature:      "sig",
	})
	require.NoError(t, err)
	assert.Equal(t, ViewFeed, f.d.View())
	assert.True(t, f.d.Feed.Mounted())
	assert.Equal(t, "anon-1", f.subs.Confirmed()[0].UserID)
}

func TestFailedCheckShowsPurchase(t *testing.T) {
	f := newFixture(t, model.SubscriptionActive, client.Config{})
	f.subs.CheckErr = errors.New("malformed response")
	f.mount(t)

	waitView(t, f.d, ViewPurchase)
	assert.Equal(t, 0, f.records.ActiveWatchers())
}

func TestSignInErrorIsSurfaced(t *testing.T) {
	f := newFixture(t, model.SubscriptionActive, client.Config{})
	f.auth.AnonymousFn = func() (model.Identity, error) { return model.Identity{}, errors.New("disabled") }
	f.auth.SignInFn = func(email, password string) (model.Identity, error) {
		if password != "secret" {
			return model.Identity{}, &client.RemoteError{Status: http.StatusUnauthorized, Message: "invalid email or password"}
		}
		return model.Identity{UID: "user-1", Email: email}, nil
	}
	f.mount(t)
	waitView(t, f.d, ViewSignedOut)

	assert.Error(t, f.d.SignIn(context.Background(), "a@b.c", "wrong"))
	assert.Equal(t, "invalid email or password", f.d.Snapshot().LoginError)

	f.auth.SignUpFn = func(string, string) (model.Identity, error) { return model.Identity{}, errors.New("boom") }
	assert.Error(t, f.d.SignUp(context.Background(), "a@b.c", "pw"))
	assert.Equal(t, signUpFailedMessage, f.d.Snapshot().LoginError)

	require.NoError(t, f.d.SignIn(context.Background(), "a@b.c", "secret"))
	assert.Empty(t, f.d.Snapshot().LoginError)
	waitView(t, f.d, ViewFeed)
	assert.Equal(t, "user-1", f.d.Snapshot().Identity.UID)
}

func TestSignOutUnmountsFeed(t *testing.T) {
	f := newFixture(t, model.SubscriptionActive, client.Config{})
	f.mount(t)
	waitView(t, f.d, ViewFeed)
	require.Eventually(t, func() bool { return f.records.ActiveWatchers() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, f.d.SignOut(context.Background()))
	waitView(t, f.d, ViewSignedOut)
	assert.Equal(t, 0, f.records.ActiveWatchers())
	assert.Nil(t, f.d.Editor())
	assert.Equal(t, model.SubscriptionUnknown, f.d.Snapshot().Subscription)
}

func TestOpenEditorAndSave(t *testing.T) {
	f := newFixture(t, model.SubscriptionActive, client.Config{})
	f.mount(t)
	waitView(t, f.d, ViewFeed)

	_, err := f.d.Open("a")
	assert.ErrorIs(t, err, ErrUnknownInvoice)

	f.records.Emit([]model.Invoice{{ID: "a", Status: model.InvoiceStatusPending, Data: model.InvoiceData{"customerName": model.Text("Acme")}}})
	require.Eventually(t, func() bool { _, ok := f.d.Feed.Select("a"); return ok }, time.Second, 5*time.Millisecond)

	ed, err := f.d.Open("a")
	require.NoError(t, err)
	assert.Equal(t, ViewEditor, f.d.View())
	assert.Same(t, ed, f.d.Editor())

	ed.Edit()
	require.NoError(t, ed.SetField("customerName", model.Text("Globex")))
	require.NoError(t, ed.Save(context.Background()))
	require.Len(t, f.records.Replaced(), 1)
	assert.Equal(t, model.InvoiceStatusProcessed, f.records.Replaced()[0].Status)

	f.d.CloseEditor()
	assert.Equal(t, ViewFeed, f.d.View())
	assert.Nil(t, f.d.Editor())
}

func TestDeletedRecordClosesEditor(t *testing.T) {
	f := newFixture(t, model.SubscriptionActive, client.Config{})
	f.mount(t)
	waitView(t, f.d, ViewFeed)

	f.records.Emit([]model.Invoice{{ID: "a"}, {ID: "b"}})
	require.Eventually(t, func() bool { _, ok := f.d.Feed.Select("a"); return ok }, time.Second, 5*time.Millisecond)
	_, err := f.d.Open("a")
	require.NoError(t, err)

	require.NoError(t, f.d.Feed.Delete(context.Background(), "a"))
	f.records.Emit([]model.Invoice{{ID: "b"}})

	waitView(t, f.d, ViewFeed)
	assert.Nil(t, f.d.Editor())
}

func TestUnmountDeregistersSubscriptions(t *testing.T) {
	f := newFixture(t, model.SubscriptionActive, client.Config{})
	require.NoError(t, f.d.Mount(context.Background()))
	waitView(t, f.d, ViewFeed)
	require.Eventually(t, func() bool {
		return f.auth.ActiveWatchers() == 1 && f.records.ActiveWatchers() == 1
	}, time.Second, 5*time.Millisecond)

	f.records.Emit([]model.Invoice{{ID: "a"}})
	require.Eventually(t, func() bool { return len(f.d.Snapshot().Invoices) == 1 }, time.Second, 5*time.Millisecond)

	f.d.Unmount()
	assert.Equal(t, 0, f.auth.ActiveWatchers())
	assert.Equal(t, 0, f.records.ActiveWatchers())
	before := f.d.Snapshot()

	f.auth.Emit(&model.Identity{UID: "intruder"})
	f.records.Emit([]model.Invoice{{ID: "late"}})
	time.Sleep(20 * time.Millisecond)

	after := f.d.Snapshot()
	assert.Equal(t, before.View, after.View)
	assert.Equal(t, before.Identity, after.Identity)
	assert.Empty(t, after.Invoices)
	assert.Equal(t, []string{"anon-1"}, f.subs.Checks())

	f.d.Unmount()
}

func TestChangesStream(t *testing.T) {
	f := newFixture(t, model.SubscriptionActive, client.Config{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := f.d.Changes(ctx)
	assert.Equal(t, ViewLoading, <-changes)

	f.mount(t)
	require.Eventually(t, func() bool {
		select {
		case v := <-changes:
			return v == ViewFeed
		default:
			return false
		}
	}, time.Second, time.Millisecond)
}

package editor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polkiloo/invoicedesk/internal/domain/model"
	testhelpers "github.com/polkiloo/invoicedesk/internal/test"
)

func sampleInvoice() model.Invoice {
	return model.Invoice{
		ID:       "inv-1",
		OwnerID:  "u1",
		FileName: "scan.pdf",
		Status:   model.InvoiceStatusPending,
		Data: model.InvoiceData{
			"invoiceNumber": model.Text("INV-1"),
			"customerName":  model.Text("Acme"),
			"totalAmount":   model.Number(decimal.RequireFromString("1234.56")),
			"items":         model.Items(model.LineItem{Description: "Widget", Quantity: decimal.NewFromInt(2)}),
		},
		UploadedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func newEditor(records *testhelpers.FakeRecords) *Editor {
	return New(records, sampleInvoice(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRowsSortedByField(t *testing.T) {
	e := newEditor(&testhelpers.FakeRecords{})
	rows := e.Rows()
	require.Len(t, rows, 4)
	fields := []string{rows[0].Field, rows[1].Field, rows[2].Field, rows[3].Field}
	assert.Equal(t, []string{"customerName", "invoiceNumber", "items", "totalAmount"}, fields)
	assert.Equal(t, model.FieldItems, rows[2].Value.Kind())
}

func TestEditCancelLeavesRecordUntouched(t *testing.T) {
	records := &testhelpers.FakeRecords{}
	e := newEditor(records)
	before := e.Invoice()

	e.Edit()
	require.True(t, e.Editing())
	require.NoError(t, e.SetField("customerName", model.Text("Changed")))
	require.NoError(t, e.SetField("totalAmount", model.Text("not a number")))
	assert.Equal(t, "Changed", e.Rows()[0].Value.String())

	require.NoError(t, e.Cancel())
	assert.False(t, e.Editing())
	assert.Empty(t, records.Replaced())

	after := e.Invoice()
	assert.True(t, before.Data.Equal(after.Data))
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, "Acme", e.Rows()[0].Value.String())
}

func TestSaveWritesWholeRecord(t *testing.T) {
	records := &testhelpers.FakeRecords{}
	e := newEditor(records)

	e.Edit()
	require.NoError(t, e.SetField("customerName", model.Text("Globex")))
	require.NoError(t, e.Save(context.Background()))

	replaced := records.Replaced()
	require.Len(t, replaced, 1)
	written := replaced[0]
	original := sampleInvoice()

	assert.Equal(t, model.InvoiceStatusProcessed, written.Status)
	assert.Equal(t, original.ID, written.ID)
	assert.Equal(t, original.FileName, written.FileName)
	assert.Equal(t, original.UploadedAt, written.UploadedAt)
	name, _ := written.Data["customerName"].Text()
	assert.Equal(t, "Globex", name)
	for _, key := range []string{"invoiceNumber", "totalAmount", "items"} {
		assert.True(t, original.Data[key].Equal(written.Data[key]), key)
	}

	assert.False(t, e.Editing())
	assert.Equal(t, model.InvoiceStatusProcessed, e.Invoice().Status)
	assert.Empty(t, e.Message())
}

func TestSaveFailureKeepsBuffer(t *testing.T) {
	records := &testhelpers.FakeRecords{
		ReplaceFn: func(context.Context, model.Invoice) (*model.Invoice, error) {
			return nil, errors.New("permission denied")
		},
	}
	e := newEditor(records)

	e.Edit()
	require.NoError(t, e.SetField("customerName", model.Text("Globex")))
	assert.Error(t, e.Save(context.Background()))

	assert.True(t, e.Editing())
	assert.Equal(t, SaveFailedMessage, e.Message())
	assert.Equal(t, "Globex", e.Rows()[0].Value.String())
	assert.Equal(t, model.InvoiceStatusPending, e.Invoice().Status)

	require.NoError(t, e.Cancel())
	assert.Empty(t, e.Message())
	assert.Len(t, records.Replaced(), 1)
}

func TestDoubleSaveWritesOnce(t *testing.T) {
	release := make(chan struct{})
	records := &testhelpers.FakeRecords{
		ReplaceFn: func(ctx context.Context, invoice model.Invoice) (*model.Invoice, error) {
			<-release
			return &invoice, nil
		},
	}
	e := newEditor(records)
	e.Edit()

	first := make(chan error, 1)
	go func() { first <- e.Save(context.Background()) }()
	require.Eventually(t, e.Saving, time.Second, time.Millisecond)

	assert.ErrorIs(t, e.Save(context.Background()), ErrSaveInProgress)
	assert.ErrorIs(t, e.Cancel(), ErrSaveInProgress)

	close(release)
	require.NoError(t, <-first)
	assert.Len(t, records.Replaced(), 1)
	assert.False(t, e.Saving())
}

func TestSetFieldAndSaveRequireEditMode(t *testing.T) {
	e := newEditor(&testhelpers.FakeRecords{})
	assert.ErrorIs(t, e.SetField("k", model.Text("v")), ErrNotEditing)
	assert.ErrorIs(t, e.Save(context.Background()), ErrNotEditing)
}

func TestRefreshIgnoredWhileEditing(t *testing.T) {
	e := newEditor(&testhelpers.FakeRecords{})

	newer := sampleInvoice()
	newer.Data["customerName"] = model.Text("Initech")
	e.Refresh(newer)
	assert.Equal(t, "Initech", e.Rows()[0].Value.String())

	e.Edit()
	newer.Data["customerName"] = model.Text("Umbrella")
	e.Refresh(newer)
	assert.Equal(t, "Initech", e.Rows()[0].Value.String())

	other := sampleInvoice()
	other.ID = "inv-2"
	require.NoError(t, e.Cancel())
	e.Refresh(other)
	assert.Equal(t, "inv-1", e.Invoice().ID)
}

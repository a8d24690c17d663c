package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/polkiloo/invoicedesk/internal/client/dashboard"
	"github.com/polkiloo/invoicedesk/internal/client/upload"
	"github.com/polkiloo/invoicedesk/internal/domain/model"
)

const helpText = `commands:
  status                         show the current view
  login <email> <password>       sign in
  register <email> <password>    create an account
  logout                         sign out
  list                           list invoices, newest first
  open <id> | close              open or close the invoice editor
  edit | cancel | save           toggle edit mode, persist edits
  set <field> <text>             change a field to text
  setnum <field> <amount>        change a field to a number
  delete <id>                    delete an invoice
  upload <path>                  upload an invoice file
  subscribe                      start a subscription checkout
  confirm <payment> <sub> <sig>  confirm a completed payment
  quit`

// run mounts the dashboard and executes commands from in until quit, EOF or
// ctx cancellation.
func run(ctx context.Context, d *dashboard.Dashboard, in io.Reader, out io.Writer) int {
	sh := &shell{d: d, out: &lockedWriter{w: out}}

	if err := d.Mount(ctx); err != nil {
		sh.printf("invoicedesk-cli: %v\n", err)
		return 1
	}
	defer d.Unmount()

	watchCtx, cancel := context.WithCancel(ctx)
	followed := make(chan struct{})
	go func() {
		defer close(followed)
		sh.follow(watchCtx)
	}()
	defer func() {
		cancel()
		<-followed
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-watchCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return 0
		case line, ok := <-lines:
			if !ok {
				return 0
			}
			if quit := sh.exec(ctx, line); quit {
				return 0
			}
		}
	}
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

type shell struct {
	d   *dashboard.Dashboard
	out io.Writer

	mu   sync.Mutex
	last dashboard.View
}

func (s *shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

// follow prints view transitions.
func (s *shell) follow(ctx context.Context) {
	for view := range s.d.Changes(ctx) {
		s.mu.Lock()
		changed := view != s.last
		s.last = view
		s.mu.Unlock()
		if changed {
			s.printf("[%s]\n", view)
		}
	}
}

func (s *shell) exec(ctx context.Context, line string) bool {
	args := strings.Fields(line)
	if len(args) == 0 {
		return false
	}
	cmd, args := args[0], args[1:]

	var err error
	switch cmd {
	case "quit", "exit":
		return true
	case "help":
		s.printf("%s\n", helpText)
	case "status":
		s.status()
	case "login", "register":
		if len(args) != 2 {
			err = fmt.Errorf("usage: %s <email> <password>", cmd)
			break
		}
		if cmd == "login" {
			err = s.d.SignIn(ctx, args[0], args[1])
		} else {
			err = s.d.SignUp(ctx, args[0], args[1])
		}
		if err != nil {
			err = errors.New(s.d.Snapshot().LoginError)
		}
	case "logout":
		err = s.d.SignOut(ctx)
	case "list":
		s.list()
	case "open":
		if len(args) != 1 {
			err = errors.New("usage: open <id>")
			break
		}
		if _, err = s.d.Open(args[0]); err == nil {
			s.fields()
		}
	case "close":
		s.d.CloseEditor()
	case "edit", "cancel", "save", "set", "setnum":
		err = s.editor(ctx, cmd, args)
	case "delete":
		if len(args) != 1 {
			err = errors.New("usage: delete <id>")
			break
		}
		err = s.d.Feed.Delete(ctx, args[0])
	case "upload":
		err = s.upload(ctx, args)
	case "subscribe":
		var checkout *model.Checkout
		if checkout, err = s.d.BeginPurchase(ctx); err == nil {
			s.printf("checkout subscription %s with key %s\n", checkout.SubscriptionID, checkout.KeyID)
		}
	case "confirm":
		if len(args) != 3 {
			err = errors.New("usage: confirm <payment> <subscription> <signature>")
			break
		}
		err = s.d.CompletePurchase(ctx, model.PaymentConfirmation{
			PaymentID:      args[0],
			SubscriptionID: args[1],
			Signature:      args[2],
		})
	default:
		err = fmt.Errorf("unknown command %q, try help", cmd)
	}
	if err != nil {
		s.printf("error: %v\n", err)
	}
	return false
}

func (s *shell) status() {
	snap := s.d.Snapshot()
	s.printf("view: %s\n", snap.View)
	if snap.Err != nil {
		s.printf("unavailable: %v\n", snap.Err)
		return
	}
	switch {
	case snap.Identity == nil:
		s.printf("signed out\n")
	case snap.Identity.Anonymous:
		s.printf("signed in anonymously as %s\n", snap.Identity.UID)
	default:
		s.printf("signed in as %s (%s)\n", snap.Identity.Email, snap.Identity.UID)
	}
	s.printf("subscription: %s\n", snap.Subscription)
	if snap.LoginError != "" {
		s.printf("login error: %s\n", snap.LoginError)
	}
}

func (s *shell) list() {
	invoices := s.d.Snapshot().Invoices
	if len(invoices) == 0 {
		s.printf("no invoices\n")
		return
	}
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILE\tSTATUS\tUPLOADED")
	for _, invoice := range invoices {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", invoice.ID, invoice.FileName, invoice.Status, invoice.UploadedAt.Format("2006-01-02 15:04"))
	}
	_ = tw.Flush()
}

func (s *shell) fields() {
	ed := s.d.Editor()
	if ed == nil {
		return
	}
	invoice := ed.Invoice()
	mode := "read-only"
	if ed.Editing() {
		mode = "editing"
	}
	s.printf("%s (%s, %s)\n", invoice.FileName, invoice.Status, mode)
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	for _, row := range ed.Rows() {
		fmt.Fprintf(tw, "  %s\t%s\n", row.Field, row.Value)
	}
	_ = tw.Flush()
	if msg := ed.Message(); msg != "" {
		s.printf("%s\n", msg)
	}
}

func (s *shell) editor(ctx context.Context, cmd string, args []string) error {
	ed := s.d.Editor()
	if ed == nil {
		return errors.New("no invoice open")
	}
	var err error
	switch cmd {
	case "edit":
		ed.Edit()
	case "cancel":
		err = ed.Cancel()
	case "save":
		if err = ed.Save(ctx); err != nil {
			err = errors.New(ed.Message())
		}
	case "set", "setnum":
		if len(args) < 2 {
			return fmt.Errorf("usage: %s <field> <value>", cmd)
		}
		value := model.Text(strings.Join(args[1:], " "))
		if cmd == "setnum" {
			amount, perr := model.ParseAmount(args[1])
			if perr != nil {
				return fmt.Errorf("invalid amount %q", args[1])
			}
			value = model.Number(amount)
		}
		err = ed.SetField(args[0], value)
	}
	if err == nil {
		s.fields()
	}
	return err
}

func (s *shell) upload(ctx context.Context, args []string) error {
	if len(args) == 1 {
		s.d.Upload.SelectFile(upload.FromPath(args[0]))
	}
	invoice, err := s.d.Upload.Submit(ctx)
	if err != nil {
		return errors.New(s.d.Upload.Message())
	}
	s.printf("uploaded %s as %s\n", invoice.FileName, invoice.ID)
	return nil
}

package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/polkiloo/invoicedesk/internal/adapter/razorpay"
	domainErrors "github.com/polkiloo/invoicedesk/internal/domain/errors"
	"github.com/polkiloo/invoicedesk/internal/domain/model"
	testhelpers "github.com/polkiloo/invoicedesk/internal/test"
	"github.com/polkiloo/invoicedesk/internal/usecase"
)

func TestSubscriptionCheck(t *testing.T) {
	repo := testhelpers.NewSubscriptionRepositoryStub()
	uc := usecase.NewSubscriptionUseCase(repo, testhelpers.PaymentsStub{}, testLogger())
	ctx := context.Background()

	if status, err := uc.Check(ctx, "u1"); err != nil || status != model.SubscriptionInactive {
		t.Fatalf("missing subscription must be inactive, got %v %v", status, err)
	}

	repo.Subs["u1"] = model.Subscription{UserID: "u1", State: model.SubscriptionStateActive}
	if status, _ := uc.Check(ctx, "u1"); status != model.SubscriptionActive {
		t.Fatalf("expected active, got %v", status)
	}

	repo.GetErr = fmt.Errorf("db down")
	status, err := uc.Check(ctx, "u1")
	if err == nil || status != model.SubscriptionInactive {
		t.Fatalf("store errors must report inactive with error, got %v %v", status, err)
	}
}

func TestSubscriptionCreate(t *testing.T) {
	repo := testhelpers.NewSubscriptionRepositoryStub()
	uc := usecase.NewSubscriptionUseCase(repo, testhelpers.PaymentsStub{Key: "rzp_key"}, testLogger())

	checkout, err := uc.Create(context.Background(), "u1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if checkout.SubscriptionID != "sub_u1" || checkout.KeyID != "rzp_key" {
		t.Fatalf("unexpected checkout %+v", checkout)
	}
	stored := repo.Subs["u1"]
	if stored.State != model.SubscriptionStateCreated || stored.ProviderID != "sub_u1" {
		t.Fatalf("unexpected stored subscription %+v", stored)
	}

	failing := usecase.NewSubscriptionUseCase(repo, testhelpers.PaymentsStub{CreateFn: func(context.Context, string) (*razorpay.Subscription, error) {
		return nil, fmt.Errorf("provider down")
	}}, testLogger())
	if _, err := failing.Create(context.Background(), "u2"); err == nil {
		t.Fatal("expected provider error")
	}

	disabled := usecase.NewSubscriptionUseCase(repo, nil, testLogger())
	if _, err := disabled.Create(context.Background(), "u1"); !errors.Is(err, domainErrors.ErrFeatureDisabled) {
		t.Fatalf("expected feature disabled, got %v", err)
	}
}

func TestSubscriptionCreateKeepsActiveSubscription(t *testing.T) {
	repo := testhelpers.NewSubscriptionRepositoryStub()
	active := model.Subscription{UserID: "u1", ProviderID: "sub_old", State: model.SubscriptionStateActive, PaymentID: "pay_1"}
	repo.Subs["u1"] = active
	providerCalled := false
	uc := usecase.NewSubscriptionUseCase(repo, testhelpers.PaymentsStub{CreateFn: func(context.Context, string) (*razorpay.Subscription, error) {
		providerCalled = true
		return &razorpay.Subscription{ID: "sub_new"}, nil
	}}, testLogger())
	ctx := context.Background()

	if _, err := uc.Create(ctx, "u1"); !errors.Is(err, domainErrors.ErrAlreadyExists) {
		t.Fatalf("expected already exists for an active subscription, got %v", err)
	}
	if providerCalled {
		t.Fatal("provider must not be called for an active subscription")
	}
	if repo.Subs["u1"] != active {
		t.Fatalf("active subscription was overwritten: %+v", repo.Subs["u1"])
	}
	if status, err := uc.Check(ctx, "u1"); err != nil || status != model.SubscriptionActive {
		t.Fatalf("expected user to stay active, got %v %v", status, err)
	}

	repo.Subs["u2"] = model.Subscription{UserID: "u2", ProviderID: "sub_stale", State: model.SubscriptionStateCreated}
	checkout, err := uc.Create(ctx, "u2")
	if err != nil || checkout.SubscriptionID != "sub_new" {
		t.Fatalf("pending checkout must be replaced, got %+v %v", checkout, err)
	}
	if repo.Subs["u2"].ProviderID != "sub_new" {
		t.Fatalf("unexpected stored subscription %+v", repo.Subs["u2"])
	}

	repo.GetErr = fmt.Errorf("db down")
	if _, err := uc.Create(ctx, "u3"); err == nil || errors.Is(err, domainErrors.ErrAlreadyExists) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestSubscriptionConfirmPayment(t *testing.T) {
	confirmation := model.PaymentConfirmation{PaymentID: "pay_1", SubscriptionID: "sub_u1", Signature: "sig", UserID: "u1"}

	cases := []struct {
		name    string
		valid   bool
		caller  string
		stored  *model.Subscription
		confirm model.PaymentConfirmation
		want    error
	}{
		{name: "activates", valid: true, caller: "u1", stored: &model.Subscription{UserID: "u1", ProviderID: "sub_u1", State: model.SubscriptionStateCreated}, confirm: confirmation},
		{name: "other user", valid: true, caller: "u2", confirm: confirmation, want: domainErrors.ErrForbidden},
		{name: "bad signature", valid: false, caller: "u1", confirm: confirmation, want: domainErrors.ErrInvalidSignature},
		{name: "unknown subscription", valid: true, caller: "u1", confirm: confirmation, want: domainErrors.ErrForbidden},
		{name: "foreign subscription", valid: true, caller: "u1", stored: &model.Subscription{UserID: "u1", ProviderID: "sub_other"}, confirm: confirmation, want: domainErrors.ErrForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := testhelpers.NewSubscriptionRepositoryStub()
			if tc.stored != nil {
				repo.Subs[tc.stored.UserID] = *tc.stored
			}
			uc := usecase.NewSubscriptionUseCase(repo, testhelpers.PaymentsStub{Valid: tc.valid}, testLogger())

			err := uc.ConfirmPayment(context.Background(), tc.caller, tc.confirm)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if tc.want == nil {
				sub := repo.Subs[tc.caller]
				if sub.State != model.SubscriptionStateActive || sub.PaymentID != "pay_1" {
					t.Fatalf("expected active subscription, got %+v", sub)
				}
			}
		})
	}
}

package enums

import "testing"

func TestItemVendorStatusTransitions(t *testing.T) {
	cases := []struct {
		from ItemVendorStatus
		to   ItemVendorStatus
		want bool
	}{
		{ItemVendorStatusReceived, ItemVendorStatusProcessing, true},
		{ItemVendorStatusReceived, ItemVendorStatusDelivered, true},
		{ItemVendorStatusShipped, ItemVendorStatusProcessing, false},
		{ItemVendorStatusOutForDelivery, ItemVendorStatusCancelled, true},
		{ItemVendorStatusDelivered, ItemVendorStatusCancelled, false},
		{ItemVendorStatusCancelled, ItemVendorStatusDelivered, false},
		{ItemVendorStatusShipped, ItemVendorStatusShipped, false},
		{ItemVendorStatusReceived, ItemVendorStatus("lost"), false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.want, got)
		}
	}
}

func TestPayoutStatusTerminal(t *testing.T) {
	for _, status := range PayoutStatuses() {
		want := status != PayoutStatusRequested && status != PayoutStatusApproved
		if status.IsTerminal() != want {
			t.Fatalf("status %s terminal=%v, want %v", status, status.IsTerminal(), want)
		}
	}
}

func TestParseHelpersAcceptCaseInsensitiveInput(t *testing.T) {
	if m, err := ParsePayoutMethod(" PayPal "); err != nil || m != PayoutMethodPayPal {
		t.Fatalf("expected paypal, got %q err=%v", m, err)
	}
	if s, err := ParsePayoutStatus("REQUESTED"); err != nil || s != PayoutStatusRequested {
		t.Fatalf("expected requested, got %q err=%v", s, err)
	}
	if _, err := ParseCommissionType("tiered"); err == nil {
		t.Fatal("expected unknown commission type to fail")
	}
	if _, err := ParseVendorStatus(""); err == nil {
		t.Fatal("expected empty vendor status to fail")
	}
}

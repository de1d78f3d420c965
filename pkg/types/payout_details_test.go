package types

import "testing"

func TestPayoutDetailsScanRoundTripThroughDriverValue(t *testing.T) {
	in := PayoutDetails{BankName: "First Bank", AccountName: "Acme", AccountNumber: "0012345678"}
	raw, err := in.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}

	var out PayoutDetails
	if err := out.Scan([]byte(raw.(string))); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if out != in {
		t.Fatalf("expected %+v, got %+v", in, out)
	}
}

func TestPayoutSnapshotIsIndependentOfLaterEdits(t *testing.T) {
	details := PayoutDetails{PayPalEmail: "vendor@example.com"}
	snapshot := PayoutSnapshot{Method: "paypal", Details: details.Clone()}

	details.PayPalEmail = "changed@example.com"

	if snapshot.Details.PayPalEmail != "vendor@example.com" {
		t.Fatalf("snapshot tracked a later edit: %q", snapshot.Details.PayPalEmail)
	}
}

func TestPayoutDetailsMasked(t *testing.T) {
	masked := PayoutDetails{AccountNumber: "0012345678", MoMoNumber: "233"}.Masked()
	if masked.AccountNumber != "******5678" {
		t.Fatalf("unexpected masked account %q", masked.AccountNumber)
	}
	if masked.MoMoNumber != "233" {
		t.Fatalf("short values should be left alone, got %q", masked.MoMoNumber)
	}
}

func TestPayoutSnapshotScanNil(t *testing.T) {
	snapshot := PayoutSnapshot{Method: "paypal"}
	if err := snapshot.Scan(nil); err != nil {
		t.Fatalf("scan nil: %v", err)
	}
	if snapshot.Method != "" {
		t.Fatalf("expected zero snapshot, got %+v", snapshot)
	}
}

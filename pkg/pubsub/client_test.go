package pubsub

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestResourceNames(t *testing.T) {
	cases := []struct {
		name    string
		project string
		input   string
		kind    func(string, string) string
		want    string
	}{
		{"topic id", "proj", "vl-notification-events", TopicResourceName, "projects/proj/topics/vl-notification-events"},
		{"topic full name", "proj", "projects/other/topics/t", TopicResourceName, "projects/other/topics/t"},
		{"subscription id", "proj", " notify-sub ", SubscriptionResourceName, "projects/proj/subscriptions/notify-sub"},
		{"subscription given as topic", "proj", "projects/other/topics/t", SubscriptionResourceName, "projects/proj/subscriptions/projects/other/topics/t"},
		{"empty name", "proj", "", TopicResourceName, ""},
		{"missing project", "", "topic", TopicResourceName, ""},
	}
	for _, tc := range cases {
		if got := tc.kind(tc.project, tc.input); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestNilClientAccessors(t *testing.T) {
	var c *Client
	if c.Publisher("topic") != nil {
		t.Fatal("expected nil publisher from nil client")
	}
	if c.Subscription("sub") != nil {
		t.Fatal("expected nil subscriber from nil client")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close on nil client: %v", err)
	}
	if err := c.Ping(nil); err == nil {
		t.Fatal("expected ping error on nil client")
	}
}

func TestLookupMapsStatusCodes(t *testing.T) {
	ctx := context.Background()
	ok := func(context.Context, string) error { return nil }
	missing := func(context.Context, string) error { return status.Error(codes.NotFound, "gone") }
	denied := func(context.Context, string) error { return status.Error(codes.PermissionDenied, "no") }

	if err := lookup(ctx, "topic", "t", "projects/p/topics/t", ok); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := lookup(ctx, "topic", "t", "projects/p/topics/t", missing); err == nil || err.Error() != `topic "t" does not exist` {
		t.Fatalf("unexpected not found error %v", err)
	}
	err := lookup(ctx, "subscription", "s", "projects/p/subscriptions/s", denied)
	if status.Code(errors.Unwrap(err)) != codes.PermissionDenied {
		t.Fatalf("expected wrapped permission error, got %v", err)
	}
	if err := lookup(ctx, "topic", "t", "", ok); err == nil {
		t.Fatal("expected error for unconfigured resource")
	}
}

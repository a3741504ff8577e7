package notifications

import (
	"context"
	"testing"

	"github.com/jessiesmp/intake/internal/app/storage/memory"
)

func TestFeedOrderingAndBroadcast(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	first, err := svc.Append(ctx, "u1", "first", "oldest entry", "application")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := svc.Append(ctx, "", "announcement", "for everyone", "system"); err != nil {
		t.Fatalf("append broadcast: %v", err)
	}
	last, err := svc.Append(ctx, "u1", "second", "newest entry", "application")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := svc.Append(ctx, "u2", "other", "not for u1", "application"); err != nil {
		t.Fatalf("append: %v", err)
	}

	feed, err := svc.ListFor(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(feed) != 3 {
		t.Fatalf("expected own entries plus broadcast, got %d", len(feed))
	}
	if feed[len(feed)-1].ID != first.ID {
		t.Fatalf("oldest entry should sort last")
	}
	if feed[0].CreatedAt.Before(last.CreatedAt) {
		t.Fatalf("feed should be newest first")
	}
}

func TestMarkRead(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	n, err := svc.Append(ctx, "u1", "hello", "message", "application")
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := svc.MarkRead(ctx, n.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	feed, err := svc.ListFor(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !feed[0].Read || feed[0].ReadAt == nil {
		t.Fatalf("notification should be read with a timestamp")
	}
	firstReadAt := *feed[0].ReadAt

	if err := svc.MarkRead(ctx, n.ID); err != nil {
		t.Fatalf("repeat mark read should be a no-op: %v", err)
	}
	feed, _ = svc.ListFor(ctx, "u1")
	if !feed[0].ReadAt.Equal(firstReadAt) {
		t.Fatalf("first read timestamp must be kept")
	}

	if err := svc.MarkRead(ctx, "ntf_missing"); err != nil {
		t.Fatalf("unknown id should be a silent no-op: %v", err)
	}
}

package memory

import (
	"context"
	"testing"
	"time"

	"github.com/fdg312/incident-hub/internal/reportdraft"
	"github.com/fdg312/incident-hub/internal/storage"
	"github.com/fdg312/incident-hub/internal/storage/storagetest"
)

func TestReportsMemoryStorage(t *testing.T) {
	storagetest.RunReports(t, New().GetReportsStorage())
}

func TestAccountsMemoryStorage(t *testing.T) {
	storagetest.RunAccounts(t, New().GetAccountsStorage())
}

func TestReportsMemoryStorageReturnsCopies(t *testing.T) {
	st := NewReportsMemoryStorage()
	ctx := context.Background()

	rec := reportdraft.Record{
		ID:          "r1",
		Title:       "Leak",
		Photos:      []reportdraft.Photo{{URI: "a"}},
		SubmittedAt: time.Now(),
		Status:      reportdraft.StatusSubmitted,
	}
	if err := st.CreateReport(ctx, &storage.StoredReport{Record: rec, OwnerUserID: "u"}); err != nil {
		t.Fatalf("CreateReport failed: %v", err)
	}
	rec.Photos[0].URI = "mutated"

	got, err := st.GetReport(ctx, "r1")
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	got.Record.Photos[0].URI = "mutated again"

	again, _ := st.GetReport(ctx, "r1")
	if again.Record.Photos[0].URI != "a" {
		t.Fatalf("stored report was mutated through a caller copy: %q", again.Record.Photos[0].URI)
	}
}

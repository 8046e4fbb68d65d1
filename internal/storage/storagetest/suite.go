// Package storagetest holds behaviour checks shared by every storage backend.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fdg312/incident-hub/internal/reportdraft"
	"github.com/fdg312/incident-hub/internal/storage"
)

func record(id string, at time.Time) reportdraft.Record {
	size := int64(2048000)
	return reportdraft.Record{
		ID:          id,
		Title:       "Leak " + id,
		Description: "Pipe burst",
		Photos: []reportdraft.Photo{{
			URI:       "file:///mock/camera/image_1.jpg",
			Width:     1920,
			Height:    1080,
			SizeBytes: &size,
			Location:  &reportdraft.Location{Latitude: 1, Longitude: 2},
		}},
		Location:    &reportdraft.Location{Latitude: 37.7749, Longitude: -122.4194, Address: "123 Main Street"},
		SubmittedAt: at,
		Status:      reportdraft.StatusSubmitted,
	}
}

// RunReports exercises a ReportsStorage implementation.
func RunReports(t *testing.T, st storage.ReportsStorage) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("create and get", func(t *testing.T) {
		rec := record("r-get", base)
		if err := st.CreateReport(ctx, &storage.StoredReport{Record: rec, OwnerUserID: "alice"}); err != nil {
			t.Fatalf("CreateReport failed: %v", err)
		}

		got, err := st.GetReport(ctx, "r-get")
		if err != nil {
			t.Fatalf("GetReport failed: %v", err)
		}
		if got.OwnerUserID != "alice" || got.Record.Title != rec.Title {
			t.Fatalf("unexpected report %+v", got)
		}
		if len(got.Record.Photos) != 1 || *got.Record.Photos[0].SizeBytes != 2048000 {
			t.Fatalf("photos not persisted: %+v", got.Record.Photos)
		}
		if got.Record.Photos[0].Location == nil || got.Record.Photos[0].Location.Latitude != 1 {
			t.Fatalf("photo location not persisted: %+v", got.Record.Photos[0])
		}
		if got.Record.Location == nil || got.Record.Location.Address != "123 Main Street" {
			t.Fatalf("location not persisted: %+v", got.Record.Location)
		}
		if !got.Record.SubmittedAt.Equal(base) {
			t.Fatalf("expected submitted_at %v, got %v", base, got.Record.SubmittedAt)
		}
		if got.Record.Status != reportdraft.StatusSubmitted {
			t.Fatalf("unexpected status %s", got.Record.Status)
		}
		if got.Receipt != nil {
			t.Fatalf("expected no receipt yet, got %+v", got.Receipt)
		}
	})

	t.Run("duplicate id", func(t *testing.T) {
		rec := record("r-dup", base)
		if err := st.CreateReport(ctx, &storage.StoredReport{Record: rec, OwnerUserID: "alice"}); err != nil {
			t.Fatalf("CreateReport failed: %v", err)
		}
		err := st.CreateReport(ctx, &storage.StoredReport{Record: rec, OwnerUserID: "alice"})
		if !errors.Is(err, storage.ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		if _, err := st.GetReport(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if err := st.SetReceipt(ctx, "nope", storage.Receipt{ObjectKey: "k"}); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("expected ErrNotFound from SetReceipt, got %v", err)
		}
	})

	t.Run("list newest first per owner", func(t *testing.T) {
		for i, id := range []string{"l-1", "l-2", "l-3"} {
			rec := record(id, base.Add(time.Duration(i)*time.Hour))
			if err := st.CreateReport(ctx, &storage.StoredReport{Record: rec, OwnerUserID: "bob"}); err != nil {
				t.Fatalf("CreateReport failed: %v", err)
			}
		}
		if err := st.CreateReport(ctx, &storage.StoredReport{Record: record("l-other", base), OwnerUserID: "carol"}); err != nil {
			t.Fatalf("CreateReport failed: %v", err)
		}

		list, err := st.ListReports(ctx, "bob", 10, 0)
		if err != nil {
			t.Fatalf("ListReports failed: %v", err)
		}
		if len(list) != 3 {
			t.Fatalf("expected 3 reports, got %d", len(list))
		}
		if list[0].Record.ID != "l-3" || list[2].Record.ID != "l-1" {
			t.Fatalf("expected newest first, got %s..%s", list[0].Record.ID, list[2].Record.ID)
		}

		page, err := st.ListReports(ctx, "bob", 1, 1)
		if err != nil {
			t.Fatalf("ListReports failed: %v", err)
		}
		if len(page) != 1 || page[0].Record.ID != "l-2" {
			t.Fatalf("expected page [l-2], got %v", page)
		}

		empty, err := st.ListReports(ctx, "bob", 10, 10)
		if err != nil {
			t.Fatalf("ListReports failed: %v", err)
		}
		if len(empty) != 0 {
			t.Fatalf("expected empty page, got %d", len(empty))
		}
	})

	t.Run("set receipt", func(t *testing.T) {
		if err := st.CreateReport(ctx, &storage.StoredReport{Record: record("r-rc", base), OwnerUserID: "alice"}); err != nil {
			t.Fatalf("CreateReport failed: %v", err)
		}
		at := base.Add(time.Minute)
		if err := st.SetReceipt(ctx, "r-rc", storage.Receipt{ObjectKey: "receipts/alice/r-rc.pdf", SizeBytes: 1234, CreatedAt: at}); err != nil {
			t.Fatalf("SetReceipt failed: %v", err)
		}

		got, err := st.GetReport(ctx, "r-rc")
		if err != nil {
			t.Fatalf("GetReport failed: %v", err)
		}
		if got.Receipt == nil || got.Receipt.ObjectKey != "receipts/alice/r-rc.pdf" || got.Receipt.SizeBytes != 1234 {
			t.Fatalf("unexpected receipt %+v", got.Receipt)
		}
		if !got.Receipt.CreatedAt.Equal(at) {
			t.Fatalf("expected receipt time %v, got %v", at, got.Receipt.CreatedAt)
		}
	})
}

// RunAccounts exercises an AccountsStorage implementation.
func RunAccounts(t *testing.T, st storage.AccountsStorage) {
	t.Helper()
	ctx := context.Background()

	acc := &storage.Account{
		Email:        "  Demo@Example.com ",
		FirstName:    "Demo",
		LastName:     "User",
		PasswordHash: "hash",
	}
	if err := st.CreateAccount(ctx, acc); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if acc.ID == uuid.Nil {
		t.Fatal("expected generated account id")
	}

	byEmail, err := st.GetAccountByEmail(ctx, "DEMO@example.com")
	if err != nil {
		t.Fatalf("GetAccountByEmail failed: %v", err)
	}
	if byEmail.ID != acc.ID || byEmail.Email != "demo@example.com" {
		t.Fatalf("unexpected account %+v", byEmail)
	}

	byID, err := st.GetAccountByID(ctx, acc.ID)
	if err != nil {
		t.Fatalf("GetAccountByID failed: %v", err)
	}
	if byID.FirstName != "Demo" || byID.PasswordHash != "hash" {
		t.Fatalf("unexpected account %+v", byID)
	}

	dup := &storage.Account{Email: "demo@EXAMPLE.com", FirstName: "X", LastName: "Y", PasswordHash: "h"}
	if err := st.CreateAccount(ctx, dup); !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	if _, err := st.GetAccountByEmail(ctx, "missing@example.com"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := st.GetAccountByID(ctx, uuid.New()); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

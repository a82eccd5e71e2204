package repository

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	rt "resin_tracker"
	"resin_tracker/internal/repository/db"

	"github.com/DATA-DOG/go-sqlmock"
)

func ctx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return c
}

var base = time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)

func TestAppendBatch_Success_GeneratesIDs(t *testing.T) {
	t.Parallel()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer sqlDB.Close()

	repo := NewReadingSQLite(sqlDB)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(insertReadingSQL))
	prep.ExpectExec().
		WithArgs(sqlmock.AnyArg(), base.UnixNano(), "CIn_OF_Num", 4711.0, "LOT_CHANGE").
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs("fixed-id", base.Add(time.Minute).UnixNano(), "CIn1P_T1_ConsoMasse_ISO_Tot", 12.5, "COUNTER_SAMPLE").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := repo.AppendBatch(ctx(t), []rt.Event{
		{Timestamp: base, Tag: " CIn_OF_Num ", Value: 4711, Kind: rt.KindLotChange},
		{ID: "fixed-id", Timestamp: base.Add(time.Minute), Tag: "CIn1P_T1_ConsoMasse_ISO_Tot", Value: 12.5},
	})
	if err != nil {
		t.Fatalf("AppendBatch: %v", err)
	}
	if n != 2 {
		t.Fatalf("want 2 rows, got %d", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestAppendBatch_ExecErrorRollsBack(t *testing.T) {
	t.Parallel()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer sqlDB.Close()

	repo := NewReadingSQLite(sqlDB)

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO readings").ExpectExec().WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err = repo.AppendBatch(ctx(t), []rt.Event{{Timestamp: base, Tag: "A", Value: 1}})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected wrapped exec error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestAppendBatch_EmptyIsNoop(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer sqlDB.Close()

	n, err := NewReadingSQLite(sqlDB).AppendBatch(ctx(t), nil)
	if err != nil || n != 0 {
		t.Fatalf("want (0, nil), got (%d, %v)", n, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestList_NoFilters(t *testing.T) {
	t.Parallel()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer sqlDB.Close()

	rows := sqlmock.NewRows([]string{"id", "occurred_ns", "tag", "value", "kind"}).
		AddRow("1", base.UnixNano(), "X", 1.0, "LOT_CHANGE").
		AddRow("2", base.Add(time.Hour).UnixNano(), "A", 12.0, "COUNTER_SAMPLE")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, occurred_ns, tag, value, kind FROM readings ORDER BY occurred_ns ASC`)).
		WillReturnRows(rows)

	got, err := NewReadingSQLite(sqlDB).List(ctx(t), time.Time{}, time.Time{}, nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2, got %d", len(got))
	}
	if !got[0].Timestamp.Equal(base) || got[0].Kind != rt.KindLotChange {
		t.Fatalf("unexpected first row: %+v", got[0])
	}
	if got[1].Value != 12 || got[1].Kind != rt.KindCounterSample {
		t.Fatalf("unexpected second row: %+v", got[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestList_WithFilters_OrderAndArgs(t *testing.T) {
	t.Parallel()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer sqlDB.Close()

	from := base
	to := base.Add(2 * time.Hour)
	query := `SELECT id, occurred_ns, tag, value, kind FROM readings WHERE occurred_ns >= ? AND occurred_ns <= ? AND tag IN (?, ?) ORDER BY occurred_ns ASC`

	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs(from.UnixNano(), to.UnixNano(), "X", "A").
		WillReturnRows(sqlmock.NewRows([]string{"id", "occurred_ns", "tag", "value", "kind"}))

	got, err := NewReadingSQLite(sqlDB).List(ctx(t), from, to, []string{"X", "A"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("want empty, got %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestList_ScanError(t *testing.T) {
	t.Parallel()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer sqlDB.Close()

	rows := sqlmock.NewRows([]string{"id", "occurred_ns", "tag", "value", "kind"}).
		AddRow("x", "not-a-number", "A", 1.0, "COUNTER_SAMPLE")
	mock.ExpectQuery("SELECT id, occurred_ns").WillReturnRows(rows)

	if _, err := NewReadingSQLite(sqlDB).List(ctx(t), time.Time{}, time.Time{}, nil); err == nil {
		t.Fatalf("expected scan error, got nil")
	}
}

func TestReadingSQLite_RoundTrip(t *testing.T) {
	sqlDB, err := db.InitDB(filepath.Join(t.TempDir(), "resin.db"))
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	defer sqlDB.Close()

	repo := NewReadingSQLite(sqlDB)
	events := []rt.Event{
		{Timestamp: base.Add(2 * time.Minute), Tag: "A", Value: 12, Kind: rt.KindCounterSample},
		{Timestamp: base, Tag: "X", Value: 1, Kind: rt.KindLotChange},
		{Timestamp: base.Add(time.Minute), Tag: "A", Value: 5, Kind: rt.KindCounterSample},
		{Timestamp: base.Add(time.Minute), Tag: "B", Value: 99, Kind: rt.KindCounterSample},
	}
	if _, err := repo.AppendBatch(ctx(t), events); err != nil {
		t.Fatalf("AppendBatch: %v", err)
	}

	got, err := repo.List(ctx(t), base, base.Add(2*time.Minute), []string{"X", "A"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("want 3 readings, got %d", len(got))
	}
	wantTags := []string{"X", "A", "A"}
	for i, ev := range got {
		if ev.Tag != wantTags[i] {
			t.Fatalf("row %d tag=%s, want %s", i, ev.Tag, wantTags[i])
		}
		if ev.ID == "" {
			t.Fatalf("row %d has no id", i)
		}
	}
	if !got[2].Timestamp.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("inclusive upper bound lost: %v", got[2].Timestamp)
	}
}

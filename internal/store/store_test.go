package store

import (
	"os"
	"testing"
	"time"

	"github.com/starford/whatday/internal/highlight"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "whatday-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"pages", "settings", "scans"} {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	row := PageRow{Path: "a.html", Title: "A", Lang: "en", Format: "html", Checksum: "abc123", UpdatedAt: time.Now()}
	if err := db.UpsertPage(row); err != nil {
		t.Fatalf("UpsertPage: %v", err)
	}
	cs, err := db.GetChecksum("a.html")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}

	row.Checksum = "def456"
	if err := db.UpsertPage(row); err != nil {
		t.Fatal(err)
	}
	if cs, _ := db.GetChecksum("a.html"); cs != "def456" {
		t.Errorf("checksum after update = %q", cs)
	}
	if cs, _ := db.GetChecksum("missing.html"); cs != "" {
		t.Errorf("missing checksum = %q, want empty", cs)
	}
}

func TestListPages(t *testing.T) {
	db := testDB(t)
	for _, p := range []string{"c.md", "a.html", "b.html"} {
		if err := db.UpsertPage(PageRow{Path: p, Checksum: "x", UpdatedAt: time.Now()}); err != nil {
			t.Fatal(err)
		}
	}
	rows, total, err := db.ListPages(2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(rows) != 2 || rows[0].Path != "a.html" || rows[1].Path != "b.html" {
		t.Errorf("ListPages(2,0) = %v total %d", rows, total)
	}
	rows, _, _ = db.ListPages(2, 2)
	if len(rows) != 1 || rows[0].Path != "c.md" {
		t.Errorf("ListPages(2,2) = %v", rows)
	}
	rows, _, _ = db.ListPages(0, 0)
	if len(rows) != 3 {
		t.Errorf("unbounded list = %d rows, want 3", len(rows))
	}
}

func TestDeletePage(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertPage(PageRow{Path: "a.html", Checksum: "1", UpdatedAt: time.Now()})
	_ = db.RecordScan(ScanRecord{Path: "a.html", Matches: 2})
	if err := db.DeletePage("a.html"); err != nil {
		t.Fatal(err)
	}
	paths, err := db.AllPaths()
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 0 {
		t.Errorf("paths after delete = %v", paths)
	}
	scans, _ := db.Scans("a.html", 10)
	if len(scans) != 0 {
		t.Errorf("scans survived delete: %v", scans)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	db := testDB(t)
	s, ok, err := db.LoadSettings()
	if err != nil {
		t.Fatal(err)
	}
	if ok || s != highlight.DefaultSettings() {
		t.Errorf("empty store: ok %v settings %+v", ok, s)
	}

	want := highlight.Settings{Enabled: false, Background: false, IconPosition: highlight.IconBefore, Locale: "pl"}
	if err := db.SaveSettings(want); err != nil {
		t.Fatal(err)
	}
	got, ok, err := db.LoadSettings()
	if err != nil {
		t.Fatal(err)
	}
	if !ok || got != want {
		t.Errorf("LoadSettings = %+v (ok %v), want %+v", got, ok, want)
	}
}

func TestScansNewestFirst(t *testing.T) {
	db := testDB(t)
	for i := 1; i <= 3; i++ {
		err := db.RecordScan(ScanRecord{Path: "a.html", Locale: "en", Matches: i, Total: i, Duration: time.Duration(i) * time.Millisecond})
		if err != nil {
			t.Fatal(err)
		}
	}
	_ = db.RecordScan(ScanRecord{Path: "b.html", Skipped: true})

	scans, err := db.Scans("a.html", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(scans) != 2 || scans[0].Matches != 3 || scans[1].Matches != 2 {
		t.Fatalf("Scans = %+v", scans)
	}
	if scans[0].Duration != 3*time.Millisecond || scans[0].Locale != "en" {
		t.Errorf("scan fields = %+v", scans[0])
	}
	b, _ := db.Scans("b.html", 0)
	if len(b) != 1 || !b[0].Skipped {
		t.Errorf("b scans = %+v", b)
	}
}

package database

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"imagefingerprint/types"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitDatabase(filepath.Join(t.TempDir(), "fingerprints.db"))
	if err != nil {
		t.Fatalf("InitDatabase failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleFingerprint(path, fingerprint string, modified time.Time) types.ImageFingerprint {
	return types.ImageFingerprint{
		Path:         path,
		Name:         filepath.Base(path),
		Format:       "jpeg",
		Width:        640,
		Height:       480,
		SizeBytes:    1234,
		ModifiedTime: modified,
		Hashes: types.Hashes{
			Color:       strings.Repeat("10", 32),
			Structure:   strings.Repeat("1", 240),
			Edge:        strings.Repeat("0", 900),
			Content:     "900150983cd24fb0d6963f7d28e17f72",
			Fingerprint: fingerprint,
		},
		Metadata:     types.ImageMetadata{Channels: 3, BitDepth: 8, Orientation: 6},
		Thumbnail:    []byte{0xff, 0xd8, 0xff},
		AverageColor: types.RGB{R: 10, G: 20, B: 30},
	}
}

func TestStoreAndLoadFingerprint(t *testing.T) {
	db := newTestDB(t)
	modified := time.Date(2024, 5, 6, 7, 8, 9, 123456789, time.UTC)
	fp := sampleFingerprint("/photos/a.jpg", "abc", modified)

	if err := StoreFingerprint(db, fp, "laptop"); err != nil {
		t.Fatalf("StoreFingerprint failed: %v", err)
	}

	got, found, err := GetFingerprint(db, "/photos/a.jpg", "laptop")
	if err != nil || !found {
		t.Fatalf("GetFingerprint failed: found=%v err=%v", found, err)
	}
	if got.Hashes != fp.Hashes {
		t.Errorf("Hashes differ: %+v vs %+v", got.Hashes, fp.Hashes)
	}
	if !got.ModifiedTime.Equal(modified) {
		t.Errorf("Expected modified time %v, got %v", modified, got.ModifiedTime)
	}
	if got.Metadata != fp.Metadata || got.AverageColor != fp.AverageColor {
		t.Errorf("Metadata or color differ: %+v %+v", got.Metadata, got.AverageColor)
	}
	if string(got.Thumbnail) != string(fp.Thumbnail) {
		t.Error("Thumbnail differs")
	}

	if _, found, err := GetFingerprint(db, "/photos/a.jpg", "other"); err != nil || found {
		t.Errorf("Expected no record under another prefix, found=%v err=%v", found, err)
	}
}

func TestStoreFingerprint_ReplacesExisting(t *testing.T) {
	db := newTestDB(t)
	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	StoreFingerprint(db, sampleFingerprint("/p/a.jpg", "first", old), "")
	StoreFingerprint(db, sampleFingerprint("/p/a.jpg", "second", old.Add(time.Hour)), "")

	all, err := LoadFingerprints(db, "")
	if err != nil {
		t.Fatalf("LoadFingerprints failed: %v", err)
	}
	if len(all) != 1 || all[0].Fingerprint.Hashes.Fingerprint != "second" {
		t.Errorf("Expected a single replaced record, got %+v", all)
	}
}

func TestCheckImageExists(t *testing.T) {
	db := newTestDB(t)
	modified := time.Date(2023, 3, 4, 5, 6, 7, 0, time.UTC)

	exists, _, err := CheckImageExists(db, "/p/a.jpg", "")
	if err != nil || exists {
		t.Fatalf("Expected no record, exists=%v err=%v", exists, err)
	}

	StoreFingerprint(db, sampleFingerprint("/p/a.jpg", "x", modified), "")
	exists, stored, err := CheckImageExists(db, "/p/a.jpg", "")
	if err != nil || !exists {
		t.Fatalf("Expected record, exists=%v err=%v", exists, err)
	}
	if !stored.Equal(modified) {
		t.Errorf("Expected %v, got %v", modified, stored)
	}
}

func TestLoadFingerprints_PrefixFilter(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	StoreFingerprint(db, sampleFingerprint("/a.jpg", "1", now), "home")
	StoreFingerprint(db, sampleFingerprint("/b.jpg", "2", now), "home")
	StoreFingerprint(db, sampleFingerprint("/c.jpg", "3", now), "usb")

	home, err := LoadFingerprints(db, "home")
	if err != nil {
		t.Fatalf("LoadFingerprints failed: %v", err)
	}
	if len(home) != 2 {
		t.Errorf("Expected 2 records for home, got %d", len(home))
	}
	for _, m := range home {
		if m.SourcePrefix != "home" {
			t.Errorf("Unexpected prefix %q", m.SourcePrefix)
		}
	}

	all, _ := LoadFingerprints(db, "")
	if len(all) != 3 {
		t.Errorf("Expected 3 records, got %d", len(all))
	}
}

func TestScanStatsAndDuplicates(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	StoreFingerprint(db, sampleFingerprint("/a.jpg", "dup", now), "")
	StoreFingerprint(db, sampleFingerprint("/copy/a.jpg", "dup", now), "")
	StoreFingerprint(db, sampleFingerprint("/b.jpg", "solo", now), "")

	groups, err := FindExactDuplicates(db, "")
	if err != nil {
		t.Fatalf("FindExactDuplicates failed: %v", err)
	}
	if len(groups) != 1 || len(groups[0].Paths) != 2 {
		t.Fatalf("Expected one group of two, got %+v", groups)
	}
	if groups[0].Paths[0] != "/a.jpg" || groups[0].Paths[1] != "/copy/a.jpg" {
		t.Errorf("Unexpected paths: %v", groups[0].Paths)
	}

	stats, err := GetScanStats(db, "")
	if err != nil {
		t.Fatalf("GetScanStats failed: %v", err)
	}
	if stats.TotalImages != 3 || stats.UniqueFingerprints != 2 || stats.DuplicateGroups != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if stats.TotalBytes != 3*1234 {
		t.Errorf("Expected %d bytes, got %d", 3*1234, stats.TotalBytes)
	}
}

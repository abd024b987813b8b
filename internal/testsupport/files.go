package testsupport

import (
	"encoding/csv"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"genrecast/internal/config"
)

// GenreRecord is one synthetic dataset row. Features follow the order of
// config.DefaultExpectedColumns without the target.
type GenreRecord struct {
	Features []float64
	Genre    string
}

var (
	rockCentre = []float64{140, 0.7, 0.4, 0.8, 0.7, 0.2, 0.6, 0.85, 0.85, 0.6, 0.2, 0.6}
	popCentre  = []float64{110, 0.4, 0.85, 0.5, 0.3, 0.7, 0.4, 0.5, 0.1, 0.1, 0.5, 0.3}
)

// RockCentre returns the noise-free rock feature vector.
func RockCentre() []float64 { return append([]float64(nil), rockCentre...) }

// PopCentre returns the noise-free pop feature vector.
func PopCentre() []float64 { return append([]float64(nil), popCentre...) }

// RockPopRecords generates perClass rows for each of rock and pop around two
// well separated centres. The same seed yields the same rows.
func RockPopRecords(perClass int, seed uint64) []GenreRecord {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	jitter := func(centre []float64) []float64 {
		out := make([]float64, len(centre))
		for i, c := range centre {
			spread := 0.05
			if i == 0 {
				spread = 5
			}
			out[i] = round4(c + (rng.Float64()*2-1)*spread)
		}
		return out
	}
	records := make([]GenreRecord, 0, 2*perClass)
	for range perClass {
		records = append(records, GenreRecord{Features: jitter(rockCentre), Genre: "rock"})
		records = append(records, GenreRecord{Features: jitter(popCentre), Genre: "pop"})
	}
	return records
}

func round4(v float64) float64 {
	s := strconv.FormatFloat(v, 'f', 4, 64)
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

// RecordMap keys a feature vector by the raw feature column names.
func RecordMap(features []float64) map[string]float64 {
	names := config.DefaultExpectedColumns()
	out := make(map[string]float64, len(features))
	for i, v := range features {
		out[names[i]] = v
	}
	return out
}

// WriteGenreCSV writes records under the default raw header.
func WriteGenreCSV(t testing.TB, path string, records []GenreRecord) {
	t.Helper()
	rows := make([][]string, len(records))
	for i, rec := range records {
		row := make([]string, 0, len(rec.Features)+1)
		for _, v := range rec.Features {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		rows[i] = append(row, rec.Genre)
	}
	WriteCSV(t, path, config.DefaultExpectedColumns(), rows)
}

// WriteCSV writes a header and string rows to path, creating parents.
func WriteCSV(t testing.TB, path string, header []string, rows [][]string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		t.Fatalf("write header %s: %v", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		t.Fatalf("write rows %s: %v", path, err)
	}
}

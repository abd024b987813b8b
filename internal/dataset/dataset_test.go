package dataset_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"genrecast/internal/dataset"
	"genrecast/internal/stage"
)

func TestParseValue(t *testing.T) {
	cases := []struct {
		raw  string
		want dataset.Value
	}{
		{"120.5", dataset.Number(120.5)},
		{" 3 ", dataset.Number(3)},
		{"", dataset.Missing()},
		{"NA", dataset.Missing()},
		{"NaN", dataset.Missing()},
		{"null", dataset.Missing()},
		{"rock", dataset.Text("rock")},
	}
	for _, tc := range cases {
		if got := dataset.ParseValue(tc.raw); !got.Equal(tc.want) {
			t.Fatalf("ParseValue(%q) = %+v, want %+v", tc.raw, got, tc.want)
		}
	}
}

func TestCSVRoundTripIsStable(t *testing.T) {
	input := "Tempo,Vocal Presence,Genre\n120.5,0.25,rock\n98,,pop\n0.1,1e-7,\"hip, hop\"\n"
	frame, err := dataset.ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV returned error: %v", err)
	}
	if frame.Len() != 3 {
		t.Fatalf("rows: got %d want 3", frame.Len())
	}
	if !frame.Rows[1][1].IsMissing() {
		t.Fatalf("expected missing cell, got %+v", frame.Rows[1][1])
	}

	var first, second bytes.Buffer
	if err := dataset.WriteCSV(&first, frame); err != nil {
		t.Fatalf("WriteCSV returned error: %v", err)
	}
	reread, err := dataset.ReadCSV(bytes.NewReader(first.Bytes()))
	if err != nil {
		t.Fatalf("ReadCSV returned error: %v", err)
	}
	if err := dataset.WriteCSV(&second, reread); err != nil {
		t.Fatalf("WriteCSV returned error: %v", err)
	}
	if first.String() != second.String() {
		t.Fatalf("snapshot not stable:\n%s\n---\n%s", first.String(), second.String())
	}
	if !strings.Contains(first.String(), "0.1,1e-07,\"hip, hop\"") {
		t.Fatalf("unexpected number formatting: %s", first.String())
	}
}

func TestReadCSVRejectsRaggedRows(t *testing.T) {
	if _, err := dataset.ReadCSV(strings.NewReader("a,b\n1,2\n3\n")); err == nil {
		t.Fatal("expected error for ragged row")
	}
	if _, err := dataset.ReadCSV(strings.NewReader("")); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestFeatureMatrixDropsTargetAndText(t *testing.T) {
	frame := &dataset.Frame{
		Columns: []string{"tempo", "artist", "genre", "vocal_presence"},
		Rows: [][]dataset.Value{
			{dataset.Number(120), dataset.Text("a"), dataset.Text("rock"), dataset.Number(0.5)},
			{dataset.Number(90), dataset.Text("b"), dataset.Text("pop"), dataset.Number(0.9)},
		},
	}
	m, err := frame.FeatureMatrix("genre")
	if err != nil {
		t.Fatalf("FeatureMatrix returned error: %v", err)
	}
	if strings.Join(m.Columns, ",") != "tempo,vocal_presence" {
		t.Fatalf("unexpected columns: %v", m.Columns)
	}
	if m.Data[1][1] != 0.9 {
		t.Fatalf("unexpected value: %v", m.Data[1])
	}
	labels, err := frame.Labels("genre")
	if err != nil {
		t.Fatalf("Labels returned error: %v", err)
	}
	if labels[0] != "rock" || labels[1] != "pop" {
		t.Fatalf("unexpected labels: %v", labels)
	}
}

func TestFeatureMatrixRejectsMissing(t *testing.T) {
	frame := &dataset.Frame{
		Columns: []string{"tempo", "genre"},
		Rows: [][]dataset.Value{
			{dataset.Number(120), dataset.Text("rock")},
			{dataset.Missing(), dataset.Text("pop")},
			{dataset.Number(100), dataset.Text("pop")},
		},
	}
	if _, err := frame.FeatureMatrix("genre"); !errors.Is(err, stage.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFeatureMatrixRejectsInfinity(t *testing.T) {
	frame, err := dataset.ReadCSV(strings.NewReader("tempo,genre\n120,rock\ninf,pop\n"))
	if err != nil {
		t.Fatalf("ReadCSV returned error: %v", err)
	}
	_, err = frame.FeatureMatrix("genre")
	if !errors.Is(err, stage.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "row 1 column tempo") {
		t.Fatalf("error should name the cell: %v", err)
	}
}

func TestAlignReordersByName(t *testing.T) {
	m := &dataset.Matrix{Columns: []string{"b", "a"}, Data: [][]float64{{2, 1}, {4, 3}}}
	aligned, err := m.Align([]string{"a", "b"})
	if err != nil {
		t.Fatalf("Align returned error: %v", err)
	}
	if aligned.Data[0][0] != 1 || aligned.Data[1][1] != 4 {
		t.Fatalf("unexpected aligned data: %v", aligned.Data)
	}
}

func TestAlignRejectsDifferentColumnSet(t *testing.T) {
	m := &dataset.Matrix{Columns: []string{"a", "c"}, Data: [][]float64{{1, 3}}}
	_, err := m.Align([]string{"a", "b"})
	if !errors.Is(err, stage.ErrContract) {
		t.Fatalf("expected contract violation, got %v", err)
	}
	for _, want := range []string{"missing columns [b]", "unexpected columns [c]"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %q", want, err.Error())
		}
	}
}

func TestDenseRoundTrip(t *testing.T) {
	m := &dataset.Matrix{Columns: []string{"x", "y"}, Data: [][]float64{{1, 2}, {3, 4}, {5, 6}}}
	back, err := dataset.FromDense(m.Columns, m.Dense())
	if err != nil {
		t.Fatalf("FromDense returned error: %v", err)
	}
	for i := range m.Data {
		for j := range m.Data[i] {
			if back.Data[i][j] != m.Data[i][j] {
				t.Fatalf("mismatch at %d,%d", i, j)
			}
		}
	}
}

func TestFromRecordSortsColumns(t *testing.T) {
	m := dataset.FromRecord(map[string]float64{"tempo": 120, "dynamics_range": 0.4})
	if m.Columns[0] != "dynamics_range" || m.Data[0][1] != 120 {
		t.Fatalf("unexpected record matrix: %+v", m)
	}
}

func TestSelectKeepsRequestedColumns(t *testing.T) {
	m := &dataset.Matrix{Columns: []string{"a", "extra", "b"}, Data: [][]float64{{1, 9, 2}}}
	got, err := m.Select([]string{"b", "a"})
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	if got.Data[0][0] != 2 || got.Data[0][1] != 1 || got.Cols() != 2 {
		t.Fatalf("unexpected selection: %+v", got)
	}
	if _, err := m.Select([]string{"a", "tempo"}); !errors.Is(err, stage.ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
}

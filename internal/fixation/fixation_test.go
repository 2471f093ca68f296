package fixation

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleLog = `MEDIA_NAME,CNT,FPOGX,FPOGY,FPOGS,FPOGD,FPOGID,USER
cd9e29.jpg,1,0.5,0.5,0.10,0.25,2,
other.png,2,0.2,0.2,0.30,0.40,1,
cd9e29.jpg,3,0.1,0.1,0.00,0.10,1,
cd9e29.jpg,4,0.9,0.9,0.50,0.35,3,
`

func TestParseLog(t *testing.T) {
	records, err := ParseLog(strings.NewReader(sampleLog))
	if err != nil {
		t.Fatalf("ParseLog() error = %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("len(records) = %d, want 4", len(records))
	}
	if records[1].Media != "other.png" {
		t.Errorf("records[1].Media = %q, want other.png", records[1].Media)
	}
	if records[0].Fixation.SequenceID != 2 {
		t.Errorf("records[0].SequenceID = %d, want 2", records[0].Fixation.SequenceID)
	}
}

func TestParseLog_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"empty", "", "missing header"},
		{"missing column", "MEDIA_NAME,FPOGX\na,0.1\n", "missing required column FPOGY"},
		{"bad number", "MEDIA_NAME,FPOGX,FPOGY,FPOGS,FPOGD,FPOGID\na,x,0.1,0,0,1\n", "line 2: invalid FPOGX"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLog(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseLog_DecimalComma(t *testing.T) {
	records, err := ParseLog(strings.NewReader("MEDIA_NAME,FPOGX,FPOGY,FPOGS,FPOGD,FPOGID\na,\"0,25\",0.5,0,0.1,1\n"))
	if err != nil {
		t.Fatalf("ParseLog() error = %v", err)
	}
	if got := records[0].Fixation.X; got != 0.25 {
		t.Errorf("X = %v, want 0.25", got)
	}
}

func TestForMedia_FiltersAndOrders(t *testing.T) {
	records, err := ParseLog(strings.NewReader(sampleLog))
	if err != nil {
		t.Fatalf("ParseLog() error = %v", err)
	}

	seq := ForMedia(records, "cd9e29.jpg")
	if len(seq) != 3 {
		t.Fatalf("len(seq) = %d, want 3", len(seq))
	}
	for i, want := range []int{1, 2, 3} {
		if seq[i].SequenceID != want {
			t.Errorf("seq[%d].SequenceID = %d, want %d", i, seq[i].SequenceID, want)
		}
	}

	if got := ForMedia(records, "missing.png"); len(got) != 0 {
		t.Errorf("ForMedia(missing) = %v, want empty", got)
	}
}

func TestPixelPoints(t *testing.T) {
	seq := Sequence{{X: 0.1, Y: 0.1}, {X: 0.5, Y: 0.5}, {X: 0.9, Y: 0.9}}
	pts := seq.PixelPoints(1000, 1000)
	want := []Point{{100, 100}, {500, 500}, {900, 900}}
	for i := range want {
		if math.Abs(pts[i].X-want[i].X) > 1e-9 || math.Abs(pts[i].Y-want[i].Y) > 1e-9 {
			t.Errorf("pts[%d] = %v, want %v", i, pts[i], want[i])
		}
	}
}

func TestPixelPoints_WithinBounds(t *testing.T) {
	const w, h = 640, 480
	for _, x := range []float64{0, 0.001, 0.33, 0.5, 0.999, 1} {
		for _, y := range []float64{0, 0.25, 0.75, 1} {
			p := ToPixel(x, y, w, h)
			if p.X < 0 || p.X > w || p.Y < 0 || p.Y > h {
				t.Errorf("ToPixel(%v, %v) = %v, outside [0,%d]x[0,%d]", x, y, p, w, h)
			}
		}
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(Sequence{{Duration: 0.2}, {Duration: 0.4}})
	if s.Count != 2 {
		t.Errorf("Count = %d, want 2", s.Count)
	}
	if math.Abs(s.TotalDuration-0.6) > 1e-9 {
		t.Errorf("TotalDuration = %v, want 0.6", s.TotalDuration)
	}
	if math.Abs(s.MeanDuration-0.3) > 1e-9 {
		t.Errorf("MeanDuration = %v, want 0.3", s.MeanDuration)
	}

	if empty := Summarize(nil); empty.Count != 0 || empty.MeanDuration != 0 {
		t.Errorf("Summarize(nil) = %+v, want zero", empty)
	}
}

func TestLoadLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "01_kh001_fixations.csv")
	if err := os.WriteFile(path, []byte(sampleLog), 0644); err != nil {
		t.Fatal(err)
	}
	records, err := LoadLog(path)
	if err != nil {
		t.Fatalf("LoadLog() error = %v", err)
	}
	if len(records) != 4 {
		t.Errorf("len(records) = %d, want 4", len(records))
	}

	if _, err := LoadLog(filepath.Join(t.TempDir(), "nope.csv")); !os.IsNotExist(err) {
		t.Errorf("LoadLog(missing) error = %v, want not-exist", err)
	}
}

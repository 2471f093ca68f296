package prompt

import (
	"strings"
	"testing"

	"github.com/nvandessel/gazeviz/internal/dataset"
	"github.com/nvandessel/gazeviz/internal/fixation"
)

var seq = fixation.Sequence{
	{X: 0.1, Y: 0.25, StartTime: 0, Duration: 0.3, SequenceID: 7},
	{X: 0.5, Y: 0.123456, StartTime: 0.3, Duration: 0.2, SequenceID: 8},
}

func TestSummary(t *testing.T) {
	got := Summary(seq)
	for _, want := range []string{"Total fixations: 2", "0.50 seconds", "0.250 seconds"} {
		if !strings.Contains(got, want) {
			t.Errorf("Summary() missing %q:\n%s", want, got)
		}
	}
	if Summary(nil) != noData {
		t.Errorf("Summary(nil) = %q", Summary(nil))
	}
}

func TestLists(t *testing.T) {
	want := strings.Join([]string{
		"FPOGX = [0.1000;0.5000]",
		"FPOGY = [0.2500;0.1235]",
		"FPOGS = [0.0000;0.3000]",
		"FPOGD = [0.3000;0.2000]",
		"FPOGID = [7;8]",
	}, "\n")
	if got := Lists(seq); got != want {
		t.Errorf("Lists() =\n%s\nwant\n%s", got, want)
	}
}

func TestBuild(t *testing.T) {
	u := dataset.Unit{Participant: "03", Media: "cat.jpg", Category: "Animals", Fixations: seq}
	got := Build(u)

	wantInOrder := []string{
		"- Media: cat.jpg",
		"- Category: Animals",
		"- Participant: 03",
		"Total fixations: 2",
		"FPOGX = [0.1000;0.5000]",
		"**FPOGID**",
		"Qualitative analysis",
		"Quantitative analysis",
	}
	pos := 0
	for _, w := range wantInOrder {
		i := strings.Index(got[pos:], w)
		if i < 0 {
			t.Fatalf("Build() missing %q after offset %d:\n%s", w, pos, got)
		}
		pos += i + len(w)
	}
}

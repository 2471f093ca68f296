// Package prompt builds the analysis prompt sent to the multimodal model.
package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nvandessel/gazeviz/internal/dataset"
	"github.com/nvandessel/gazeviz/internal/fixation"
)

const noData = "No eye-tracking data available."

// Summary describes seq in a short quantitative block.
func Summary(seq fixation.Sequence) string {
	if len(seq) == 0 {
		return noData
	}
	s := fixation.Summarize(seq)
	return fmt.Sprintf("**Overall summary:**\n"+
		"- Total fixations: %d\n"+
		"- Total viewing time (sum of fixation durations): %.2f seconds\n"+
		"- Mean fixation duration: %.3f seconds",
		s.Count, s.TotalDuration, s.MeanDuration)
}

// Lists renders each fixation column as a semicolon-separated list, one
// line per column, e.g. "FPOGX = [0.1000;0.5000]".
func Lists(seq fixation.Sequence) string {
	if len(seq) == 0 {
		return noData
	}

	columns := []struct {
		name  string
		value func(fixation.Fixation) string
	}{
		{fixation.ColX, func(f fixation.Fixation) string { return format4(f.X) }},
		{fixation.ColY, func(f fixation.Fixation) string { return format4(f.Y) }},
		{fixation.ColStart, func(f fixation.Fixation) string { return format4(f.StartTime) }},
		{fixation.ColDuration, func(f fixation.Fixation) string { return format4(f.Duration) }},
		{fixation.ColID, func(f fixation.Fixation) string { return strconv.Itoa(f.SequenceID) }},
	}

	lines := make([]string, 0, len(columns))
	values := make([]string, len(seq))
	for _, col := range columns {
		for i, f := range seq {
			values[i] = col.value(f)
		}
		lines = append(lines, fmt.Sprintf("%s = [%s]", col.name, strings.Join(values, ";")))
	}
	return strings.Join(lines, "\n")
}

func format4(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

const glossary = `**Eye-tracking metrics:**
The sequential lists represent:
- **FPOGX**: X (horizontal) coordinate of each fixation, normalized to [0,1].
- **FPOGY**: Y (vertical) coordinate of each fixation, normalized to [0,1] from the top.
- **FPOGS**: Start time of each fixation in seconds.
- **FPOGD**: Duration of each fixation in seconds.
- **FPOGID**: Sequential identifier of each fixation.`

const tasks = `**Requested analysis:**
Using the PROVIDED IMAGE and the SEQUENTIAL EYE-TRACKING DATA above:

1.  **Qualitative analysis:**
    - Describe the participant's scanpath. Use the FPOGX and FPOGY lists to describe the route the gaze took across the image (e.g. "started at the center, moved to the upper left corner, then to a text area on the right").
    - Describe the scene. Identify the most prominent objects, text or graphic elements.
    - Relate the scanpath to the scene. Do fixations concentrate on specific areas? Do those areas match the elements you identified as important?

2.  **Quantitative analysis:**
    - Examine FPOGS and FPOGD. Are there long fixations at specific points of the path? What might they indicate about the participant's interest or difficulty there?
    - Is the sequence fast and scattered (many short fixations) or slow and focused (few long fixations)? Relate this to the kind of content in the image.

Structure the answer clearly, separating the qualitative from the quantitative analysis.`

// Build assembles the full analysis prompt for u.
func Build(u dataset.Unit) string {
	var b strings.Builder
	b.WriteString("**Eye-Movement and Scene Analysis**\n\n")
	b.WriteString("**Task context:**\n")
	fmt.Fprintf(&b, "- Media: %s\n", u.Media)
	fmt.Fprintf(&b, "- Category: %s\n", u.Category)
	fmt.Fprintf(&b, "- Participant: %s\n\n", u.Participant)
	b.WriteString("**Eye-tracking data:**\n")
	b.WriteString(Summary(u.Fixations))
	b.WriteString("\n\n**Fixation sequence (list format):**\n")
	b.WriteString(Lists(u.Fixations))
	b.WriteString("\n\n")
	b.WriteString(glossary)
	b.WriteString("\n\n")
	b.WriteString(tasks)
	b.WriteString("\n")
	return b.String()
}

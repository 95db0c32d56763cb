package textutil

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DefaultContext is the number of unchanged lines shown around each hunk.
const DefaultContext = 3

const noNewline = "\\ No newline at end of file\n"

type diffLine struct {
	text string
	op   diffmatchpatch.Operation
}

// LineDiff diffs before and after line by line.
func LineDiff(before, after string) []diffmatchpatch.Diff {
	dmp := diffmatchpatch.New()
	src, dst, lines := dmp.DiffLinesToRunes(before, after)
	diffs := dmp.DiffMainRunes(src, dst, false)

	return dmp.DiffCharsToLines(diffs, lines)
}

// ChangedLines counts the lines of after that a line diff marks as inserted.
func ChangedLines(before, after []byte) int {
	changed := 0

	for _, d := range LineDiff(string(before), string(after)) {
		if d.Type == diffmatchpatch.DiffInsert {
			changed += CountLines([]byte(d.Text))
		}
	}

	return changed
}

// UnifiedDiff renders a unified diff of before and after with the given
// number of context lines. Identical inputs give an empty string.
func UnifiedDiff(name, before, after string, context int) string {
	if before == after {
		return ""
	}

	lines := splitDiff(LineDiff(before, after))

	var sb strings.Builder

	fmt.Fprintf(&sb, "--- a/%s\n+++ b/%s\n", name, name)

	for _, h := range hunks(lines, context) {
		writeHunk(&sb, lines, h[0], h[1])
	}

	return sb.String()
}

func splitDiff(diffs []diffmatchpatch.Diff) []diffLine {
	var out []diffLine

	for _, d := range diffs {
		for _, text := range strings.SplitAfter(d.Text, "\n") {
			if text != "" {
				out = append(out, diffLine{op: d.Type, text: text})
			}
		}
	}

	return out
}

// hunks groups changed lines into [start, end) ranges padded with context.
func hunks(lines []diffLine, context int) [][2]int {
	var out [][2]int

	for i, l := range lines {
		if l.op == diffmatchpatch.DiffEqual {
			continue
		}

		start := max(i-context, 0)
		end := min(i+context+1, len(lines))

		if n := len(out); n > 0 && start <= out[n-1][1] {
			out[n-1][1] = max(out[n-1][1], end)

			continue
		}

		out = append(out, [2]int{start, end})
	}

	return out
}

func writeHunk(sb *strings.Builder, lines []diffLine, start, end int) {
	oldStart, newStart := 1, 1

	for _, l := range lines[:start] {
		if l.op != diffmatchpatch.DiffInsert {
			oldStart++
		}

		if l.op != diffmatchpatch.DiffDelete {
			newStart++
		}
	}

	oldCount, newCount := 0, 0

	for _, l := range lines[start:end] {
		if l.op != diffmatchpatch.DiffInsert {
			oldCount++
		}

		if l.op != diffmatchpatch.DiffDelete {
			newCount++
		}
	}

	if oldCount == 0 {
		oldStart--
	}

	if newCount == 0 {
		newStart--
	}

	fmt.Fprintf(sb, "@@ -%d,%d +%d,%d @@\n", oldStart, oldCount, newStart, newCount)

	for _, l := range lines[start:end] {
		switch l.op {
		case diffmatchpatch.DiffDelete:
			sb.WriteByte('-')
		case diffmatchpatch.DiffInsert:
			sb.WriteByte('+')
		case diffmatchpatch.DiffEqual:
			sb.WriteByte(' ')
		}

		sb.WriteString(l.text)

		if !strings.HasSuffix(l.text, "\n") {
			sb.WriteString("\n" + noNewline)
		}
	}
}

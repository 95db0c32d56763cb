package textutil_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/vuesetup/pkg/textutil"
)

func TestIsBinary(t *testing.T) {
	t.Parallel()

	beyond := append(bytes.Repeat([]byte("a"), textutil.BinarySniffLength), 0)

	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{name: "empty", data: nil, want: false},
		{name: "text", data: []byte("const a = 1;\n"), want: false},
		{name: "null", data: []byte("a\x00b"), want: true},
		{name: "null beyond sniff", data: beyond, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, textutil.IsBinary(tt.data))
		})
	}
}

func TestIsText(t *testing.T) {
	t.Parallel()

	assert.True(t, textutil.IsText([]byte("héllo")))
	assert.False(t, textutil.IsText([]byte{0xff, 0xfe}))
	assert.False(t, textutil.IsText([]byte("a\x00")))
}

func TestCountLines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		data string
		want int
	}{
		{data: "", want: 0},
		{data: "a", want: 1},
		{data: "a\n", want: 1},
		{data: "a\nb", want: 2},
		{data: "\n\n", want: 2},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, textutil.CountLines([]byte(tt.data)), "%q", tt.data)
	}
}

func TestChangedLines(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, textutil.ChangedLines([]byte("a\nb"), []byte("a\nb")))
	assert.Equal(t, 1, textutil.ChangedLines([]byte("a\nb"), []byte("a\nc")))
	assert.Equal(t, 2, textutil.ChangedLines([]byte("a"), []byte("x\ny")))
}

func TestUnifiedDiff(t *testing.T) {
	t.Parallel()

	before := "a\nb\nc\nd\ne\nf\ng\nh\ni\n"
	after := "a\nb\nc\nd\nE\nf\ng\nh\ni\n"

	want := "--- a/x.ts\n+++ b/x.ts\n" +
		"@@ -2,7 +2,7 @@\n b\n c\n d\n-e\n+E\n f\n g\n h\n"

	assert.Equal(t, want, textutil.UnifiedDiff("x.ts", before, after, textutil.DefaultContext))
	assert.Empty(t, textutil.UnifiedDiff("x.ts", before, before, textutil.DefaultContext))
}

func TestUnifiedDiff_SeparateHunks(t *testing.T) {
	t.Parallel()

	before := "1\n2\n3\n4\n5\n6\n7\n8\n9\n10\n"
	after := "one\n2\n3\n4\n5\n6\n7\n8\n9\nten\n"

	out := textutil.UnifiedDiff("n.ts", before, after, 1)

	assert.Contains(t, out, "@@ -1,2 +1,2 @@\n-1\n+one\n 2\n")
	assert.Contains(t, out, "@@ -9,2 +9,2 @@\n 9\n-10\n+ten\n")
}

func TestUnifiedDiff_NoTrailingNewline(t *testing.T) {
	t.Parallel()

	out := textutil.UnifiedDiff("n.ts", "a", "b", 0)

	assert.Equal(t, "--- a/n.ts\n+++ b/n.ts\n@@ -1,1 +1,1 @@\n-a\n\\ No newline at end of file\n+b\n\\ No newline at end of file\n", out)
}

func TestLineDiff(t *testing.T) {
	t.Parallel()

	diffs := textutil.LineDiff("a\nb\n", "a\nc\n")
	require.Len(t, diffs, 3)
	assert.Equal(t, "a\n", diffs[0].Text)
}

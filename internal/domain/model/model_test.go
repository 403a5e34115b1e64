package model

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(records []Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestFilterUnseen(t *testing.T) {
	records := []Record{{ID: "c"}, {ID: "a"}, {ID: "c"}, {ID: "b"}, {ID: "d"}}

	assert.Equal(t, []string{"c", "b"}, ids(FilterUnseen(records, NewIDSet("a", "d"))))
	assert.Equal(t, []string{"c", "a", "b", "d"}, ids(FilterUnseen(records, nil)))
	assert.Empty(t, FilterUnseen(records, NewIDSet("a", "b", "c", "d")))
	assert.Empty(t, FilterUnseen(nil, NewIDSet("a")))
}

func TestValidateID(t *testing.T) {
	assert.NoError(t, ValidateID("CVE-2024-1234"))
	for _, id := range []string{"", "a\tb", "a\nb", "a\rb"} {
		assert.Error(t, ValidateID(id), "%q", id)
	}
}

func TestAttributes(t *testing.T) {
	var a Attributes
	a.SetText("b", " two ")
	a.SetText("blank", "   ")
	a.SetNumber("a", 9.8)
	a.SetList("list", "x", " ", "y")
	a.SetList("empty", "", " ")
	a.SetText("b", "again")

	assert.Equal(t, []string{"b", "a", "list"}, a.Keys())
	assert.Equal(t, "again", a.Text("b"))
	assert.Equal(t, "9.8", a.Text("a"))
	assert.Equal(t, "x, y", a.Text("list"))
	assert.Empty(t, a.Text("missing"))

	_, ok := a.Get("blank")
	assert.False(t, ok)

	v, _ := a.Get("a")
	f, ok := v.Float()
	require.True(t, ok)
	assert.Equal(t, 9.8, f)

	f, ok = Text(" 6.5 ").Float()
	assert.True(t, ok)
	assert.Equal(t, 6.5, f)
	_, ok = List("1").Float()
	assert.False(t, ok)
}

func TestSeverity(t *testing.T) {
	for _, s := range []Severity{SeverityLow, SeverityMedium, SeverityHigh} {
		parsed, err := ParseSeverity(strings.ToUpper(s.String()))
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
	_, err := ParseSeverity("critical")
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"hello world", 8, "hello..."},
		{"hello world", 9, "hello..."},
		{"héllo wörld", 8, "héllo..."},
		{"abcdef", 3, "abc"},
		{"anything", 0, "anything"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Truncate(tt.in, tt.limit), "%q/%d", tt.in, tt.limit)
	}
}

func TestLimitsApply(t *testing.T) {
	limits := Limits{Title: 5, Description: 10, FieldName: 4, FieldValue: 6, Footer: 5, MaxFields: 2}
	n := Notification{
		Title:       "a long title",
		Description: "short",
		Footer:      "footer text",
		Fields: []NotificationField{
			{Name: "first", Value: "value one", Inline: true},
			{Name: "f2", Value: "v2"},
			{Name: "f3", Value: "v3"},
		},
	}

	got := limits.Apply(n)
	assert.Equal(t, "a...", got.Title)
	assert.Equal(t, "short", got.Description)
	assert.Equal(t, "fo...", got.Footer)
	require.Len(t, got.Fields, 2)
	assert.Equal(t, NotificationField{Name: "f...", Value: "val...", Inline: true}, got.Fields[0])
	assert.Len(t, n.Fields, 3)

	assert.Nil(t, limits.Apply(Notification{Fields: []NotificationField{}}).Fields)
}

func TestLimitsApplyTotal(t *testing.T) {
	fields := func() []NotificationField {
		return []NotificationField{
			{Name: "a", Value: strings.Repeat("x", 20)},
			{Name: "b", Value: strings.Repeat("y", 20)},
			{Name: "c", Value: strings.Repeat("z", 20)},
		}
	}

	t.Run("trailing field shortened", func(t *testing.T) {
		got := Limits{Total: 60}.Apply(Notification{Title: "T", Fields: fields()})
		require.Len(t, got.Fields, 3)
		assert.Equal(t, strings.Repeat("z", 13)+"...", got.Fields[2].Value)
		assert.Equal(t, 60, embedLength(got))
	})

	t.Run("trailing field dropped when too short to keep", func(t *testing.T) {
		got := Limits{Total: 50}.Apply(Notification{Title: "T", Fields: fields()})
		assert.Len(t, got.Fields, 2)
		assert.LessOrEqual(t, embedLength(got), 50)
	})

	t.Run("description shortened last", func(t *testing.T) {
		n := Notification{Title: "T", Description: strings.Repeat("d", 30), Fields: fields()[:1]}
		got := Limits{Total: 10}.Apply(n)
		assert.Nil(t, got.Fields)
		assert.Equal(t, "dddddd...", got.Description)
		assert.Equal(t, 10, embedLength(got))
	})

	t.Run("within total untouched", func(t *testing.T) {
		n := Notification{Title: "T", Fields: fields()}
		assert.Equal(t, n, DiscordLimits.Apply(n))
	})
}

func TestRunReportDuration(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Zero(t, RunReport{Started: start}.Duration())
	assert.Equal(t, 3*time.Second, RunReport{Started: start, Finished: start.Add(3 * time.Second)}.Duration())
}

package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/spark/internal/model"
)

func TestSplitResponse(t *testing.T) {
	note, tags, found := SplitResponse("Note body here\nTagsJSON: [\"#a\",\"#b\"]", DefaultTagDelimiter)
	require.True(t, found)
	require.Equal(t, "Note body here", note)
	require.Equal(t, `["#a","#b"]`, tags)

	note, tags, found = SplitResponse("a TagsJSON: [] TagsJSON: [\"x\"]", DefaultTagDelimiter)
	require.True(t, found)
	require.Equal(t, "a", note)
	require.Equal(t, `[] TagsJSON: ["x"]`, tags)

	note, _, found = SplitResponse("  only note  ", DefaultTagDelimiter)
	require.False(t, found)
	require.Equal(t, "only note", note)
}

func TestParseTags(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []string
		wantErr bool
	}{
		{name: "plain", in: `["#a","#b"]`, want: []string{"#a", "#b"}},
		{name: "fenced", in: "```json\n[\"#a\", \"#b\"]\n```", want: []string{"#a", "#b"}},
		{name: "dedupe and trim", in: `[" #a ", "#A", "", "#c"]`, want: []string{"#a", "#c"}},
		{name: "empty array", in: `[]`, want: []string{}},
		{name: "not json", in: `#a, #b`, wantErr: true},
		{name: "object", in: `{"tags":["#a"]}`, wantErr: true},
		{name: "numbers", in: `[1,2]`, wantErr: true},
		{name: "trailing text", in: `["#a"] thanks!`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTags(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseGeneration(t *testing.T) {
	g, err := parseGeneration("note\nTagsJSON: nope", DefaultTagDelimiter)
	require.NoError(t, err)
	require.Equal(t, "note", g.note)
	require.Equal(t, []string{TagParseErrorSentinel}, g.tags)
	require.Error(t, g.tagErr)

	_, err = parseGeneration("TagsJSON: [\"#a\"]", DefaultTagDelimiter)
	require.Error(t, err)
}

func TestBuildPrompt(t *testing.T) {
	video := BuildPrompt(model.SourceVideoSnippet, "words", "")
	require.Contains(t, video, "TRANSCRIPT:\nwords")
	require.Contains(t, video, DefaultTagDelimiter+" [")

	chat := BuildPrompt(model.SourceChatLog, "a: b", "TAGS>>")
	require.Contains(t, chat, "CHAT LOG:\na: b")
	require.Contains(t, chat, "TAGS>>")
	require.NotContains(t, chat, DefaultTagDelimiter)

	article := BuildPrompt(model.SourceArticleHighlight, "passage", DefaultTagDelimiter)
	require.True(t, strings.HasPrefix(article, "passage\n\nAfter the note"))
}

func TestTruncateRunes(t *testing.T) {
	require.Equal(t, "héllo", truncateRunes("héllo wörld", 5))
	require.Equal(t, "abc", truncateRunes("abc", 5))
	require.Equal(t, "abc", truncateRunes("abc", 0))
	require.Equal(t, "ab...", preview("abcdef", 2))
	require.Equal(t, "abc", preview("abc", 3))
}

package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseExtractionPlainJSON(t *testing.T) {
	ext, ok := parseExtraction(`{"events":[{"title":"A","description":"B","keywords":["x","y"]}],"knowledge":[],"todos":[]}`)
	require.True(t, ok)
	require.Len(t, ext.Events, 1)
	require.Equal(t, "A", ext.Events[0].Title)
	require.Equal(t, []string{"x", "y"}, ext.Events[0].Keywords)
	require.Empty(t, ext.Knowledge)
	require.Empty(t, ext.Todos)
}

func TestParseExtractionStripsCodeFence(t *testing.T) {
	ext, ok := parseExtraction("```json\n{\"events\":[{\"title\":\"A\",\"description\":\"B\",\"keywords\":[]}],\"knowledge\":[],\"todos\":[]}\n```")
	require.True(t, ok)
	require.Len(t, ext.Events, 1)
}

func TestParseExtractionRejectsNonJSON(t *testing.T) {
	_, ok := parseExtraction("I can't find any events in these screenshots.")
	require.False(t, ok)
}

func TestParseExtractionDropsItemsWithoutTitle(t *testing.T) {
	ext, ok := parseExtraction(`{"events":[{"description":"no title"}],"knowledge":[],"todos":[]}`)
	require.True(t, ok)
	require.Empty(t, ext.Events)
}

func TestParseExtractionTreatsMissingArraysAsEmpty(t *testing.T) {
	ext, ok := parseExtraction(`{"events":[{"title":"A","description":"B","keywords":[]}]}`)
	require.True(t, ok)
	require.Len(t, ext.Events, 1)
	require.Empty(t, ext.Knowledge)
	require.Empty(t, ext.Todos)
}

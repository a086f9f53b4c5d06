package search

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	resp *Response
	err  error
	got  *Request
}

func (f *fakeSearcher) Search(_ context.Context, req *Request) (*Response, error) {
	f.got = req
	return f.resp, f.err
}

type fakeFetcher map[string]string

func (f fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	if s, ok := f[url]; ok {
		return s, nil
	}
	return "", errors.New("not found")
}

func TestCollect(t *testing.T) {
	long := strings.Repeat("円", 2000) // 6000 字节
	s := &fakeSearcher{resp: &Response{Results: []Result{
		{Title: "short, fetched", URL: "https://a", Content: "tiny"},
		{Title: "short, fetch fails", URL: "https://b", Content: "tiny"},
		{Title: "long", URL: "https://c", Content: long},
		{Title: "raw wins", URL: "https://d", Content: "x", RawContent: strings.Repeat("r", 600)},
	}}}
	f := fakeFetcher{"https://a": strings.Repeat("a", 800)}

	refs, err := Collect(context.Background(), s, f, &Request{Query: "日本 経済"})
	require.NoError(t, err)
	require.Len(t, refs, 3)

	assert.Equal(t, "short, fetched", refs[0].Title)
	assert.Len(t, refs[0].Content, 800)

	assert.Equal(t, "long", refs[1].Title)
	assert.LessOrEqual(t, len(refs[1].Content), maxContent)
	assert.True(t, utf8.ValidString(refs[1].Content))

	assert.Equal(t, "raw wins", refs[2].Title)
	assert.Equal(t, "日本 経済", s.got.Query)
}

func TestCollect_CapsReferences(t *testing.T) {
	var results []Result
	for range 10 {
		results = append(results, Result{Content: strings.Repeat("n", 200)})
	}
	refs, err := Collect(context.Background(), &fakeSearcher{resp: &Response{Results: results}}, nil, &Request{})
	require.NoError(t, err)
	assert.Len(t, refs, maxReferences)
}

func TestCollect_SearchError(t *testing.T) {
	_, err := Collect(context.Background(), &fakeSearcher{err: errors.New("boom")}, nil, &Request{})
	assert.EqualError(t, err, "boom")
}

func TestRender(t *testing.T) {
	out := Render([]Result{
		{Title: "A", URL: "https://a", Content: "alpha", PublishedDate: "2025-01-01"},
		{Title: "B", URL: "https://b", Content: "beta"},
	})
	assert.Equal(t, "[1] A\nURL: https://a\nPublished: 2025-01-01\nalpha\n\n[2] B\nURL: https://b\nbeta", out)
}

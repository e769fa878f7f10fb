package topics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"article_canvas/generator"
)

func rssDoc(titles ...string) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel><title>t</title>`)
	for i, t := range titles {
		fmt.Fprintf(&sb, `<item><title><![CDATA[%s]]></title><link>https://example.com/%d</link><description><![CDATA[<p>Summary &amp; more %d</p>]]></description></item>`, t, i, i)
	}
	sb.WriteString(`</channel></rss>`)
	return sb.String()
}

func newFeedServer(t *testing.T, docs map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		doc, ok := docs[r.URL.Path]
		if !ok {
			http.Error(w, "gone", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(doc))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func noShuffle(int, func(i, j int)) {}

type failingLLM struct{}

func (failingLLM) Complete(context.Context, generator.Prompt) (string, error) {
	return "", errors.New("model down")
}

func TestFetchNews_FiltersAndLimits(t *testing.T) {
	srv := newFeedServer(t, map[string]string{
		"/a": rssDoc(
			"Too short",
			"Sponsored: buy our amazing product now",
			"Markets rally on strong jobs report",
			"Fed holds rates steady for third month",
			"Oil prices climb as supply tightens",
			"Tech earnings beat expectations again",
			"Housing starts fall to two year low",
			"Sixth headline that should be cut off",
		),
		"/b": rssDoc("Markets Rally On Strong Jobs Report!!", "Retail sales surprise economists &amp; investors"),
	})
	svc := New(
		WithFeeds([]Feed{{Name: "A", URL: srv.URL + "/a"}, {Name: "B", URL: srv.URL + "/b"}, {Name: "Broken", URL: srv.URL + "/missing"}}),
		WithHTTPClient(srv.Client()),
	)

	news := svc.FetchNews(context.Background())

	var titles []string
	for _, n := range news {
		titles = append(titles, n.Title)
	}
	assert.Equal(t, []string{
		"Markets rally on strong jobs report",
		"Fed holds rates steady for third month",
		"Oil prices climb as supply tightens",
		"Tech earnings beat expectations again",
		"Housing starts fall to two year low",
		"Retail sales surprise economists & investors",
	}, titles)
	assert.Equal(t, "A", news[0].Source)
	assert.Equal(t, "https://example.com/2", news[0].Link)
	assert.Equal(t, "Summary & more 2", news[0].Summary)
}

func TestDedupe(t *testing.T) {
	in := []Topic{
		{Title: "The Big Story: Rates Rise Again Today"},
		{Title: "the big story -- rates rise again today!"},
		{Title: "Something else entirely here"},
	}
	out := Dedupe(in)
	require.Len(t, out, 2)
	assert.Equal(t, in[0].Title, out[0].Title)
}

func TestMixed_RefinesNewsAndAddsBrainstorm(t *testing.T) {
	srv := newFeedServer(t, map[string]string{
		"/a": rssDoc("Markets rally on strong jobs report", "Fed holds rates steady for third month"),
	})
	svc := New(
		WithFeeds([]Feed{{Name: "A", URL: srv.URL + "/a"}}),
		WithHTTPClient(srv.Client()),
		WithModels(failingLLM{}, generator.MockLLM{}),
		WithShuffle(noShuffle),
	)

	mixed := svc.Mixed(context.Background())
	require.Len(t, mixed, 6)

	assert.Equal(t, "Markets rally on strong jobs report", mixed[0].Title)
	assert.Equal(t, "Explore this topic in depth", mixed[0].Summary)
	assert.Equal(t, "https://example.com/0", mixed[0].Link)
	assert.Equal(t, "A", mixed[1].Source)
	for _, m := range mixed[2:] {
		assert.Equal(t, "Brainstorm", m.Source)
		assert.Equal(t, "#", m.Link)
	}
}

func TestMixed_NoModelsFallsBack(t *testing.T) {
	srv := newFeedServer(t, map[string]string{})
	svc := New(
		WithFeeds([]Feed{{Name: "A", URL: srv.URL + "/missing"}}),
		WithHTTPClient(srv.Client()),
		WithShuffle(noShuffle),
	)

	mixed := svc.Mixed(context.Background())
	require.Len(t, mixed, 4)
	assert.Equal(t, BroadTopics()[0].Title, mixed[0].Title)
}

func TestRefine_KeepsOrderOnFailure(t *testing.T) {
	svc := New(WithModels(failingLLM{}))
	_, err := svc.Refine(context.Background(), []Topic{{Title: "x"}})
	assert.ErrorContains(t, err, "model down")

	_, err = New().Brainstorm(context.Background())
	assert.ErrorIs(t, err, errNoModel)
}

func TestDecodeTopics(t *testing.T) {
	got, err := decodeTopics(`<think>hmm</think>[{"title":"A","summary":"s"}]`)
	require.NoError(t, err)
	assert.Equal(t, "A", got[0].Title)

	got, err = decodeTopics(`{"topics":[{"title":"B","summary":"s"}]}`)
	require.NoError(t, err)
	assert.Equal(t, "B", got[0].Title)

	_, err = decodeTopics("no json here")
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	d := New(WithShuffle(noShuffle)).Defaults()
	assert.Len(t, d, 8)
	assert.Len(t, BroadTopics(), 12)
}

func TestCleanHeadline(t *testing.T) {
	assert.Equal(t, "Stocks slide", CleanHeadline("BREAKING: Stocks slide"))
	assert.Equal(t, "Rates hold", CleanHeadline("Update:Rates hold"))
	assert.Equal(t, "No prefix here", CleanHeadline("No prefix here"))
}

func TestFetchNews_CleansHeadlinesBeforeFiltering(t *testing.T) {
	srv := newFeedServer(t, map[string]string{
		"/a": rssDoc("Breaking: Markets slide as yields jump", "Update: Too short", "<b>Oil</b> climbs on tight supply &amp; demand"),
	})
	svc := New(WithFeeds([]Feed{{Name: "A", URL: srv.URL + "/a"}}), WithHTTPClient(srv.Client()))

	news := svc.FetchNews(context.Background())
	require.Len(t, news, 2)
	assert.Equal(t, "Markets slide as yields jump", news[0].Title)
	assert.Equal(t, "Oil climbs on tight supply & demand", news[1].Title)
}

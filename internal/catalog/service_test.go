package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/product-data-explorer/internal/cache"
	"github.com/JakeFAU/product-data-explorer/internal/scraper"
)

type stubFetcher struct {
	mu      sync.Mutex
	pages   map[string]string
	err     error
	calls   []string
	retries []int
}

func (f *stubFetcher) Fetch(ctx context.Context, req scraper.FetchRequest) (scraper.FetchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req.URL)
	f.retries = append(f.retries, req.MaxRetries)
	if ctx.Err() != nil {
		return scraper.FetchResponse{}, ctx.Err()
	}
	if body, ok := f.pages[req.URL]; ok {
		return scraper.FetchResponse{URL: req.URL, StatusCode: 200, Body: []byte(body)}, nil
	}
	if f.err != nil {
		return scraper.FetchResponse{}, f.err
	}
	return scraper.FetchResponse{URL: req.URL, StatusCode: 200, Body: []byte("<html></html>")}, nil
}

func (f *stubFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *stubFetcher) Retries() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.retries...)
}

func newService(f *stubFetcher) (*Service, *cache.Store) {
	store := cache.New(cache.Config{})
	svc := New(store, f, Config{
		Origin: "https://www.wob.com",
		Random: func() float64 { return 0.5 },
	})
	return svc, store
}

func TestHeadingsScrapedDedupedAndCapped(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	b.WriteString(`<nav><a href="/en-gb/category/fiction">Fiction</a><a href="/en-gb/category/fiction">Fiction</a>`)
	b.WriteString(`<a href="/account">Your Account</a><a href="/basket">Basket</a>`)
	for _, name := range []string{"Art", "Crime", "Poetry", "Travel", "Cooking", "Music", "Sport", "Drama", "Horror"} {
		b.WriteString(`<a href="/en-gb/browse/` + strings.ToLower(name) + `">` + name + `</a>`)
	}
	b.WriteString(`</nav>`)
	f := &stubFetcher{pages: map[string]string{"https://www.wob.com/": b.String()}}
	svc, _ := newService(f)

	got, err := svc.Headings(context.Background())
	require.NoError(t, err)
	require.Len(t, got, maxHeadings)
	require.Equal(t, scraper.Heading{ID: "fiction", Name: "Fiction", URL: "https://www.wob.com/en-gb/category/fiction"}, got[0])
	require.Equal(t, "art", got[1].ID)
	for _, h := range got {
		require.NotContains(t, strings.ToLower(h.Name), "account")
	}
}

func TestHeadingsFallbackAndCache(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{}
	svc, store := newService(f)

	got, err := svc.Headings(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 8)
	require.Equal(t, "Fiction", got[0].Name)
	require.Equal(t, "https://www.wob.com/en-gb/category/childrens", got[2].URL)

	again, err := svc.Headings(context.Background())
	require.NoError(t, err)
	require.Equal(t, got, again)
	require.Len(t, f.Calls(), 1)

	entry, ok := store.Peek("headings")
	require.True(t, ok)
	require.Equal(t, HeadingsTTL, entry.TTL)
}

func TestHeadingsPropagatesFetchError(t *testing.T) {
	t.Parallel()

	fetchErr := &scraper.FetchError{Kind: scraper.KindConnectionRefused, URL: "https://www.wob.com/"}
	svc, store := newService(&stubFetcher{err: fetchErr})

	_, err := svc.Headings(context.Background())
	var fe *scraper.FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, scraper.KindConnectionRefused, fe.Kind)
	require.Equal(t, 0, store.Stats().Size)
}

func TestCategoriesCarryHeading(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{pages: map[string]string{
		"https://www.wob.com/": `<ul class="genre-list"><li><a href="/en-gb/category/crime">Crime</a></li><li><a href="/x">X</a></li></ul>`,
	}}
	svc, store := newService(f)

	got, err := svc.Categories(context.Background(), "fiction")
	require.NoError(t, err)
	require.Equal(t, []scraper.Category{
		{ID: "crime", Name: "Crime", URL: "https://www.wob.com/en-gb/category/crime", Heading: "fiction"},
		{ID: "x", Name: "X", URL: "https://www.wob.com/x", Heading: "fiction"},
	}, got)

	entry, ok := store.Peek("categories-fiction")
	require.True(t, ok)
	require.Equal(t, CategoriesTTL, entry.TTL)
}

func TestCategoriesFallback(t *testing.T) {
	t.Parallel()

	svc, _ := newService(&stubFetcher{})
	got, err := svc.Categories(context.Background(), "non-fiction")
	require.NoError(t, err)
	require.Len(t, got, 8)
	require.Equal(t, "https://www.wob.com/search?q=Children%27s+Books", got[2].URL)
	for _, c := range got {
		require.Equal(t, "non-fiction", c.Heading)
	}
}

func TestProductsScraped(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{pages: map[string]string{
		"https://www.wob.com/search?q=science+fiction&page=2": `
<div class="product-item"><a href="/en-gb/books/dune"><img src="/covers/dune.jpg"></a>
<h3>Dune Messiah</h3><span class="author">Frank Herbert</span><span class="price">£3.49</span></div>`,
	}}
	svc, store := newService(f)

	got, err := svc.Products(context.Background(), "science fiction", 2)
	require.NoError(t, err)
	require.Equal(t, []scraper.Product{{
		ID:       "0-dune-messiah",
		Title:    "Dune Messiah",
		Author:   "Frank Herbert",
		Price:    "£3.49",
		Image:    "https://www.wob.com/covers/dune.jpg",
		Link:     "https://www.wob.com/en-gb/books/dune",
		Category: "science fiction",
	}}, got)
	_, ok := store.Peek("products-science fiction-2")
	require.True(t, ok)
}

func TestProductsFallbackIsComplete(t *testing.T) {
	t.Parallel()

	svc, _ := newService(&stubFetcher{})
	got, err := svc.Products(context.Background(), "poetry", 0)
	require.NoError(t, err)
	require.Len(t, got, sampleProductCount)
	for _, p := range got {
		require.NotEmpty(t, p.Title)
		require.NotEmpty(t, p.Price)
	}
	require.Equal(t, "sample-poetry-1", got[0].ID)
	require.Equal(t, "Sample Book 1 - poetry", got[0].Title)
	require.Equal(t, "£15.00", got[0].Price)
}

func TestProductsFetchedURLUsesPageOne(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{}
	svc, store := newService(f)
	_, err := svc.Products(context.Background(), "art", -3)
	require.NoError(t, err)
	require.Equal(t, []string{"https://www.wob.com/search?q=art&page=1"}, f.Calls())
	_, ok := store.Peek("products-art-1")
	require.True(t, ok)
}

func TestProductSampleWithoutURL(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{}
	svc, _ := newService(f)
	for _, u := range []string{"", "#"} {
		got, err := svc.Product(context.Background(), "sample-art-1", u)
		require.NoError(t, err)
		require.Equal(t, "Sample Book - sample-art-1", got.Title)
		require.Equal(t, "978-0123456789", got.ISBN)
	}
	require.Empty(t, f.Calls())
}

func TestProductScraped(t *testing.T) {
	t.Parallel()

	page := "https://www.wob.com/en-gb/books/middlemarch"
	f := &stubFetcher{pages: map[string]string{page: `
<h1 class="product-title">Middlemarch</h1>
<span class="author">George Eliot</span>
<div class="product-image"><img src="/img/middlemarch.jpg"></div>`}}
	svc, _ := newService(f)

	got, err := svc.Product(context.Background(), "0-middlemarch", page)
	require.NoError(t, err)
	require.Equal(t, "Middlemarch", got.Title)
	require.Equal(t, "George Eliot", got.Author)
	require.Equal(t, "Price not available", got.Price)
	require.Equal(t, "Good", got.Condition)
	require.Equal(t, "Date not available", got.PublicationDate)
	require.Equal(t, "https://www.wob.com/img/middlemarch.jpg", got.Image)
}

func TestProductImageRules(t *testing.T) {
	t.Parallel()

	svc, _ := newService(&stubFetcher{})
	require.Equal(t, productPlaceholder, svc.productImage(""))
	require.Equal(t, productPlaceholder, svc.productImage("data:image/png;base64,xx"))
	require.Equal(t, "https://www.wob.com/a.jpg", svc.productImage("/a.jpg"))
	require.Equal(t, "https://cdn.example/a.jpg", svc.productImage("https://cdn.example/a.jpg"))
}

func TestProductRejectsForeignHost(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{}
	svc, _ := newService(f)
	for _, u := range []string{"https://evil.example/x", "file:///etc/passwd", "http://169.254.169.254/latest"} {
		_, err := svc.Product(context.Background(), "x", u)
		var ve *scraper.ValidationError
		require.ErrorAs(t, err, &ve, u)
		require.Equal(t, "url", ve.Field)
	}
	require.Empty(t, f.Calls())
}

func TestSearchRequiresQuery(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{}
	svc, _ := newService(f)
	_, err := svc.Search(context.Background(), "", 1)
	var ve *scraper.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "Search query is required", ve.Message)
	require.Empty(t, f.Calls())
}

func TestSearchAcceptsWhitespaceQuery(t *testing.T) {
	t.Parallel()

	svc, _ := newService(&stubFetcher{})
	got, err := svc.Search(context.Background(), "  ", 1)
	require.NoError(t, err)
	require.NotEmpty(t, got)
}

func TestSearchFallsBackToTopicTable(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{err: &scraper.FetchError{Kind: scraper.KindUpstreamServerError, StatusCode: 503}}
	svc, _ := newService(f)

	got, err := svc.Search(context.Background(), "mystery", 1)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	require.LessOrEqual(t, len(got), 8)
	mystery := map[string]bool{}
	for _, b := range matchTopic("mystery").books {
		mystery[b.title] = true
	}
	for _, r := range got {
		require.True(t, mystery[r.Title], r.Title)
		require.GreaterOrEqual(t, r.Rating, 4)
		require.LessOrEqual(t, r.Rating, 5)
		require.Equal(t, "#", r.Link)
	}
	require.Equal(t, "fallback-mystery-0", got[0].ID)
	require.Len(t, f.Calls(), 3)
	require.Equal(t, []int{0, 0, 0}, f.Retries())
}

func TestSearchUsesFirstCandidateWithResults(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{
		err: errors.New("boom"),
		pages: map[string]string{
			"https://www.wob.com/search?q=emma&page=1": `<div class="result"><h2>Emma</h2><img data-src="/e.jpg"></div>`,
		},
	}
	svc, _ := newService(f)

	got, err := svc.Search(context.Background(), "emma", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "search-0-emma", got[0].ID)
	require.Equal(t, "https://www.wob.com/e.jpg", got[0].Image)
	require.Equal(t, 3, got[0].Rating)
	require.Equal(t, []string{
		"https://www.wob.com/en-gb/search?query=emma&page=1",
		"https://www.wob.com/search?q=emma&page=1",
	}, f.Calls())
}

func TestFetchIgnoresCallerCancellation(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{}
	svc, _ := newService(f)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := svc.Headings(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, got)
}

func TestMatchTopic(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Mystery novels": "mystery",
		"sci":            "science",
		"art":            "art",
		"history of art": "history",
		"cookery":        "fiction",
		"CHILDREN":       "children",
	}
	for q, want := range cases {
		require.Equal(t, want, matchTopic(q).name, q)
	}
}

func TestEscapeComponent(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Einstein: His Life":   "Einstein%3A%20His%20Life",
		"Don't Panic (Again)!": "Don't%20Panic%20(Again)!",
		"Salt & Pepper = 2+2*": "Salt%20%26%20Pepper%20%3D%202%2B2*",
		"Café ~ Ünïcode":       "Caf%C3%A9%20~%20%C3%9Cn%C3%AFcode",
	}
	for in, want := range cases {
		require.Equal(t, want, escapeComponent(in), in)
	}
}

func TestFallbackSearchImageEscapesTitle(t *testing.T) {
	t.Parallel()

	svc, _ := newService(&stubFetcher{})
	got := svc.fallbackSearch("mystery")
	require.Equal(t,
		"/placeholder.svg?height=200&width=150&query=The%20Girl%20with%20the%20Dragon%20Tattoo book cover",
		got[0].Image)
}

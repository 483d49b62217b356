package feed

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"

	"github.com/sakif/blogger-web/internal/model"
)

// postStub serves canned pages and can hold a chosen page's fetch open so
// tests can interleave two in-flight requests deterministically.
type postStub struct {
	mu       sync.Mutex
	pages    map[int]*model.PostList
	lastPage int
	err      error

	searchCalls int
	fetchCalls  int

	blockPage int
	block     chan struct{}
}

func (s *postStub) page(page int) (*model.PostList, error) {
	s.mu.Lock()
	s.fetchCalls++
	block := (chan struct{})(nil)
	if s.block != nil && page == s.blockPage {
		block = s.block
	}
	s.mu.Unlock()

	if block != nil {
		<-block
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if list, ok := s.pages[page]; ok {
		out := *list
		return &out, nil
	}
	return &model.PostList{Data: []model.Post{}, LastPage: s.lastPage}, nil
}

func (s *postStub) RecommendedPosts(_ context.Context, page, _ int) (*model.PostList, error) {
	return s.page(page)
}

func (s *postStub) PostsByUser(_ context.Context, _, page, _ int) (*model.PostList, error) {
	return s.page(page)
}

func (s *postStub) MostLikedPosts(_ context.Context, limit int) (*model.PostList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	posts := make([]model.Post, 0, limit)
	for i := 1; i <= limit; i++ {
		posts = append(posts, model.Post{ID: i, Likes: 100 - i})
	}
	return &model.PostList{Data: posts}, nil
}

func (s *postStub) SearchPosts(_ context.Context, query string) (*model.PostList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchCalls++
	if s.err != nil {
		return nil, s.err
	}
	return &model.PostList{Data: []model.Post{{ID: 1, Title: query}}}, nil
}

func TestGoToPage_PopulatesItemsAndTotal(t *testing.T) {
	stub := &postStub{pages: map[int]*model.PostList{
		2: {Data: []model.Post{{ID: 6}, {ID: 7}}, LastPage: 4},
	}}
	list := NewRecommended(stub, 5)

	if err := list.GoToPage(context.Background(), 2); err != nil {
		t.Fatalf("GoToPage() error = %v", err)
	}
	if got := list.Page(); got != 2 {
		t.Errorf("Page() = %d, want 2", got)
	}
	if got := list.TotalPages(); got != 4 {
		t.Errorf("TotalPages() = %d, want 4", got)
	}
	if items := list.Items(); len(items) != 2 || items[0].ID != 6 {
		t.Errorf("Items() = %+v, want posts 6 and 7", items)
	}
	if list.Loading() {
		t.Error("Loading() must clear after the fetch completes")
	}
}

func TestGoToPage_MissingFieldsDefault(t *testing.T) {
	// Response with no data array and no lastPage.
	stub := &postStub{pages: map[int]*model.PostList{1: {}}}
	list := NewRecommended(stub, 5)

	if err := list.GoToPage(context.Background(), 1); err != nil {
		t.Fatalf("GoToPage() error = %v", err)
	}
	if items := list.Items(); items == nil || len(items) != 0 {
		t.Errorf("Items() = %v, want empty non-nil slice", items)
	}
	if got := list.TotalPages(); got != 1 {
		t.Errorf("TotalPages() = %d, want default 1", got)
	}
}

func TestGoToPage_ClampsBeyondLastPage(t *testing.T) {
	stub := &postStub{lastPage: 3}
	list := NewRecommended(stub, 5)

	if err := list.GoToPage(context.Background(), 9); err != nil {
		t.Fatalf("GoToPage() error = %v", err)
	}
	if got := list.Page(); got != 3 {
		t.Errorf("Page() = %d, want clamped to totalPages 3", got)
	}
}

func TestGoToPage_FailureKeepsLastKnownGood(t *testing.T) {
	stub := &postStub{pages: map[int]*model.PostList{
		1: {Data: []model.Post{{ID: 1}}, LastPage: 2},
	}}
	list := NewRecommended(stub, 5)
	if err := list.GoToPage(context.Background(), 1); err != nil {
		t.Fatalf("GoToPage() error = %v", err)
	}

	stub.mu.Lock()
	stub.err = errors.New("backend down")
	stub.mu.Unlock()

	if err := list.GoToPage(context.Background(), 2); err == nil {
		t.Fatal("GoToPage() should surface the failure")
	}
	if items := list.Items(); len(items) != 1 || items[0].ID != 1 {
		t.Errorf("Items() = %+v, want page 1's posts preserved", items)
	}
}

func TestGoToPage_DiscardsStaleResponse(t *testing.T) {
	stub := &postStub{
		pages: map[int]*model.PostList{
			2: {Data: []model.Post{{ID: 2}}, LastPage: 9},
			5: {Data: []model.Post{{ID: 5}}, LastPage: 10},
		},
		blockPage: 2,
		block:     make(chan struct{}),
	}
	list := NewRecommended(stub, 5)

	// Page 2's fetch hangs; page 5 is requested and completes first.
	done := make(chan error, 1)
	go func() { done <- list.GoToPage(context.Background(), 2) }()

	// Make sure the page-2 fetch is in flight before superseding it.
	waitFor(t, func() bool {
		stub.mu.Lock()
		defer stub.mu.Unlock()
		return stub.fetchCalls == 1
	})

	if err := list.GoToPage(context.Background(), 5); err != nil {
		t.Fatalf("GoToPage(5) error = %v", err)
	}

	// Now let the stale page-2 response arrive.
	close(stub.block)
	if err := <-done; err != nil {
		t.Fatalf("superseded GoToPage(2) error = %v", err)
	}

	if got := list.Page(); got != 5 {
		t.Errorf("Page() = %d, want 5", got)
	}
	if got := list.TotalPages(); got != 10 {
		t.Errorf("TotalPages() = %d, want page 5's 10", got)
	}
	if items := list.Items(); len(items) != 1 || items[0].ID != 5 {
		t.Errorf("Items() = %+v, want page 5's posts only", items)
	}
}

func TestApplyPost_MergesByID(t *testing.T) {
	stub := &postStub{pages: map[int]*model.PostList{
		1: {Data: []model.Post{{ID: 1, Likes: 3}, {ID: 2, Likes: 0}}, LastPage: 1},
	}}
	list := NewRecommended(stub, 5)
	if err := list.GoToPage(context.Background(), 1); err != nil {
		t.Fatalf("GoToPage() error = %v", err)
	}

	list.ApplyPost(model.Post{ID: 2, Likes: 1})
	list.ApplyPost(model.Post{ID: 99, Likes: 50}) // unknown, ignored

	items := list.Items()
	if items[1].Likes != 1 {
		t.Errorf("post 2 likes = %d, want merged value 1", items[1].Likes)
	}
	if len(items) != 2 {
		t.Errorf("len(Items()) = %d, merging must never grow the page", len(items))
	}
}

func TestMostLiked_DefaultLimit(t *testing.T) {
	stub := &postStub{}
	rail := NewMostLiked(stub, 0)

	if err := rail.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := len(rail.Posts()); got != DefaultMostLikedMax {
		t.Errorf("len(Posts()) = %d, want the default limit %d", got, DefaultMostLikedMax)
	}
}

func TestSearch_BlankQueryShortCircuits(t *testing.T) {
	stub := &postStub{}
	results := NewSearchResults(stub)

	// Populate first so clearing is observable.
	if err := results.SearchByQuery(context.Background(), "go"); err != nil {
		t.Fatalf("SearchByQuery() error = %v", err)
	}
	if len(results.Posts()) == 0 {
		t.Fatal("expected results for a real query")
	}

	for _, q := range []string{"", "   ", "\t\n"} {
		if err := results.SearchByQuery(context.Background(), q); err != nil {
			t.Fatalf("SearchByQuery(%q) error = %v", q, err)
		}
		if got := len(results.Posts()); got != 0 {
			t.Errorf("SearchByQuery(%q) left %d posts, want cleared", q, got)
		}
	}
	if stub.searchCalls != 1 {
		t.Errorf("searchCalls = %d, blank queries must not hit the network", stub.searchCalls)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	for i := 0; i < 1_000_000; i++ {
		if cond() {
			return
		}
		runtime.Gosched()
	}
	t.Fatal("condition never became true")
}

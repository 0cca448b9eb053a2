package feed

import (
	"testing"

	"classfeed/pkg/domain"
)

func post(id, content string) domain.Post {
	return domain.Post{ID: id, Content: content, LikeCount: 0}
}

func TestReplaceAllKeepsServerOrder(t *testing.T) {
	s := NewStore()
	s.ReplaceAll([]domain.Post{post("p2", "b"), post("p1", "a"), post("p3", "c")})

	got := s.Snapshot()
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].ID != "p2" || got[1].ID != "p1" || got[2].ID != "p3" {
		t.Fatalf("order = %s,%s,%s, want p2,p1,p3", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestInsertPrepends(t *testing.T) {
	s := NewStore()
	s.ReplaceAll([]domain.Post{post("p1", "a")})
	s.Insert(post("p2", "new"))

	got := s.Snapshot()
	if got[0].ID != "p2" {
		t.Fatalf("first post = %s, want the inserted p2", got[0].ID)
	}
}

func TestApplyPatchShallowMerges(t *testing.T) {
	s := NewStore()
	p := post("p1", "hello")
	p.LikeCount = 3
	s.ReplaceAll([]domain.Post{p})

	liked := true
	count := 4
	if !s.ApplyPatch("p1", PostPatch{HasLiked: &liked, LikeCount: &count}) {
		t.Fatalf("patch on existing post reported missing")
	}
	got, _ := s.Get("p1")
	if !got.HasLiked || got.LikeCount != 4 {
		t.Fatalf("patched post = liked=%v count=%d, want true/4", got.HasLiked, got.LikeCount)
	}
	if got.Content != "hello" {
		t.Fatalf("untouched field changed: %q", got.Content)
	}

	if s.ApplyPatch("missing", PostPatch{HasLiked: &liked}) {
		t.Fatalf("patch on missing post must be a no-op")
	}
}

func TestRemoveReportsPositionAndInsertAtRestores(t *testing.T) {
	s := NewStore()
	s.ReplaceAll([]domain.Post{post("p1", "a"), post("p2", "b"), post("p3", "c")})

	index := s.Remove("p2")
	if index != 1 {
		t.Fatalf("removed index = %d, want 1", index)
	}
	if s.Remove("p2") != -1 {
		t.Fatalf("second remove must report absent")
	}

	s.InsertAt(index, post("p2", "b"))
	got := s.Snapshot()
	if got[1].ID != "p2" {
		t.Fatalf("restored post at %s, want position 1", got[1].ID)
	}
}

func TestCommentAppendAndRemove(t *testing.T) {
	s := NewStore()
	s.ReplaceAll([]domain.Post{post("p1", "a")})

	if !s.AppendComment("p1", domain.Comment{ID: "c1", Content: "hi"}) {
		t.Fatalf("append on existing post failed")
	}
	if s.AppendComment("missing", domain.Comment{ID: "c2"}) {
		t.Fatalf("append on missing post must fail")
	}

	got, _ := s.Get("p1")
	if len(got.Comments) != 1 || got.Comments[0].ID != "c1" {
		t.Fatalf("unexpected comments: %+v", got.Comments)
	}

	if !s.RemoveComment("p1", "c1") {
		t.Fatalf("remove existing comment failed")
	}
	if s.RemoveComment("p1", "c1") {
		t.Fatalf("second remove must report absent")
	}
}

func TestSubscribersSeeEveryMutation(t *testing.T) {
	s := NewStore()
	var calls int
	var lastLen int
	unsubscribe := s.Subscribe(func(posts []domain.Post) {
		calls++
		lastLen = len(posts)
	})

	s.ReplaceAll([]domain.Post{post("p1", "a")})
	s.Insert(post("p2", "b"))
	s.Remove("p1")
	if calls != 3 {
		t.Fatalf("subscriber calls = %d, want 3", calls)
	}
	if lastLen != 1 {
		t.Fatalf("last collection len = %d, want 1", lastLen)
	}

	unsubscribe()
	s.Insert(post("p3", "c"))
	if calls != 3 {
		t.Fatalf("unsubscribed subscriber still called")
	}
}

func TestGenerationBumpsOnReplaceOnly(t *testing.T) {
	s := NewStore()
	gen := s.Generation()
	s.ReplaceAll([]domain.Post{post("p1", "a")})
	if s.Generation() != gen+1 {
		t.Fatalf("generation after replace = %d, want %d", s.Generation(), gen+1)
	}
	liked := true
	s.ApplyPatch("p1", PostPatch{HasLiked: &liked})
	s.Insert(post("p2", "b"))
	if s.Generation() != gen+1 {
		t.Fatalf("patch/insert must not bump generation")
	}
}

func TestGetReturnsIndependentCopy(t *testing.T) {
	s := NewStore()
	p := post("p1", "a")
	p.Comments = []domain.Comment{{ID: "c1", Content: "hi"}}
	s.ReplaceAll([]domain.Post{p})

	got, _ := s.Get("p1")
	got.Comments[0].Content = "mutated"

	again, _ := s.Get("p1")
	if again.Comments[0].Content != "hi" {
		t.Fatalf("caller mutation leaked into the cache")
	}
}

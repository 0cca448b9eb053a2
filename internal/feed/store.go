// Package feed holds the in-memory normalized cache of posts and comments.
// Only the mutation engine and the refresh path write to it; everything else
// reads or subscribes.
package feed

import (
	"sync"
	"time"

	"classfeed/pkg/domain"
)

// PostPatch is a shallow partial update; nil fields keep their current value.
// Both optimistic updates and server-confirmed merges go through it.
type PostPatch struct {
	Content   *string
	Like      *[]string
	LikeCount *int
	HasLiked  *bool
	Comments  *[]domain.Comment
	UpdatedAt *time.Time
}

// Subscriber receives the full ordered collection after every mutation.
type Subscriber func(posts []domain.Post)

// Store is the post cache, keyed by post id with explicit ordering.
// Server order from ReplaceAll is kept verbatim; client-side inserts are
// prepended until the next full refresh reorders them.
type Store struct {
	mu         sync.RWMutex
	posts      map[string]domain.Post
	order      []string
	generation uint64
	subs       map[int]Subscriber
	nextSub    int
}

// NewStore initializes an empty feed cache.
func NewStore() *Store {
	return &Store{
		posts: make(map[string]domain.Post),
		subs:  make(map[int]Subscriber),
	}
}

// Subscribe registers fn for collection updates and returns an unsubscribe
// function. fn is invoked synchronously after each mutation, outside the
// store lock, with a snapshot of the collection.
func (s *Store) Subscribe(fn Subscriber) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// ReplaceAll discards the cached collection and adopts the server's, in the
// server's order.
func (s *Store) ReplaceAll(posts []domain.Post) {
	s.mu.Lock()
	s.generation++
	s.posts = make(map[string]domain.Post, len(posts))
	s.order = make([]string, 0, len(posts))
	for _, p := range posts {
		if _, dup := s.posts[p.ID]; dup {
			continue
		}
		s.posts[p.ID] = clonePost(p)
		s.order = append(s.order, p.ID)
	}
	s.notifyLocked()
}

// Get returns a copy of the post with the given id.
func (s *Store) Get(id string) (domain.Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	if !ok {
		return domain.Post{}, false
	}
	return clonePost(p), true
}

// Snapshot returns a copy of the full ordered collection.
func (s *Store) Snapshot() []domain.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectionLocked()
}

// Generation counts full replacements of the collection. Rollback logic uses
// it to detect that a refresh superseded its snapshot.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Len returns the number of cached posts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// ApplyPatch shallow-merges the patch into the post. It reports whether the
// post existed; patching a post that a refresh removed is a no-op.
func (s *Store) ApplyPatch(id string, patch PostPatch) bool {
	s.mu.Lock()
	p, ok := s.posts[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	if patch.Content != nil {
		p.Content = *patch.Content
	}
	if patch.Like != nil {
		p.Like = append([]string(nil), (*patch.Like)...)
	}
	if patch.LikeCount != nil {
		p.LikeCount = *patch.LikeCount
	}
	if patch.HasLiked != nil {
		p.HasLiked = *patch.HasLiked
	}
	if patch.Comments != nil {
		p.Comments = append([]domain.Comment(nil), (*patch.Comments)...)
	}
	if patch.UpdatedAt != nil {
		p.UpdatedAt = *patch.UpdatedAt
	}
	s.posts[id] = p
	s.notifyLocked()
	return true
}

// Insert prepends a post. Inserting an id that already exists replaces the
// cached copy in place instead.
func (s *Store) Insert(post domain.Post) {
	s.mu.Lock()
	if _, exists := s.posts[post.ID]; exists {
		s.posts[post.ID] = clonePost(post)
		s.notifyLocked()
		return
	}
	s.posts[post.ID] = clonePost(post)
	s.order = append([]string{post.ID}, s.order...)
	s.notifyLocked()
}

// InsertAt places a post at a specific position, used to undo an optimistic
// removal without losing the post's slot.
func (s *Store) InsertAt(index int, post domain.Post) {
	s.mu.Lock()
	if _, exists := s.posts[post.ID]; exists {
		s.posts[post.ID] = clonePost(post)
		s.notifyLocked()
		return
	}
	if index < 0 {
		index = 0
	}
	if index > len(s.order) {
		index = len(s.order)
	}
	s.posts[post.ID] = clonePost(post)
	s.order = append(s.order[:index], append([]string{post.ID}, s.order[index:]...)...)
	s.notifyLocked()
}

// Remove drops a post and reports its former position, or -1 when absent.
func (s *Store) Remove(id string) int {
	s.mu.Lock()
	if _, ok := s.posts[id]; !ok {
		s.mu.Unlock()
		return -1
	}
	delete(s.posts, id)
	index := -1
	filtered := s.order[:0]
	for i, item := range s.order {
		if item == id {
			index = i
			continue
		}
		filtered = append(filtered, item)
	}
	s.order = filtered
	s.notifyLocked()
	return index
}

// AppendComment adds a comment to the end of a post's thread.
func (s *Store) AppendComment(postID string, c domain.Comment) bool {
	s.mu.Lock()
	p, ok := s.posts[postID]
	if !ok {
		s.mu.Unlock()
		return false
	}
	p.Comments = append(p.Comments, c)
	s.posts[postID] = p
	s.notifyLocked()
	return true
}

// RemoveComment drops a comment from a post's thread by comment id.
func (s *Store) RemoveComment(postID, commentID string) bool {
	s.mu.Lock()
	p, ok := s.posts[postID]
	if !ok {
		s.mu.Unlock()
		return false
	}
	found := false
	kept := make([]domain.Comment, 0, len(p.Comments))
	for _, c := range p.Comments {
		if c.ID == commentID {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		s.mu.Unlock()
		return false
	}
	p.Comments = kept
	s.posts[postID] = p
	s.notifyLocked()
	return true
}

// notifyLocked snapshots the collection and subscriber set, releases the
// lock, and fans out. Callers must hold the write lock; it is released here.
func (s *Store) notifyLocked() {
	collection := s.collectionLocked()
	subs := make([]Subscriber, 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()
	for _, fn := range subs {
		fn(collection)
	}
}

func (s *Store) collectionLocked() []domain.Post {
	out := make([]domain.Post, 0, len(s.order))
	for _, id := range s.order {
		if p, ok := s.posts[id]; ok {
			out = append(out, clonePost(p))
		}
	}
	return out
}

func clonePost(p domain.Post) domain.Post {
	p.Like = append([]string(nil), p.Like...)
	p.Comments = append([]domain.Comment(nil), p.Comments...)
	return p
}

// Package mutate applies feed mutations optimistically: the local cache
// changes first, the service is called, and the result either confirms the
// change with server-authoritative fields or rolls it back to the snapshot
// taken before the mutation.
package mutate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"classfeed/internal/feed"
	"classfeed/internal/gateway"
	"classfeed/pkg/domain"
)

// Kind names a mutation for bookkeeping and logs.
type Kind string

const (
	KindLike          Kind = "like"
	KindUnlike        Kind = "unlike"
	KindCreatePost    Kind = "create_post"
	KindEditPost      Kind = "edit_post"
	KindDeletePost    Kind = "delete_post"
	KindAddComment    Kind = "add_comment"
	KindDeleteComment Kind = "delete_comment"
)

var (
	// ErrMutationInFlight rejects a second optimistic mutation on a post
	// that already has one pending; concurrent snapshots of the same entity
	// would lose updates.
	ErrMutationInFlight = errors.New("mutation already in flight for this post")
	// ErrPostNotFound means the target is not in the local feed.
	ErrPostNotFound = errors.New("post not in feed")
)

// Service is the slice of the gateway the engine calls.
type Service interface {
	Statuses(ctx context.Context) ([]domain.Post, error)
	CreateStatus(ctx context.Context, content string) (domain.Post, error)
	UpdateStatus(ctx context.Context, id, content string) (domain.Post, error)
	DeleteStatus(ctx context.Context, id string) error
	Like(ctx context.Context, statusID string) (domain.Post, error)
	Unlike(ctx context.Context, statusID string) (domain.Post, error)
	AddComment(ctx context.Context, statusID, content string) error
	DeleteComment(ctx context.Context, commentID string) error
}

// SessionInfo exposes the acting user for local authorization checks.
type SessionInfo interface {
	CurrentUser() (domain.User, bool)
}

// pendingMutation tracks one in-flight optimistic change and what it takes
// to undo it. It exists only between optimistic apply and reconciliation.
type pendingMutation struct {
	id         string
	kind       Kind
	targetID   string
	generation uint64
}

// Engine coordinates optimistic mutations against the feed store. At most
// one pending mutation per target post is allowed at a time.
type Engine struct {
	api      Service
	sessions SessionInfo
	store    *feed.Store

	mu      sync.Mutex
	pending map[string]*pendingMutation
}

// New builds an engine over the service client, session info, and feed cache.
func New(api Service, sessions SessionInfo, store *feed.Store) *Engine {
	return &Engine{
		api:      api,
		sessions: sessions,
		store:    store,
		pending:  make(map[string]*pendingMutation),
	}
}

// Refresh reloads the full feed from the service. The service hands back the
// entire collection every time; there is no incremental protocol.
func (e *Engine) Refresh(ctx context.Context) error {
	posts, err := e.api.Statuses(ctx)
	if err != nil {
		return fmt.Errorf("refresh feed: %w", err)
	}
	e.store.ReplaceAll(posts)
	return nil
}

// ToggleLike flips the acting user's like on a post. The flip is applied
// locally first; a failed round trip restores hasLiked and likeCount
// together to their pre-toggle values.
func (e *Engine) ToggleLike(ctx context.Context, postID string) error {
	post, ok := e.store.Get(postID)
	if !ok {
		return ErrPostNotFound
	}

	kind := KindLike
	if post.HasLiked {
		kind = KindUnlike
	}
	p, err := e.begin(postID, kind)
	if err != nil {
		return err
	}
	defer e.finish(p)

	liked := !post.HasLiked
	count := post.LikeCount
	if liked {
		count++
	} else if count > 0 {
		count--
	}
	e.store.ApplyPatch(postID, feed.PostPatch{HasLiked: &liked, LikeCount: &count})

	var confirmed domain.Post
	if liked {
		confirmed, err = e.api.Like(ctx, postID)
	} else {
		confirmed, err = e.api.Unlike(ctx, postID)
	}
	if err != nil {
		e.rollback(p, feed.PostPatch{HasLiked: &post.HasLiked, LikeCount: &post.LikeCount, Like: &post.Like})
		return err
	}
	e.store.ApplyPatch(postID, serverPatch(confirmed))
	return nil
}

// CreatePost publishes a new post. No optimistic insert happens: the service
// assigns the id and author block, so the client waits for confirmation and
// then reloads the whole feed.
func (e *Engine) CreatePost(ctx context.Context, content string) error {
	if _, err := e.api.CreateStatus(ctx, content); err != nil {
		return err
	}
	return e.Refresh(ctx)
}

// EditPost changes a post's content. Only the author may edit; anyone else
// is rejected locally before a request is issued. The edit is optimistic
// with rollback of the previous content.
func (e *Engine) EditPost(ctx context.Context, postID, content string) error {
	post, ok := e.store.Get(postID)
	if !ok {
		return ErrPostNotFound
	}
	if err := e.requireAuthor(post.CreatedBy.ID); err != nil {
		return err
	}

	p, err := e.begin(postID, KindEditPost)
	if err != nil {
		return err
	}
	defer e.finish(p)

	e.store.ApplyPatch(postID, feed.PostPatch{Content: &content})

	confirmed, err := e.api.UpdateStatus(ctx, postID, content)
	if err != nil {
		e.rollback(p, feed.PostPatch{Content: &post.Content, UpdatedAt: &post.UpdatedAt})
		return err
	}
	e.store.ApplyPatch(postID, serverPatch(confirmed))
	return nil
}

// DeletePost removes a post. Only the author may delete. The post is removed
// optimistically and restored at its old position if the service refuses.
func (e *Engine) DeletePost(ctx context.Context, postID string) error {
	post, ok := e.store.Get(postID)
	if !ok {
		return ErrPostNotFound
	}
	if err := e.requireAuthor(post.CreatedBy.ID); err != nil {
		return err
	}

	p, err := e.begin(postID, KindDeletePost)
	if err != nil {
		return err
	}
	defer e.finish(p)

	index := e.store.Remove(postID)

	if err := e.api.DeleteStatus(ctx, postID); err != nil {
		if e.store.Generation() == p.generation {
			e.store.InsertAt(index, post)
		} else {
			slog.Debug("skipping delete rollback, feed was replaced",
				"mutation", p.id, "post", postID)
		}
		return err
	}
	return nil
}

// AddComment appends a comment to a post. Like post creation, the client
// waits for the service (which assigns the comment id) and reloads the feed
// instead of appending locally.
func (e *Engine) AddComment(ctx context.Context, postID, content string) error {
	if _, ok := e.store.Get(postID); !ok {
		return ErrPostNotFound
	}
	if err := e.api.AddComment(ctx, postID, content); err != nil {
		return err
	}
	return e.Refresh(ctx)
}

// DeleteComment removes the acting user's comment from a post, optimistically
// with rollback of the comment thread.
func (e *Engine) DeleteComment(ctx context.Context, postID, commentID string) error {
	post, ok := e.store.Get(postID)
	if !ok {
		return ErrPostNotFound
	}
	var target *domain.Comment
	for i := range post.Comments {
		if post.Comments[i].ID == commentID {
			target = &post.Comments[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("comment %s not on post %s", commentID, postID)
	}
	if err := e.requireAuthor(target.CreatedBy.ID); err != nil {
		return err
	}

	p, err := e.begin(postID, KindDeleteComment)
	if err != nil {
		return err
	}
	defer e.finish(p)

	e.store.RemoveComment(postID, commentID)

	if err := e.api.DeleteComment(ctx, commentID); err != nil {
		e.rollback(p, feed.PostPatch{Comments: &post.Comments})
		return err
	}
	return nil
}

// requireAuthor rejects mutations on resources the acting user does not own.
// The rejection is a forbidden-class error so callers can treat it like the
// service's own 403.
func (e *Engine) requireAuthor(authorID string) error {
	user, ok := e.sessions.CurrentUser()
	if !ok {
		return &gateway.APIError{Kind: gateway.KindAuth, Message: "no active session"}
	}
	if user.ID != authorID {
		return &gateway.APIError{Kind: gateway.KindForbidden, Message: "only the author may modify this"}
	}
	return nil
}

func (e *Engine) begin(targetID string, kind Kind) (*pendingMutation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.pending[targetID]; busy {
		return nil, ErrMutationInFlight
	}
	p := &pendingMutation{
		id:         uuid.NewString(),
		kind:       kind,
		targetID:   targetID,
		generation: e.store.Generation(),
	}
	e.pending[targetID] = p
	return p, nil
}

func (e *Engine) finish(p *pendingMutation) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.pending, p.targetID)
}

// rollback restores the snapshot unless a full refresh replaced the
// collection while the request was in flight; the refreshed data is newer
// than the snapshot and must not be overwritten.
func (e *Engine) rollback(p *pendingMutation, snapshot feed.PostPatch) {
	if e.store.Generation() != p.generation {
		slog.Debug("skipping rollback, feed was replaced",
			"mutation", p.id, "kind", string(p.kind), "post", p.targetID)
		return
	}
	if !e.store.ApplyPatch(p.targetID, snapshot) {
		slog.Debug("skipping rollback, post no longer cached",
			"mutation", p.id, "kind", string(p.kind), "post", p.targetID)
	}
}

// serverPatch lifts the server-confirmed post into a patch; the service is
// authoritative for counts and thread contents.
func serverPatch(p domain.Post) feed.PostPatch {
	return feed.PostPatch{
		Content:   &p.Content,
		Like:      &p.Like,
		LikeCount: &p.LikeCount,
		HasLiked:  &p.HasLiked,
		Comments:  &p.Comments,
		UpdatedAt: &p.UpdatedAt,
	}
}

package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mindposter/internal/config"
	"mindposter/internal/instagram"
	"mindposter/internal/models"
	"mindposter/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakePostRepo is an in-memory PostRepository that honors the guarded
// transition contract, so replay and race behavior can be exercised without a
// database.
type fakePostRepo struct {
	mu     sync.Mutex
	nextID uint
	posts  map[uint]*models.Post
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: make(map[uint]*models.Post)}
}

func (r *fakePostRepo) Create(_ context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.posts {
		if p.ApprovalToken == post.ApprovalToken {
			return errors.New("UNIQUE constraint failed: posts.approval_token")
		}
	}
	r.nextID++
	post.ID = r.nextID
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	cp := *post
	r.posts[post.ID] = &cp
	return nil
}

func (r *fakePostRepo) GetByID(_ context.Context, id uint) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePostRepo) GetByToken(_ context.Context, token string) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.posts {
		if p.ApprovalToken == token {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakePostRepo) ListRecent(_ context.Context, limit int) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Post, 0, len(r.posts))
	for _, p := range r.posts {
		cp := *p
		out = append(out, &cp)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakePostRepo) UsedThemeIDs(_ context.Context, since time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool)
	var ids []string
	for _, p := range r.posts {
		if p.CreatedAt.Before(since) || seen[p.ThemeID] {
			continue
		}
		seen[p.ThemeID] = true
		ids = append(ids, p.ThemeID)
	}
	return ids, nil
}

func (r *fakePostRepo) CompareAndSetStatus(_ context.Context, id uint, expected, next models.PostStatus, change repository.StatusChange) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok || p.Status != expected {
		return false, nil
	}
	p.Status = next
	if change.ApprovedAt != nil {
		p.ApprovedAt = change.ApprovedAt
	}
	if change.PublishedAt != nil {
		p.PublishedAt = change.PublishedAt
	}
	if change.InstagramPostID != "" {
		p.InstagramPostID = change.InstagramPostID
	}
	if change.RejectionReason != "" {
		p.RejectionReason = change.RejectionReason
	}
	return true, nil
}

func (r *fakePostRepo) UpdateMetadata(_ context.Context, id uint, metadata string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Metadata = metadata
	return nil
}

// publisherStub counts publish calls and returns a canned result.
type publisherStub struct {
	mu       sync.Mutex
	calls    int
	captions []string
	postID   string
	err      error
}

func (p *publisherStub) Publish(_ context.Context, caption, hashtags, mediaRef string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls += 1
	p.captions = append(p.captions, caption)
	if p.err != nil {
		return "", p.err
	}
	return p.postID, nil
}

func (p *publisherStub) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func validInput() CreatePostInput {
	return CreatePostInput{
		ThemeID:  "digital-balance",
		Theme:    "Healthy screen habits",
		Hook:     "Your phone can wait five minutes.",
		Caption:  "Your phone can wait five minutes.\n\nTry one scroll-free meal today.",
		Hashtags: "#MindfulTeens #DigitalBalance",
		AltText:  "Teen looking out a window, phone face down on the table",
	}
}

func newTestLifecycle(pub *publisherStub) (*LifecycleService, *fakePostRepo) {
	repo := newFakePostRepo()
	return NewLifecycleService(repo, pub, "https://images.example.com/calm.jpg"), repo
}

func TestCreatePostValidation(t *testing.T) {
	svc, _ := newTestLifecycle(&publisherStub{})
	ctx := context.Background()

	in := validInput()
	in.ThemeID = ""
	_, err := svc.CreatePost(ctx, in)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)

	in = validInput()
	in.Caption = ""
	_, err = svc.CreatePost(ctx, in)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestCreatePostMintsUniqueTokens(t *testing.T) {
	svc, _ := newTestLifecycle(&publisherStub{})
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		post, err := svc.CreatePost(ctx, validInput())
		require.NoError(t, err)
		assert.Equal(t, models.StatusPendingApproval, post.Status)
		assert.Len(t, post.ApprovalToken, 43, "32 random bytes in unpadded url-safe base64")
		assert.NotRegexp(t, `[+/=]`, post.ApprovalToken)
		assert.False(t, seen[post.ApprovalToken], "token collision")
		seen[post.ApprovalToken] = true
	}
}

func TestCreatePostDefaultsMetadata(t *testing.T) {
	svc, _ := newTestLifecycle(&publisherStub{})

	post, err := svc.CreatePost(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, "{}", post.Metadata)
}

func TestApprovePublishes(t *testing.T) {
	pub := &publisherStub{postID: "17900000000000001"}
	svc, repo := newTestLifecycle(pub)
	ctx := context.Background()

	post, err := svc.CreatePost(ctx, validInput())
	require.NoError(t, err)

	res, err := svc.Approve(ctx, post.ApprovalToken)
	require.NoError(t, err)
	assert.Equal(t, OutcomePublished, res.Outcome)
	assert.Equal(t, models.StatusPublished, res.Post.Status)
	assert.Equal(t, "17900000000000001", res.Post.InstagramPostID)
	assert.Equal(t, 1, pub.callCount())

	require.NotNil(t, res.Post.ApprovedAt)
	require.NotNil(t, res.Post.PublishedAt)
	assert.False(t, res.Post.PublishedAt.Before(*res.Post.ApprovedAt))
	assert.False(t, res.Post.ApprovedAt.Before(res.Post.CreatedAt))

	stored, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublished, stored.Status)
	assert.Equal(t, "17900000000000001", stored.InstagramPostID)
}

func TestApproveIsIdempotent(t *testing.T) {
	pub := &publisherStub{postID: "17900000000000002"}
	svc, _ := newTestLifecycle(pub)
	ctx := context.Background()

	post, err := svc.CreatePost(ctx, validInput())
	require.NoError(t, err)

	first, err := svc.Approve(ctx, post.ApprovalToken)
	require.NoError(t, err)
	require.Equal(t, OutcomePublished, first.Outcome)

	second, err := svc.Approve(ctx, post.ApprovalToken)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyPublished, second.Outcome)
	assert.Equal(t, first.Post.InstagramPostID, second.Post.InstagramPostID)
	assert.Equal(t, models.StatusPublished, second.Post.Status)
	assert.Equal(t, 1, pub.callCount(), "publish protocol must run at most once")
}

func TestApprovePublishFailure(t *testing.T) {
	pub := &publisherStub{err: errors.New("container stuck in IN_PROGRESS")}
	svc, repo := newTestLifecycle(pub)
	ctx := context.Background()

	post, err := svc.CreatePost(ctx, validInput())
	require.NoError(t, err)

	res, err := svc.Approve(ctx, post.ApprovalToken)
	require.NoError(t, err)
	assert.Equal(t, OutcomePublishFailed, res.Outcome)
	assert.Equal(t, models.StatusFailed, res.Post.Status)
	assert.Contains(t, res.Detail, "IN_PROGRESS")

	stored, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, stored.Status)
	assert.Empty(t, stored.InstagramPostID)

	// Failed is a dead end: a second click does not retry.
	replay, err := svc.Approve(ctx, post.ApprovalToken)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyFailed, replay.Outcome)
	assert.Equal(t, 1, pub.callCount())
}

func TestApproveLosesRace(t *testing.T) {
	pub := &publisherStub{postID: "17900000000000003"}
	svc, repo := newTestLifecycle(pub)
	ctx := context.Background()

	post, err := svc.CreatePost(ctx, validInput())
	require.NoError(t, err)

	// Another worker wins the pending -> approved transition between our read
	// and our guarded update.
	now := time.Now().UTC()
	ok, err := repo.CompareAndSetStatus(ctx, post.ID,
		models.StatusPendingApproval, models.StatusApproved,
		repository.StatusChange{ApprovedAt: &now})
	require.NoError(t, err)
	require.True(t, ok)

	res, err := svc.Approve(ctx, post.ApprovalToken)
	require.NoError(t, err)
	assert.Equal(t, OutcomeInProgress, res.Outcome)
	assert.Equal(t, 0, pub.callCount(), "the race loser must not start the publish protocol")
}

func TestApproveUnknownToken(t *testing.T) {
	svc, _ := newTestLifecycle(&publisherStub{})

	_, err := svc.Approve(context.Background(), "does-not-exist")
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestRejectPendingPost(t *testing.T) {
	pub := &publisherStub{}
	svc, repo := newTestLifecycle(pub)
	ctx := context.Background()

	post, err := svc.CreatePost(ctx, validInput())
	require.NoError(t, err)

	res, err := svc.Reject(ctx, post.ApprovalToken, "hook feels preachy")
	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, res.Outcome)
	assert.Equal(t, models.StatusRejected, res.Post.Status)
	assert.Equal(t, "hook feels preachy", res.Post.RejectionReason)
	assert.Equal(t, 0, pub.callCount())

	stored, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, stored.Status)

	replay, err := svc.Reject(ctx, post.ApprovalToken, "again")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyRejected, replay.Outcome)
	assert.Equal(t, "hook feels preachy", replay.Post.RejectionReason,
		"replay must not overwrite the original reason")
}

func TestRejectAfterApproveRefused(t *testing.T) {
	pub := &publisherStub{postID: "17900000000000004"}
	svc, _ := newTestLifecycle(pub)
	ctx := context.Background()

	post, err := svc.CreatePost(ctx, validInput())
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, post.ApprovalToken)
	require.NoError(t, err)
	require.Equal(t, OutcomePublished, approved.Outcome)

	res, err := svc.Reject(ctx, post.ApprovalToken, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCannotReject, res.Outcome)
	assert.Equal(t, models.StatusPublished, res.Post.Status)
	assert.Empty(t, res.Post.RejectionReason)
}

func TestApproveAfterRejectReportsRejected(t *testing.T) {
	pub := &publisherStub{postID: "17900000000000005"}
	svc, _ := newTestLifecycle(pub)
	ctx := context.Background()

	post, err := svc.CreatePost(ctx, validInput())
	require.NoError(t, err)

	_, err = svc.Reject(ctx, post.ApprovalToken, "not this one")
	require.NoError(t, err)

	res, err := svc.Approve(ctx, post.ApprovalToken)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyRejected, res.Outcome)
	assert.Equal(t, 0, pub.callCount())
}

// slowContainerGateway reports IN_PROGRESS on the first status poll and
// FINISHED on the second, counting every call.
type slowContainerGateway struct {
	creates int
	polls   int
	commits int
}

func (g *slowContainerGateway) CreateContainer(_ context.Context, _, _ string) (string, error) {
	g.creates++
	return "container-1", nil
}

func (g *slowContainerGateway) ContainerStatus(_ context.Context, _ string) (string, error) {
	g.polls++
	if g.polls < 2 {
		return "IN_PROGRESS", nil
	}
	return "FINISHED", nil
}

func (g *slowContainerGateway) Commit(_ context.Context, _ string) (string, error) {
	g.commits++
	return "17900000000000777", nil
}

func TestApproveEndToEndWithSlowContainer(t *testing.T) {
	gw := &slowContainerGateway{}
	publisher := instagram.NewPublisher(gw, &config.Config{
		PublishPollSeconds:  0,
		PublishPollAttempts: 5,
	})
	repo := newFakePostRepo()
	svc := NewLifecycleService(repo, publisher, "https://images.example.com/calm.jpg")
	ctx := context.Background()

	post, err := svc.CreatePost(ctx, validInput())
	require.NoError(t, err)
	require.Equal(t, models.StatusPendingApproval, post.Status)

	res, err := svc.Approve(ctx, post.ApprovalToken)
	require.NoError(t, err)
	assert.Equal(t, OutcomePublished, res.Outcome)
	assert.Equal(t, "17900000000000777", res.Post.InstagramPostID)
	assert.Equal(t, 2, gw.polls)
	assert.Equal(t, 1, gw.commits)

	replay, err := svc.Approve(ctx, post.ApprovalToken)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyPublished, replay.Outcome)
	assert.Equal(t, 1, gw.creates, "replay must not touch the gateway")
	assert.Equal(t, 1, gw.commits)
}

func TestRejectLosesRaceAgainstApprove(t *testing.T) {
	pub := &publisherStub{postID: "17900000000000006"}
	svc, repo := newTestLifecycle(pub)
	ctx := context.Background()

	post, err := svc.CreatePost(ctx, validInput())
	require.NoError(t, err)

	now := time.Now().UTC()
	ok, err := repo.CompareAndSetStatus(ctx, post.ID,
		models.StatusPendingApproval, models.StatusApproved,
		repository.StatusChange{ApprovedAt: &now})
	require.NoError(t, err)
	require.True(t, ok)

	res, err := svc.Reject(ctx, post.ApprovalToken, "too slow")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCannotReject, res.Outcome)
}

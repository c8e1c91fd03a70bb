package seed

import (
	"context"
	"testing"

	"mindposter/internal/models"
	"mindposter/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestPosts(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Post{}))
	repo := repository.NewPostRepository(db)

	require.NoError(t, Posts(context.Background(), repo, 12))

	posts, err := repo.ListRecent(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, posts, 12)

	tokens := make(map[string]bool)
	for _, p := range posts {
		assert.NotEmpty(t, p.ApprovalToken)
		assert.False(t, tokens[p.ApprovalToken], "seeded tokens must be unique")
		tokens[p.ApprovalToken] = true

		switch p.Status {
		case models.StatusPublished:
			assert.NotEmpty(t, p.InstagramPostID)
			require.NotNil(t, p.ApprovedAt)
			require.NotNil(t, p.PublishedAt)
			assert.False(t, p.PublishedAt.Before(*p.ApprovedAt))
		case models.StatusRejected:
			assert.NotEmpty(t, p.RejectionReason)
		case models.StatusFailed:
			assert.NotNil(t, p.ApprovedAt)
			assert.Empty(t, p.InstagramPostID)
		}
	}
}

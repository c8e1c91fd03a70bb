// Package seed populates the database with demo posts for local development.
package seed

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"mindposter/internal/models"
	"mindposter/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
)

var themePool = []struct {
	ID    string
	Theme string
}{
	{"exam-stress", "Handling exam pressure"},
	{"overthinking", "The 2 AM overthinking spiral"},
	{"comparison", "Comparison culture"},
	{"gratitude", "Everyday gratitude"},
	{"breath", "One mindful breath"},
	{"self-compassion", "Being kind to yourself"},
}

var statusPool = []models.PostStatus{
	models.StatusPendingApproval,
	models.StatusPendingApproval,
	models.StatusPublished,
	models.StatusRejected,
	models.StatusFailed,
}

// Posts inserts n demo posts with a realistic spread of statuses and ages.
func Posts(ctx context.Context, repo repository.PostRepository, n int) error {
	for i := 0; i < n; i++ {
		theme := themePool[gofakeit.Number(0, len(themePool)-1)]
		status := statusPool[gofakeit.Number(0, len(statusPool)-1)]

		token, err := demoToken()
		if err != nil {
			return err
		}

		createdAt := time.Now().UTC().AddDate(0, 0, -gofakeit.Number(0, 30))
		post := &models.Post{
			ThemeID:       theme.ID,
			Theme:         theme.Theme,
			Hook:          gofakeit.Sentence(8),
			Caption:       gofakeit.Paragraph(2, 4, 12, "\n\n"),
			Hashtags:      "#MindfulTeens #TheMindfulInitiative #Mindfulness",
			AltText:       gofakeit.Sentence(10),
			ImagePrompt:   gofakeit.Sentence(12),
			CTA:           gofakeit.Question(),
			Status:        status,
			ApprovalToken: token,
			CreatedAt:     createdAt,
		}

		switch status {
		case models.StatusPublished:
			approved := createdAt.Add(2 * time.Hour)
			published := approved.Add(time.Minute)
			post.ApprovedAt = &approved
			post.PublishedAt = &published
			post.InstagramPostID = fmt.Sprintf("1784%012d", gofakeit.Number(0, 999999999))
		case models.StatusRejected:
			post.RejectionReason = "Rejected via email"
		case models.StatusFailed:
			approved := createdAt.Add(2 * time.Hour)
			post.ApprovedAt = &approved
		}

		if err := repo.Create(ctx, post); err != nil {
			return fmt.Errorf("failed to seed post %d: %w", i, err)
		}
	}
	return nil
}

func demoToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

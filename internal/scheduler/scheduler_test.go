package scheduler

import (
	"context"
	"errors"
	"testing"

	"mindposter/internal/config"
	"mindposter/internal/generator"
	"mindposter/internal/models"
	"mindposter/internal/repository"
	"mindposter/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type producerStub struct {
	err error
}

func (p *producerStub) Produce(_ context.Context, theme generator.Theme) (*generator.Draft, *generator.Usage, error) {
	if p.err != nil {
		return nil, nil, p.err
	}
	return &generator.Draft{
		Hook:     "One breath first.",
		Caption:  "One breath first.\n\nThen answer.",
		Hashtags: "#MindfulTeens",
		Theme:    theme.Theme,
	}, nil, nil
}

type notifierStub struct{}

func (notifierStub) SendApproval(_ context.Context, _ *models.Post) (string, error) {
	return "msg_01HZX", nil
}

type publisherStub struct{}

func (publisherStub) Publish(_ context.Context, _, _, _ string) (string, error) {
	return "ig-1", nil
}

func newTestPipeline(t *testing.T, producerErr error) (*service.Pipeline, repository.PostRepository) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Post{}))

	repo := repository.NewPostRepository(db)
	themes := []generator.Theme{{ID: "gratitude", Theme: "Everyday gratitude", Context: "noticing"}}
	lifecycle := service.NewLifecycleService(repo, publisherStub{}, "https://img.example.com/a.jpg")
	return service.NewPipeline(themes, repo, &producerStub{err: producerErr}, notifierStub{}, lifecycle, 14), repo
}

func testConfig() *config.Config {
	return &config.Config{
		ScheduleHour:   7,
		ScheduleMinute: 0,
		Timezone:       "Asia/Kolkata",
	}
}

func TestNewRejectsInvalidTimezone(t *testing.T) {
	pipeline, _ := newTestPipeline(t, nil)
	cfg := testConfig()
	cfg.Timezone = "Mars/Olympus_Mons"

	_, err := New(cfg, pipeline)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid timezone")
}

func TestNewAcceptsValidSchedule(t *testing.T) {
	pipeline, _ := newTestPipeline(t, nil)

	s, err := New(testConfig(), pipeline)
	require.NoError(t, err)
	require.NotNil(t, s)
	require.NoError(t, s.Stop(context.Background()))
}

func TestRunOnceCreatesPost(t *testing.T) {
	pipeline, repo := newTestPipeline(t, nil)
	s, err := New(testConfig(), pipeline)
	require.NoError(t, err)

	s.RunOnce()

	posts, err := repo.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, models.StatusPendingApproval, posts[0].Status)
}

func TestRunOnceContainsFailure(t *testing.T) {
	pipeline, repo := newTestPipeline(t, errors.New("api_error: overloaded"))
	s, err := New(testConfig(), pipeline)
	require.NoError(t, err)

	assert.NotPanics(t, s.RunOnce)

	posts, err := repo.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

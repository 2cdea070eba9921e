package minvestedService

import (
	"context"
	"testing"

	"github.com/minvestfinance/simvest-backend/config"
	"github.com/minvestfinance/simvest-backend/data/repository"
	"github.com/minvestfinance/simvest-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetProfile(ctx context.Context, userID string) (model.StoredProfile, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(model.StoredProfile), args.Error(1)
}

func (m *MockRepository) UpsertProgress(ctx context.Context, userID string, progress map[string]float64, points float64) error {
	args := m.Called(ctx, userID, progress, points)
	return args.Error(0)
}

func testConfig() *config.Config {
	return &config.Config{Minvest: config.Minvest{ArticlePoints: 25}}
}

func TestQuizScore(t *testing.T) {
	assert.Equal(t, float64(100), QuizScore([]string{"a", "b"}, []string{"a", "b"}))
	assert.Equal(t, float64(50), QuizScore([]string{"a", "x"}, []string{"a", "b"}))
	assert.Equal(t, float64(0), QuizScore(nil, []string{"a", "b"}))
	assert.Equal(t, float64(0), QuizScore([]string{"a"}, nil))
}

func TestApplyQuizResult_FirstAttemptAwardsPoints(t *testing.T) {
	ctx := context.Background()

	repo := new(MockRepository)
	repo.On("GetProfile", ctx, "u1").Return(model.StoredProfile{}, repository.ErrNotFound)
	repo.On("UpsertProgress", ctx, "u1", map[string]float64{"stocks-101": 50}, float64(50)).Return(nil)

	srv := New(testConfig(), repo)

	progress, points, err := srv.ApplyQuizResult(ctx, "u1", "stocks-101", []string{"a", "x"}, []string{"a", "b"})
	assert.NoError(t, err)
	assert.Equal(t, float64(50), progress["stocks-101"])
	assert.Equal(t, float64(50), points)
	repo.AssertExpectations(t)
}

func TestApplyQuizResult_RetakeUpdatesScoreButNotPoints(t *testing.T) {
	ctx := context.Background()

	points := float64(40)
	repo := new(MockRepository)
	repo.On("GetProfile", ctx, "u1").Return(model.StoredProfile{
		Progress: map[string]float64{"stocks-101": 40},
		Points:   &points,
	}, nil)
	repo.On("UpsertProgress", ctx, "u1", map[string]float64{"stocks-101": 100}, float64(40)).Return(nil)

	srv := New(testConfig(), repo)

	progress, gotPoints, err := srv.ApplyQuizResult(ctx, "u1", "stocks-101", []string{"a", "b"}, []string{"a", "b"})
	assert.NoError(t, err)
	assert.Equal(t, float64(100), progress["stocks-101"])
	assert.Equal(t, float64(40), gotPoints)
	repo.AssertExpectations(t)
}

func TestToggleArticle(t *testing.T) {
	ctx := context.Background()

	t.Run("marking an article read awards points", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetProfile", ctx, "u1").Return(model.StoredProfile{}, repository.ErrNotFound)
		repo.On("UpsertProgress", ctx, "u1", map[string]float64{"budgeting": 100}, float64(25)).Return(nil)

		srv := New(testConfig(), repo)

		progress, points, err := srv.ToggleArticle(ctx, "u1", "budgeting")
		assert.NoError(t, err)
		assert.Equal(t, float64(100), progress["budgeting"])
		assert.Equal(t, float64(25), points)
	})

	t.Run("unmarking takes the points back", func(t *testing.T) {
		points := float64(25)
		repo := new(MockRepository)
		repo.On("GetProfile", ctx, "u1").Return(model.StoredProfile{
			Progress: map[string]float64{"budgeting": 100},
			Points:   &points,
		}, nil)
		repo.On("UpsertProgress", ctx, "u1", map[string]float64{"budgeting": 0}, float64(0)).Return(nil)

		srv := New(testConfig(), repo)

		progress, gotPoints, err := srv.ToggleArticle(ctx, "u1", "budgeting")
		assert.NoError(t, err)
		assert.Equal(t, float64(0), progress["budgeting"])
		assert.Equal(t, float64(0), gotPoints)
	})
}

func TestGetProgress_PointsDefaultFromCompletedModules(t *testing.T) {
	ctx := context.Background()

	repo := new(MockRepository)
	repo.On("GetProfile", ctx, "u1").Return(model.StoredProfile{
		Progress: map[string]float64{"budgeting": 100, "stocks-101": 60},
	}, nil)

	srv := New(testConfig(), repo)

	progress, points, err := srv.GetProgress(ctx, "u1")
	assert.NoError(t, err)
	assert.Len(t, progress, 2)
	assert.Equal(t, float64(50), points)
}

func TestSectionProgress(t *testing.T) {
	progress := map[string]float64{"budgeting": 100, "stocks-101": 50}

	assert.Equal(t, float64(75), SectionProgress([]string{"budgeting", "stocks-101"}, progress))
	assert.Equal(t, float64(50), SectionProgress([]string{"budgeting", "untouched"}, progress))
	assert.Equal(t, float64(0), SectionProgress(nil, progress))
}

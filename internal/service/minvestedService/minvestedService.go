package minvestedService

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/minvestfinance/simvest-backend/config"
	"github.com/minvestfinance/simvest-backend/data/repository"
	"github.com/minvestfinance/simvest-backend/internal/model"
	"github.com/minvestfinance/simvest-backend/internal/service"
	"github.com/minvestfinance/simvest-backend/utils"
)

type Repository interface {
	GetProfile(ctx context.Context, userID string) (model.StoredProfile, error)
	UpsertProgress(ctx context.Context, userID string, progress map[string]float64, points float64) error
}

type MinvestedService struct {
	cfg  *config.Config
	repo Repository
}

func New(cfg *config.Config, repo Repository) *MinvestedService {
	return &MinvestedService{cfg: cfg, repo: repo}
}

// GetProgress loads a user's education progress with new-user defaults: an
// empty progress map and points derived from completed modules.
func (s *MinvestedService) GetProgress(ctx context.Context, userID string) (map[string]float64, float64, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "MinvestedService.GetProgress"

	slog.Debug("GetProgress start", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	defer func() {
		slog.Debug("GetProgress finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	}()

	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		slog.Error("got error from repo.GetProfile", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, 0, fmt.Errorf("%w: %v", service.ErrProfileLoadFailed, err)
	}

	progress := profile.Progress
	if progress == nil {
		progress = map[string]float64{}
	}

	points := float64(len(progress)) * s.cfg.Minvest.ArticlePoints
	if profile.Points != nil {
		points = *profile.Points
	}

	return progress, points, nil
}

// SaveProgress persists the progress map and points balance.
func (s *MinvestedService) SaveProgress(ctx context.Context, userID string, progress map[string]float64, points float64) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "MinvestedService.SaveProgress"

	slog.Debug("SaveProgress start", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	defer func() {
		slog.Debug("SaveProgress finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	}()

	err := s.repo.UpsertProgress(ctx, userID, progress, points)
	if err != nil {
		slog.Error("got error from repo.UpsertProgress", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return fmt.Errorf("%w: %v", service.ErrProfileSaveFailed, err)
	}

	return nil
}

// ApplyQuizResult grades the submitted answers, records the percentage for
// the module and persists. Points equal to the score are awarded only the
// first time a module gets any progress entry, so retakes never farm points.
func (s *MinvestedService) ApplyQuizResult(ctx context.Context, userID, module string, selected, answers []string) (progress map[string]float64, points float64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "MinvestedService.ApplyQuizResult"

	slog.Debug("ApplyQuizResult start", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID), slog.String("module", module))
	defer func() {
		slog.Debug("ApplyQuizResult finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID), slog.String("module", module))
	}()

	progress, points, err = s.GetProgress(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	score := QuizScore(selected, answers)

	_, seen := progress[module]
	progress[module] = score
	if !seen {
		points += score
	}

	if err := s.SaveProgress(ctx, userID, progress, points); err != nil {
		return nil, 0, err
	}

	return progress, points, nil
}

// ToggleArticle flips an article module between read (100) and unread (0)
// and moves the fixed article reward with it.
func (s *MinvestedService) ToggleArticle(ctx context.Context, userID, module string) (progress map[string]float64, points float64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "MinvestedService.ToggleArticle"

	slog.Debug("ToggleArticle start", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID), slog.String("module", module))
	defer func() {
		slog.Debug("ToggleArticle finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID), slog.String("module", module))
	}()

	progress, points, err = s.GetProgress(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	if progress[module] == 100 {
		progress[module] = 0
		points -= s.cfg.Minvest.ArticlePoints
	} else {
		progress[module] = 100
		points += s.cfg.Minvest.ArticlePoints
	}

	if err := s.SaveProgress(ctx, userID, progress, points); err != nil {
		return nil, 0, err
	}

	return progress, points, nil
}

// QuizScore is the percentage of positions where the selected answer matches
// the expected one. Extra selected answers beyond the answer key are ignored.
func QuizScore(selected, answers []string) float64 {
	if len(answers) == 0 {
		return 0
	}

	matches := 0
	for i, answer := range answers {
		if i < len(selected) && selected[i] == answer {
			matches++
		}
	}

	return float64(matches) / float64(len(answers)) * 100
}

// SectionProgress averages per-module completion over every module in the
// section. Modules the user never touched count as zero.
func SectionProgress(moduleNames []string, progress map[string]float64) float64 {
	if len(moduleNames) == 0 {
		return 0
	}

	sum := 0.0
	for _, name := range moduleNames {
		sum += progress[name]
	}

	return sum / float64(len(moduleNames))
}

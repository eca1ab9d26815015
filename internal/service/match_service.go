package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/unipath/unipath-api/internal/matching"
	"github.com/unipath/unipath-api/internal/models"
	appErrors "github.com/unipath/unipath-api/pkg/errors"
	"github.com/unipath/unipath-api/pkg/jobs"
)

type matchStudentReader interface {
	FindByUserID(ctx context.Context, userID string) (*models.StudentProfile, error)
}

type matchCatalogReader interface {
	ListActive(ctx context.Context) ([]models.University, error)
}

type matchRepository interface {
	FindByUser(ctx context.Context, userID string) ([]models.MatchDetail, error)
	FindByUserAndUniversity(ctx context.Context, userID, universityID string) (*models.MatchResult, error)
	Create(ctx context.Context, match *models.MatchResult) error
	Update(ctx context.Context, match *models.MatchResult) error
	Delete(ctx context.Context, userID, universityID string) (bool, error)
	DeleteByUser(ctx context.Context, userID string) (bool, error)
}

// GeneratedMatch pairs a freshly computed score with catalog display fields.
type GeneratedMatch struct {
	models.MatchResult
	UniversityName    string `json:"university_name"`
	UniversityCountry string `json:"university_country"`
}

// MatchService orchestrates recommendation generation: it loads the student
// profile and active catalog, scores every pair through the engine, upserts
// the rows and returns them best first.
type MatchService struct {
	profiles matchStudentReader
	catalog  matchCatalogReader
	matches  matchRepository
	engine   *matching.Engine
	cache    *CacheService
	metrics  *MetricsService
	deadline time.Duration
	logger   *zap.Logger
	queue    *jobs.Queue
}

// NewMatchService constructs the orchestrator.
func NewMatchService(
	profiles matchStudentReader,
	catalog matchCatalogReader,
	matches matchRepository,
	engine *matching.Engine,
	cache *CacheService,
	metrics *MetricsService,
	deadline time.Duration,
	logger *zap.Logger,
) *MatchService {
	if engine == nil {
		engine = matching.NewEngine(matching.DefaultWeights)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatchService{
		profiles: profiles,
		catalog:  catalog,
		matches:  matches,
		engine:   engine,
		cache:    cache,
		metrics:  metrics,
		deadline: deadline,
		logger:   logger,
	}
}

// SetQueue attaches the background queue used for async regeneration. Wired
// after construction because the queue handler calls back into this service.
func (s *MatchService) SetQueue(q *jobs.Queue) {
	s.queue = q
}

// GenerateMatches scores the user against every active university and upserts
// one row per pair. A university that fails to score is skipped, not fatal.
func (s *MatchService) GenerateMatches(ctx context.Context, userID string) ([]GeneratedMatch, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid user id")
	}

	start := time.Now()

	profile, err := s.profiles.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}

	universities, err := s.catalog.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load university catalog")
	}

	if s.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.deadline)
		defer cancel()
	}

	results := make([]GeneratedMatch, 0, len(universities))
	for i := range universities {
		university := &universities[i]
		if err := ctx.Err(); err != nil {
			s.logger.Warn("match generation deadline hit, returning partial results",
				zap.String("user_id", userID),
				zap.Int("scored", len(results)),
				zap.Int("catalog_size", len(universities)))
			break
		}

		match, err := s.upsertMatch(ctx, profile, university)
		if err != nil {
			s.logger.Error("failed to score university, skipping",
				zap.String("user_id", userID),
				zap.String("university_id", university.ID),
				zap.Error(err))
			continue
		}
		results = append(results, GeneratedMatch{
			MatchResult:       *match,
			UniversityName:    university.Name,
			UniversityCountry: university.Country,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].MatchScore > results[j].MatchScore
	})

	if s.metrics != nil {
		s.metrics.RecordMatchGeneration(len(results), time.Since(start))
	}
	s.invalidateRecommendations(userID)

	s.logger.Info("matches generated",
		zap.String("user_id", userID),
		zap.Int("count", len(results)),
		zap.Duration("duration", time.Since(start)))
	return results, nil
}

func (s *MatchService) upsertMatch(ctx context.Context, profile *models.StudentProfile, university *models.University) (*models.MatchResult, error) {
	result := s.engine.Score(profile, university)
	reasoning, err := json.Marshal(result.Reasoning)
	if err != nil {
		return nil, err
	}
	score := matching.FormatScore(result.Score)

	existing, err := s.matches.FindByUserAndUniversity(ctx, profile.UserID, university.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	if existing == nil {
		match := &models.MatchResult{
			UserID:       profile.UserID,
			UniversityID: university.ID,
			MatchScore:   score,
			Reasoning:    types.JSONText(reasoning),
			ModelVersion: matching.ModelVersion,
		}
		if err := s.matches.Create(ctx, match); err != nil {
			return nil, err
		}
		return match, nil
	}

	existing.MatchScore = score
	existing.Reasoning = types.JSONText(reasoning)
	existing.ModelVersion = matching.ModelVersion
	if err := s.matches.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// GetMatches returns saved recommendations best first. The bool reports
// whether the response was served from cache.
func (s *MatchService) GetMatches(ctx context.Context, userID string) ([]models.MatchDetail, bool, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "invalid user id")
	}

	cacheKey := recommendationsKey(userID)
	if s.cache.Enabled() {
		var cached []models.MatchDetail
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached, true, nil
		}
	}

	matches, err := s.matches.FindByUser(ctx, userID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recommendations")
	}
	if matches == nil {
		matches = []models.MatchDetail{}
	}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, cacheKey, matches, 0); err != nil {
			s.logger.Warn("failed to cache recommendations", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return matches, false, nil
}

// RegenerateAsync enqueues a background regeneration for the user.
func (s *MatchService) RegenerateAsync(userID string) error {
	if _, err := uuid.Parse(userID); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid user id")
	}
	if s.queue == nil {
		return appErrors.Clone(appErrors.ErrInternal, "background queue not configured")
	}
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    "match.generate",
		Payload: userID,
	}
	if err := s.queue.Enqueue(job); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue match generation")
	}
	return nil
}

// HandleGenerateJob adapts GenerateMatches to the queue handler signature.
func (s *MatchService) HandleGenerateJob(ctx context.Context, job jobs.Job) error {
	userID, ok := job.Payload.(string)
	if !ok {
		return appErrors.Clone(appErrors.ErrValidation, "invalid job payload")
	}
	_, err := s.GenerateMatches(ctx, userID)
	return err
}

// DeleteMatch removes a single saved recommendation.
func (s *MatchService) DeleteMatch(ctx context.Context, userID, universityID string) error {
	if _, err := uuid.Parse(userID); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid user id")
	}
	if _, err := uuid.Parse(universityID); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid university id")
	}
	deleted, err := s.matches.Delete(ctx, userID, universityID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete match")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "match not found")
	}
	s.invalidateRecommendations(userID)
	return nil
}

// DeleteAll removes every saved recommendation for the user.
func (s *MatchService) DeleteAll(ctx context.Context, userID string) error {
	if _, err := uuid.Parse(userID); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid user id")
	}
	if _, err := s.matches.DeleteByUser(ctx, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete matches")
	}
	s.invalidateRecommendations(userID)
	return nil
}

func (s *MatchService) invalidateRecommendations(userID string) {
	if !s.cache.Enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.cache.Invalidate(ctx, recommendationsKey(userID)); err != nil {
		s.logger.Warn("failed to invalidate recommendations cache", zap.String("user_id", userID), zap.Error(err))
	}
}

func recommendationsKey(userID string) string {
	return "recommendations:user:" + userID
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/luct-edu/lecture-reporting-service/internal/events"
	"github.com/luct-edu/lecture-reporting-service/internal/metrics"
	"github.com/luct-edu/lecture-reporting-service/internal/models"
	"github.com/luct-edu/lecture-reporting-service/internal/repositories"
	"github.com/luct-edu/lecture-reporting-service/internal/validator"
)

type ratingService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	events    eventEmitter
}

func NewRatingService(
	repo repositories.Repository,
	logger *slog.Logger,
	validator *validator.Validator,
	publisher events.EventPublisher,
	m *metrics.Metrics,
) RatingService {
	return &ratingService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		events:    eventEmitter{publisher: publisher, metrics: m, logger: logger},
	}
}

func (s *ratingService) Create(ctx context.Context, actor Actor, req *RatingRequest) (*models.Rating, error) {
	if actor.Role != models.RoleStudent {
		return nil, NewPermissionError(actor.ID, req.ClassID, "rating", "create", "only students rate classes")
	}
	if errs := s.validator.GetBusinessValidator().Validate(req); len(errs) > 0 {
		return nil, errs
	}

	if _, err := s.repo.Class().GetByID(ctx, nil, req.ClassID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, fieldError("class_id", "does not exist", req.ClassID)
		}
		return nil, fmt.Errorf("failed to get class: %w", err)
	}

	enrolled, err := s.repo.Class().IsEnrolled(ctx, nil, req.ClassID, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}
	if !enrolled {
		return nil, ErrNotEnrolled
	}

	if req.ReportID != nil {
		report, err := s.repo.Report().GetByID(ctx, nil, *req.ReportID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, fieldError("report_id", "does not exist", *req.ReportID)
			}
			return nil, fmt.Errorf("failed to get report: %w", err)
		}
		if report.ClassID != req.ClassID {
			return nil, fieldError("report_id", "does not belong to the class", *req.ReportID)
		}
	}

	exists, err := s.repo.Rating().Exists(ctx, nil, req.ClassID, actor.ID, req.ReportID)
	if err != nil {
		return nil, fmt.Errorf("failed to check rating: %w", err)
	}
	if exists {
		return nil, ErrAlreadyRated
	}

	rating := &models.Rating{
		ClassID:   req.ClassID,
		StudentID: actor.ID,
		ReportID:  req.ReportID,
		Score:     req.Score,
	}
	if req.Comment != nil {
		if c := strings.TrimSpace(*req.Comment); c != "" {
			rating.Comment = &c
		}
	}

	if err := s.repo.Rating().Create(ctx, nil, rating); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrAlreadyRated
		}
		return nil, fmt.Errorf("failed to create rating: %w", err)
	}

	s.events.emit(ctx, events.RatingSubmitted, events.RatingEventData{
		RatingID:  rating.ID,
		ClassID:   rating.ClassID,
		ReportID:  rating.ReportID,
		StudentID: rating.StudentID,
		Score:     rating.Score,
	})

	s.logger.Info("Rating submitted", "rating_id", rating.ID, "class_id", rating.ClassID, "score", rating.Score)
	return rating, nil
}

func (s *ratingService) List(ctx context.Context, actor Actor, params models.ListRatingsParams) (*models.PaginatedResponse, error) {
	page, size, offset := pageParams(params.Page, params.Size)

	ratings, total, err := s.repo.Rating().List(ctx, nil, repositories.RatingFilters{
		Scope:   actor.Scope(),
		ClassID: params.ClassID,
		Limit:   size,
		Offset:  offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}

	return models.NewPaginatedResponse(ratings, total, page, size, len(ratings)), nil
}

func (s *ratingService) Summary(ctx context.Context, actor Actor, classID uint) (*models.RatingSummary, error) {
	class, err := s.repo.Class().GetByID(ctx, nil, classID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrClassNotFound
		}
		return nil, fmt.Errorf("failed to get class: %w", err)
	}

	ok, err := canViewClass(ctx, s.repo, actor, class)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewPermissionError(actor.ID, classID, "class", "view ratings", "class is outside your scope")
	}

	summary, err := s.repo.Rating().Summary(ctx, nil, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize ratings: %w", err)
	}
	return summary, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spark-repository/spark-api/internal/entity"
	commentDto "github.com/spark-repository/spark-api/internal/modules/comment/dto"
	repo "github.com/spark-repository/spark-api/internal/modules/comment/repository"
	notification "github.com/spark-repository/spark-api/internal/modules/notification/service"
	studyRepo "github.com/spark-repository/spark-api/internal/modules/study/repository"
	"github.com/spark-repository/spark-api/pkg/apperror"
	commonDto "github.com/spark-repository/spark-api/pkg/dto"
	"github.com/spark-repository/spark-api/pkg/ratelimit"
	"gorm.io/gorm"
)

const commentAction = "create_comment"

type CommentService interface {
	CreateComment(ctx context.Context, userID, studyID uuid.UUID, input commentDto.CreateCommentInput) (*commonDto.CommentResponse, error)
	GetComments(ctx context.Context, studyID uuid.UUID) ([]commonDto.CommentResponse, error)
	DeleteComment(ctx context.Context, commentID uuid.UUID) error
}

type commentService struct {
	commentRepo  repo.CommentRepository
	studyRepo    studyRepo.StudyRepository
	notifier     notification.Notifier
	redisClient  *redis.Client
	commentLimit time.Duration
}

func NewCommentService(
	commentRepo repo.CommentRepository,
	studyRepo studyRepo.StudyRepository,
	notifier notification.Notifier,
	redisClient *redis.Client,
) CommentService {
	commentLimit := 10 * time.Second
	if raw := os.Getenv("RATE_LIMIT_COMMENT"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			commentLimit = parsed
		}
	}

	return &commentService{
		commentRepo:  commentRepo,
		studyRepo:    studyRepo,
		notifier:     notifier,
		redisClient:  redisClient,
		commentLimit: commentLimit,
	}
}

func (s *commentService) CreateComment(ctx context.Context, userID, studyID uuid.UUID, input commentDto.CreateCommentInput) (*commonDto.CommentResponse, error) {
	study, err := s.findPublishedStudy(ctx, studyID)
	if err != nil {
		return nil, err
	}

	allowed, err := ratelimit.CheckAndSet(ctx, s.redisClient, userID, commentAction, s.commentLimit)
	if err != nil {
		return nil, err
	}
	if !allowed {
		msg := "please wait before commenting again"
		if wait, err := ratelimit.TTL(ctx, s.redisClient, userID, commentAction); err == nil && wait > 0 {
			msg = fmt.Sprintf("please wait %s before commenting again", wait.Round(time.Second))
		}
		return nil, fmt.Errorf("%s: %w", msg, apperror.ErrRateLimitExceeded)
	}

	comment := &entity.Comment{
		StudyID: study.ID,
		UserID:  userID,
		Body:    input.Body,
	}

	var parent *entity.Comment
	if input.ParentID != "" {
		parentID, err := uuid.Parse(input.ParentID)
		if err != nil {
			return nil, fmt.Errorf("invalid parent id format: %w", apperror.ErrBadRequest)
		}

		parent, err = s.commentRepo.FindByID(ctx, parentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("parent comment not found: %w", apperror.ErrNotFound)
			}
			return nil, err
		}
		if parent.StudyID != study.ID {
			return nil, fmt.Errorf("parent comment belongs to another study: %w", apperror.ErrBadRequest)
		}
		// Threads are one level deep: a reply can never be a parent.
		if parent.ParentID != nil {
			return nil, fmt.Errorf("replies to replies are not allowed: %w", apperror.ErrBadRequest)
		}

		comment.ParentID = &parent.ID
	}

	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if study.AuthorID != userID {
			s.notifier.Notify(ctx, study.AuthorID, entity.NotificationComment, &study.ID,
				fmt.Sprintf("New comment on your study %q.", study.Title))
		}
		if parent != nil && parent.UserID != userID && parent.UserID != study.AuthorID {
			s.notifier.Notify(ctx, parent.UserID, entity.NotificationComment, &study.ID,
				"Someone replied to your comment.")
		}
	}

	created, err := s.commentRepo.FindByID(ctx, comment.ID)
	if err != nil {
		return nil, err
	}
	resp := toCommentResponse(created)
	return &resp, nil
}

func (s *commentService) GetComments(ctx context.Context, studyID uuid.UUID) ([]commonDto.CommentResponse, error) {
	if _, err := s.findPublishedStudy(ctx, studyID); err != nil {
		return nil, err
	}

	roots, err := s.commentRepo.FindRootsByStudy(ctx, studyID)
	if err != nil {
		return nil, err
	}
	replies, err := s.commentRepo.FindRepliesByStudy(ctx, studyID)
	if err != nil {
		return nil, err
	}

	byParent := make(map[uuid.UUID][]commonDto.CommentResponse, len(roots))
	for i := range replies {
		parentID := *replies[i].ParentID
		byParent[parentID] = append(byParent[parentID], toCommentResponse(&replies[i]))
	}

	responses := make([]commonDto.CommentResponse, 0, len(roots))
	for i := range roots {
		root := toCommentResponse(&roots[i])
		root.Replies = byParent[roots[i].ID]
		responses = append(responses, root)
	}
	return responses, nil
}

func (s *commentService) DeleteComment(ctx context.Context, commentID uuid.UUID) error {
	if _, err := s.commentRepo.FindByID(ctx, commentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("comment not found: %w", apperror.ErrNotFound)
		}
		return err
	}
	return s.commentRepo.Delete(ctx, commentID)
}

func (s *commentService) findPublishedStudy(ctx context.Context, studyID uuid.UUID) (*entity.Study, error) {
	study, err := s.studyRepo.FindByID(ctx, studyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("study not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	if !study.IsPublished {
		return nil, fmt.Errorf("study not found: %w", apperror.ErrNotFound)
	}
	return study, nil
}

func toCommentResponse(c *entity.Comment) commonDto.CommentResponse {
	resp := commonDto.CommentResponse{
		ID:        c.ID,
		Body:      c.Body,
		ParentID:  c.ParentID,
		CreatedAt: c.CreatedAt,
	}
	if c.User.ID != uuid.Nil {
		resp.Author = &commonDto.AuthorResponse{
			ID:         c.User.ID,
			FullName:   c.User.FullName,
			Department: c.User.Department,
		}
	}
	return resp
}

package service

import (
	"context"

	"github.com/spark-repository/spark-api/internal/entity"
	statRepo "github.com/spark-repository/spark-api/internal/modules/stat/repository"
	userRepo "github.com/spark-repository/spark-api/internal/modules/user/repository"
)

type ReviewStats struct {
	Pending           int64 `json:"pending"`
	Approved          int64 `json:"approved"`
	Rejected          int64 `json:"rejected"`
	RevisionRequested int64 `json:"revision_requested"`
	Published         int64 `json:"published"`
	TotalUsers        int64 `json:"total_users"`
}

type StatService interface {
	GetReviewStats(ctx context.Context) (*ReviewStats, error)
}

type statService struct {
	statRepo statRepo.StatRepository
	userRepo userRepo.UserRepository
}

func NewStatService(statRepo statRepo.StatRepository, userRepo userRepo.UserRepository) StatService {
	return &statService{
		statRepo: statRepo,
		userRepo: userRepo,
	}
}

func (s *statService) GetReviewStats(ctx context.Context) (*ReviewStats, error) {
	stats := &ReviewStats{}

	counts := []struct {
		status string
		dest   *int64
	}{
		{entity.StatusPending, &stats.Pending},
		{entity.StatusApproved, &stats.Approved},
		{entity.StatusRejected, &stats.Rejected},
		{entity.StatusRevisionRequested, &stats.RevisionRequested},
	}
	for _, c := range counts {
		count, err := s.statRepo.CountStudiesByStatus(ctx, c.status)
		if err != nil {
			return nil, err
		}
		*c.dest = count
	}

	published, err := s.statRepo.CountPublishedStudies(ctx)
	if err != nil {
		return nil, err
	}
	stats.Published = published

	users, err := s.userRepo.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	stats.TotalUsers = users

	return stats, nil
}

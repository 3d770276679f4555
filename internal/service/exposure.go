package service

import (
	"context"

	"go.uber.org/zap"

	"hedgeback/internal/exposure"
	"hedgeback/internal/repository"
)

// ExposureService answers exposure queries by recomputing from current
// store contents on every call; nothing is cached or stored.
type ExposureService struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

func (s *ExposureService) Commercial(ctx context.Context) (exposure.CommercialResult, error) {
	orders, err := s.Repo.ListOrders(ctx)
	if err != nil {
		return exposure.CommercialResult{}, err
	}
	linkages, err := s.Repo.ListLinkages(ctx)
	if err != nil {
		return exposure.CommercialResult{}, err
	}
	return exposure.Commercial(orders, linkages)
}

func (s *ExposureService) Global(ctx context.Context) (exposure.GlobalResult, error) {
	orders, err := s.Repo.ListOrders(ctx)
	if err != nil {
		return exposure.GlobalResult{}, err
	}
	contracts, err := s.Repo.ListContracts(ctx)
	if err != nil {
		return exposure.GlobalResult{}, err
	}
	linkages, err := s.Repo.ListLinkages(ctx)
	if err != nil {
		return exposure.GlobalResult{}, err
	}
	return exposure.Global(orders, contracts, linkages)
}

package service

import (
	"context"

	"github.com/naijatax/taxguide/internal/config"
	plandomain "github.com/naijatax/taxguide/internal/plan/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service struct {
	log   *zap.Logger
	plans *config.PlanCatalogHolder
}

type ServiceParam struct {
	fx.In

	Log   *zap.Logger
	Plans *config.PlanCatalogHolder
}

func NewService(p ServiceParam) plandomain.Service {
	return &Service{
		log:   p.Log.Named("plan.service"),
		plans: p.Plans,
	}
}

func (s *Service) List(ctx context.Context) []plandomain.PlanView {
	return s.views(func(config.PlanSpec) bool { return true })
}

func (s *Service) Purchasable(ctx context.Context) []plandomain.PlanView {
	return s.views(func(p config.PlanSpec) bool { return !p.Trial })
}

func (s *Service) Get(ctx context.Context, code string) (plandomain.PlanView, error) {
	spec, ok := s.plans.Plan(code)
	if !ok {
		return plandomain.PlanView{}, plandomain.ErrUnknownPlan
	}
	return view(spec), nil
}

func (s *Service) views(keep func(config.PlanSpec) bool) []plandomain.PlanView {
	catalog := s.plans.Catalog()
	out := make([]plandomain.PlanView, 0, len(catalog.Plans))
	for _, p := range catalog.Plans {
		if keep(p) {
			out = append(out, view(p))
		}
	}
	return out
}

func view(p config.PlanSpec) plandomain.PlanView {
	return plandomain.PlanView{
		Code:            p.Code,
		Name:            p.Name,
		PriceKobo:       p.PriceKobo,
		DurationDays:    p.DurationDays,
		AICredits:       p.AICredits,
		DailyCacheLimit: p.DailyCacheLimit,
		Trial:           p.Trial,
	}
}

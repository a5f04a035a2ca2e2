package services

import (
	"context"

	"github.com/patronlabs/patron-gateway/internal/model"
	"github.com/patronlabs/patron-gateway/internal/repository"
	"github.com/patronlabs/patron-gateway/pkg/apperr"
	"github.com/pkg/errors"
)

type SuggestionClient interface {
	Improve(ctx context.Context, field, current, guidance string) (string, error)
}

// ImproveService produces LLM rewrites for campaign name and description.
type ImproveService struct {
	campaignRepo CampaignDirectory
	llm          SuggestionClient
}

func NewImproveService(campaignRepo CampaignDirectory, llm SuggestionClient) *ImproveService {
	return &ImproveService{
		campaignRepo: campaignRepo,
		llm:          llm,
	}
}

func (s *ImproveService) Improve(ctx context.Context, p model.ImproveRequest) (*model.ImproveResult, error) {
	if err := p.Validate(); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	current, err := s.currentValue(ctx, p)
	if err != nil {
		return nil, err
	}

	suggestion, err := s.llm.Improve(ctx, string(p.Field), current, p.Context)
	if err != nil {
		return nil, apperr.Internal("suggestion generation failed", err)
	}
	if suggestion == "" {
		return nil, apperr.Internal("suggestion generation returned nothing", nil)
	}

	// The stored column caps the field; a longer suggestion would be
	// rejected on save anyway, so trim it here.
	runes := []rune(suggestion)
	if max := p.Field.MaxLength(); len(runes) > max {
		suggestion = string(runes[:max])
	}

	return &model.ImproveResult{
		Field:      p.Field,
		Suggestion: suggestion,
	}, nil
}

func (s *ImproveService) currentValue(ctx context.Context, p model.ImproveRequest) (string, error) {
	if p.CampaignID == nil {
		return *p.CurrentValue, nil
	}
	campaign, err := s.campaignRepo.GetByID(ctx, *p.CampaignID)
	if err != nil {
		if errors.Is(err, repository.ErrCampaignNotFound) {
			return "", apperr.NotFound("campaign not found")
		}
		return "", apperr.Internal("failed to load campaign", err)
	}
	if p.Field == model.ImproveFieldName {
		return campaign.Name, nil
	}
	return campaign.Description, nil
}

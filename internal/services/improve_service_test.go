package services

import (
	"context"
	"strings"
	"testing"

	"github.com/patronlabs/patron-gateway/internal/model"
	"github.com/patronlabs/patron-gateway/internal/repository"
	"github.com/patronlabs/patron-gateway/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSuggestionClient struct {
	mock.Mock
}

func (m *MockSuggestionClient) Improve(ctx context.Context, field, current, guidance string) (string, error) {
	args := m.Called(ctx, field, current, guidance)
	return args.String(0), args.Error(1)
}

func TestImproveService_Improve(t *testing.T) {
	ctx := context.Background()

	t.Run("rewrites a stored campaign description", func(t *testing.T) {
		campaigns := new(MockCampaignDirectory)
		llm := new(MockSuggestionClient)
		service := NewImproveService(campaigns, llm)

		campaigns.On("GetByID", ctx, int64(7)).
			Return(&model.Campaign{ID: 7, Name: "Lab", Description: "old text"}, nil)
		llm.On("Improve", ctx, "description", "old text", "make it warmer").
			Return("A community lab for everyone.", nil)

		campaignID := int64(7)
		result, err := service.Improve(ctx, model.ImproveRequest{
			CampaignID: &campaignID,
			Field:      model.ImproveFieldDescription,
			Context:    "make it warmer",
		})
		require.NoError(t, err)
		assert.Equal(t, model.ImproveFieldDescription, result.Field)
		assert.Equal(t, "A community lab for everyone.", result.Suggestion)
	})

	t.Run("rewrites an unsaved draft", func(t *testing.T) {
		llm := new(MockSuggestionClient)
		service := NewImproveService(new(MockCampaignDirectory), llm)

		llm.On("Improve", ctx, "name", "my project", "shorter").Return("Lab One", nil)

		draft := "my project"
		result, err := service.Improve(ctx, model.ImproveRequest{
			Field:        model.ImproveFieldName,
			Context:      "shorter",
			CurrentValue: &draft,
		})
		require.NoError(t, err)
		assert.Equal(t, "Lab One", result.Suggestion)
	})

	t.Run("clamps suggestions to the field limit", func(t *testing.T) {
		llm := new(MockSuggestionClient)
		service := NewImproveService(new(MockCampaignDirectory), llm)

		llm.On("Improve", ctx, "name", "x", "longer").Return(strings.Repeat("n", 150), nil)

		draft := "x"
		result, err := service.Improve(ctx, model.ImproveRequest{
			Field:        model.ImproveFieldName,
			Context:      "longer",
			CurrentValue: &draft,
		})
		require.NoError(t, err)
		assert.Len(t, result.Suggestion, model.ImproveFieldName.MaxLength())
	})

	t.Run("unknown campaign is not found", func(t *testing.T) {
		campaigns := new(MockCampaignDirectory)
		service := NewImproveService(campaigns, new(MockSuggestionClient))

		campaigns.On("GetByID", ctx, int64(9)).Return(nil, repository.ErrCampaignNotFound)

		campaignID := int64(9)
		_, err := service.Improve(ctx, model.ImproveRequest{
			CampaignID: &campaignID,
			Field:      model.ImproveFieldName,
			Context:    "shorter",
		})
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})

	t.Run("requires a field target", func(t *testing.T) {
		service := NewImproveService(new(MockCampaignDirectory), new(MockSuggestionClient))

		_, err := service.Improve(ctx, model.ImproveRequest{Field: "tagline", Context: "x"})
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})
}

package model

import "errors"

// ImproveField is a campaign text field the suggestion service can rewrite.
type ImproveField string

const (
	ImproveFieldName        ImproveField = "name"
	ImproveFieldDescription ImproveField = "description"
)

// MaxLength bounds the suggested replacement to the field's storage limit.
func (f ImproveField) MaxLength() int {
	if f == ImproveFieldName {
		return 100
	}
	return 256
}

// ImproveRequest asks for an LLM-suggested rewrite of one campaign field.
// Either CampaignID (take the current value from the stored campaign) or
// CurrentValue (draft not yet saved) must be present.
type ImproveRequest struct {
	CampaignID   *int64       `json:"campaign_id,omitempty"`
	Field        ImproveField `json:"field"`
	Context      string       `json:"context"`
	CurrentValue *string      `json:"current_value,omitempty"`
}

func (p ImproveRequest) Validate() error {
	if p.Field != ImproveFieldName && p.Field != ImproveFieldDescription {
		return errors.New("field must be name or description")
	}
	if p.Context == "" {
		return errors.New("context is required")
	}
	if p.CampaignID == nil && (p.CurrentValue == nil || *p.CurrentValue == "") {
		return errors.New("campaign_id or current_value is required")
	}
	return nil
}

type ImproveResult struct {
	Field      ImproveField `json:"field"`
	Suggestion string       `json:"suggestion"`
}

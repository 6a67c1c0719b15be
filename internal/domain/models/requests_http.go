package models

// Requests for the public HTTP endpoints. Defined in domain for consistency and reuse.

type TeaserRequest struct {
	Limit int `query:"limit" json:"limit" default:"10" validate:"gte=1,lte=50"`
}

type StreamRequest struct {
	Mode    string `query:"mode" json:"mode" default:"prematch" validate:"oneof=prematch live"`
	EventID string `query:"event_id" json:"event_id"`
	Limit   int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
	Model   string `query:"model" json:"model"` // optional named EV model
}

package dto

const (
	HealthUp       = "up"
	HealthDown     = "down"
	HealthDisabled = "disabled"
)

type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

package dto

type DecideInput struct {
	Status string `json:"status" binding:"required,oneof=approved rejected revision_requested"`
	Notes  string `json:"notes" binding:"max=2000"`
}

package dto

type CreateCommentInput struct {
	Body     string `json:"body" binding:"required,min=3,max=2000"`
	ParentID string `json:"parent_id" binding:"omitempty,uuid"`
}

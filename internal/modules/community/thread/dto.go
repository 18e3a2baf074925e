package thread

import (
	"time"

	"github.com/app-prenava/nuri-backend-web-sub000/internal/models"
)

type CreateThreadDTO struct {
	Title   string `json:"title"   binding:"required,max=255"`
	Content string `json:"content" binding:"required"`
}

type threadResponse struct {
	ID         uint      `json:"id"`
	UserID     uint      `json:"user_id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Views      int64     `json:"views"`
	LikesCount int64     `json:"likes_count"`
	Liked      bool      `json:"liked"`
	CreatedAt  time.Time `json:"created_at"`
}

func toResponse(t *models.ThreadModel) threadResponse {
	return threadResponse{
		ID:         t.ID,
		UserID:     t.UserID,
		Title:      t.Title,
		Content:    t.Content,
		Views:      t.Views,
		LikesCount: t.LikesCount,
		CreatedAt:  t.CreatedAt,
	}
}

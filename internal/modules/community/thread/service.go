package thread

import (
	"context"
	"errors"

	"github.com/app-prenava/nuri-backend-web-sub000/internal/models"
	"github.com/app-prenava/nuri-backend-web-sub000/internal/pkg/pagination"
	"github.com/app-prenava/nuri-backend-web-sub000/internal/pkg/response"
	"gorm.io/gorm"
)

var ErrNotOwner = errors.New("not the thread author")

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) Create(userID uint, dto *CreateThreadDTO) (*models.ThreadModel, error) {
	t := models.ThreadModel{
		UserID:  userID,
		Title:   dto.Title,
		Content: dto.Content,
	}
	return &t, s.db.Create(&t).Error
}

func (s *Service) List(q pagination.Query) ([]models.ThreadModel, response.Pagination, error) {
	var threads []models.ThreadModel
	query := s.db.Model(&models.ThreadModel{}).Order("created_at DESC")
	pag, err := pagination.Paginate(query, q, &threads)
	return threads, pag, err
}

func (s *Service) GetByID(id uint) (*models.ThreadModel, error) {
	var t models.ThreadModel
	if err := s.db.First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// Delete removes a thread. Only the author or an admin may delete.
func (s *Service) Delete(id, requesterID uint, isAdmin bool) error {
	var t models.ThreadModel
	if err := s.db.Select("id, user_id").First(&t, "id = ?", id).Error; err != nil {
		return err
	}
	if !isAdmin && t.UserID != requesterID {
		return ErrNotOwner
	}
	return s.db.Delete(&models.ThreadModel{}, "id = ?", id).Error
}

// SetThreadViews is the counter write-through target. The views column is
// monotonic, so the update is guarded: a stale cache value (e.g. after a
// Redis restart) can never regress the durable count.
func (s *Service) SetThreadViews(ctx context.Context, threadID uint, views int64) error {
	return s.db.WithContext(ctx).Model(&models.ThreadModel{}).
		Where("id = ? AND views < ?", threadID, views).
		Update("views", views).Error
}

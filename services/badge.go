package services

import (
	"context"
	"fmt"
	"mime/multipart"

	"school-progression-service/models"
	"school-progression-service/repository"
	"school-progression-service/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BadgeService stores and serves badges. Earning decisions happen outside the
// engine (admin tools, compliance workflows); this only records the results.
type BadgeService struct {
	badges repository.BadgeRepo
	log    *zap.Logger
}

func NewBadgeService(badges repository.BadgeRepo, log *zap.Logger) *BadgeService {
	return &BadgeService{badges: badges, log: log}
}

func (s *BadgeService) ListUserBadges(ctx context.Context, externalUserID string) ([]models.BadgeView, error) {
	return s.badges.ListByUser(ctx, externalUserID)
}

// CreateType registers a badge type; the icon (optional) is uploaded to R2
// and its public URL stored on the row.
func (s *BadgeService) CreateType(ctx context.Context, badgeType *models.BadgeType, icon *multipart.FileHeader) (*models.BadgeType, error) {
	if icon != nil {
		key := fmt.Sprintf("badges/%s%s", uuid.NewString(), utils.FileExt(icon.Filename))
		url, err := utils.UploadFileToR2(icon, key)
		if err != nil {
			return nil, fmt.Errorf("upload badge icon: %w", err)
		}
		badgeType.IconURL = url
	}
	if err := s.badges.CreateType(ctx, badgeType); err != nil {
		return nil, err
	}
	s.log.Info("badge type created", zap.String("code", badgeType.Code))
	return badgeType, nil
}

// Award grants a badge type (by code) to a user.
func (s *BadgeService) Award(ctx context.Context, externalUserID, code, metadata string) (*models.UserBadge, error) {
	badgeType, err := s.badges.GetTypeByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("badge type %s: %w", code, err)
	}
	badge := &models.UserBadge{
		ExternalUserID: externalUserID,
		BadgeTypeID:    badgeType.ID,
		Metadata:       metadata,
	}
	if err := s.badges.Award(ctx, badge); err != nil {
		return nil, err
	}
	s.log.Info("badge awarded",
		zap.String("user_id", externalUserID),
		zap.String("code", code))
	return badge, nil
}

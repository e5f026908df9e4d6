package issues

import (
	"context"
	"fmt"
	"time"

	"github.com/CampusCare/CC-Backend/internal/db"
	"github.com/CampusCare/CC-Backend/internal/middleware"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStore persists issues and points through the shared gorm connection.
type GormStore struct{}

func (GormStore) CreateIssue(ctx context.Context, issue *Issue) error {
	if err := db.DB.WithContext(ctx).Create(issue).Error; err != nil {
		return fmt.Errorf("insert issue: %w", err)
	}
	return nil
}

func (GormStore) GetIssue(ctx context.Context, id uuid.UUID) (*Issue, error) {
	var issue Issue
	if err := db.DB.WithContext(ctx).First(&issue, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &issue, nil
}

// ListIssues returns issues newest first. An empty reporterID lists all
// reporters; an empty status lists all statuses.
func (GormStore) ListIssues(ctx context.Context, reporterID, status string) ([]Issue, error) {
	query := db.DB.WithContext(ctx).Order("created_at DESC")
	if reporterID != "" {
		query = query.Where("reporter_id = ?", reporterID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var list []Issue
	if err := query.Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	return list, nil
}

func (GormStore) UpdateIssueStatus(ctx context.Context, id uuid.UUID, status, comment, resolutionPhotoURL string) error {
	updates := map[string]interface{}{"status": status}
	if comment != "" {
		updates["resolution_comment"] = comment
	}
	if resolutionPhotoURL != "" {
		updates["resolution_photo_url"] = resolutionPhotoURL
	}
	if status == StatusResolved {
		// Sticky: survives a later reopen so the first resolution stays
		// on record.
		updates["resolved_at"] = gorm.Expr("COALESCE(resolved_at, ?)", time.Now())
	}

	result := db.DB.WithContext(ctx).Model(&Issue{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("update status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// IncrementPoints applies an atomic in-database increment. The points
// counter is the one resource shared across sessions; read-modify-write
// here would lose updates under concurrent resolutions.
func (GormStore) IncrementPoints(ctx context.Context, userID string, delta int) error {
	result := db.DB.WithContext(ctx).Exec(
		`UPDATE app_auth.users SET points = points + ? WHERE user_id = ?`, delta, userID)
	if result.Error != nil {
		return fmt.Errorf("increment points: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (GormStore) UserRole(ctx context.Context, userID string) (string, error) {
	var user middleware.User
	if err := db.DB.WithContext(ctx).First(&user, "user_id = ?", userID).Error; err != nil {
		return "", err
	}
	return user.Role, nil
}

package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/noah-isme/quizhub-api/internal/models"
	appErrors "github.com/noah-isme/quizhub-api/pkg/errors"
)

type groupReader interface {
	FindByID(ctx context.Context, id string) (*models.Group, error)
}

func loadGroup(ctx context.Context, groups groupReader, groupID string) (*models.Group, error) {
	group, err := groups.FindByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, internalError(err, "failed to load group")
	}
	return group, nil
}

// loadOwnedGroup returns the group when mentorID owns it.
func loadOwnedGroup(ctx context.Context, groups groupReader, groupID, mentorID string) (*models.Group, error) {
	group, err := loadGroup(ctx, groups, groupID)
	if err != nil {
		return nil, err
	}
	if group.MentorID != mentorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you do not manage this group")
	}
	return group, nil
}

func internalError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, application *ProspectiveTenant) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ProspectiveTenant, error)
	FindLive(ctx context.Context, db *gorm.DB, unitID, tenantID snowflake.ID) (*ProspectiveTenant, error)
	FindApprovedByUnit(ctx context.Context, db *gorm.DB, unitID snowflake.ID) (*ProspectiveTenant, error)
	ListByUnit(ctx context.Context, db *gorm.DB, unitID snowflake.ID) ([]ProspectiveTenant, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status ApplicationStatus) error
}

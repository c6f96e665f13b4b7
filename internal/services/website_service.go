package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Wikid82/warden/internal/models"
)

var ErrWebsiteNotFound = errors.New("website not found")

// WebsiteService maintains the registry of unique website domains.
type WebsiteService struct {
	db *gorm.DB
}

func NewWebsiteService(db *gorm.DB) *WebsiteService {
	return &WebsiteService{db: db}
}

// ResolveOrCreate returns the website for domain, inserting it if needed.
// Concurrent callers with the same domain always end up with one row.
func (s *WebsiteService) ResolveOrCreate(ctx context.Context, domain string) (*models.Website, error) {
	var site *models.Website
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		site, _, err = resolveOrCreateWebsite(tx, domain)
		return err
	})
	if err != nil {
		return nil, err
	}
	return site, nil
}

// GetByDomain looks up a website by its exact domain string.
func (s *WebsiteService) GetByDomain(ctx context.Context, domain string) (*models.Website, error) {
	var site models.Website
	if err := s.db.WithContext(ctx).Where("domain = ?", domain).First(&site).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWebsiteNotFound
		}
		return nil, err
	}
	return &site, nil
}

// Count returns the number of registered websites.
func (s *WebsiteService) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Website{}).Count(&n).Error
	return n, err
}

// resolveOrCreateWebsite relies on the unique index over domain: the insert
// is a no-op when the row exists, and the follow-up read sees whichever
// insert won. An existing row is never touched.
func resolveOrCreateWebsite(tx *gorm.DB, domain string) (*models.Website, bool, error) {
	site := models.Website{Domain: domain}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "domain"}},
		DoNothing: true,
	}).Create(&site)
	if res.Error != nil {
		return nil, false, fmt.Errorf("insert website: %w", res.Error)
	}
	created := res.RowsAffected == 1

	if !created || site.ID == 0 {
		if err := tx.Where("domain = ?", domain).First(&site).Error; err != nil {
			return nil, false, fmt.Errorf("load website: %w", err)
		}
	}
	return &site, created, nil
}

package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"rentiful/server/internal/models"
)

// GetTenant loads a tenant and the properties they marked as favorite
func (d *Database) GetTenant(ctx context.Context, cognitoID string) (*models.Tenant, error) {
	var tenant models.Tenant
	err := d.db.WithContext(ctx).
		Preload("Favorites").
		Where("cognito_id = ?", cognitoID).
		First(&tenant).Error
	if err != nil {
		return nil, classify(err)
	}
	return &tenant, nil
}

func (d *Database) CreateTenant(ctx context.Context, tenant models.Tenant) (*models.Tenant, error) {
	if err := d.db.WithContext(ctx).Create(&tenant).Error; err != nil {
		return nil, classify(err)
	}
	return &tenant, nil
}

// UpdateTenant overwrites the contact details of an existing tenant
func (d *Database) UpdateTenant(ctx context.Context, cognitoID string, name, email, phone string) (*models.Tenant, error) {
	var tenant models.Tenant
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cognito_id = ?", cognitoID).First(&tenant).Error; err != nil {
			return err
		}
		tenant.Name, tenant.Email, tenant.PhoneNumber = name, email, phone
		return tx.Model(&tenant).Select("name", "email", "phone_number").Updates(&tenant).Error
	})
	if err != nil {
		return nil, classify(err)
	}
	return &tenant, nil
}

// AddFavorite links a property to a tenant's favorites and returns the tenant
// with the refreshed favorites list. Adding an existing favorite is a no-op.
func (d *Database) AddFavorite(ctx context.Context, cognitoID string, propertyID int64) (*models.Tenant, error) {
	return d.changeFavorites(ctx, cognitoID, propertyID, func(assoc *gorm.Association, p *models.Property) error {
		return assoc.Append(p)
	})
}

func (d *Database) RemoveFavorite(ctx context.Context, cognitoID string, propertyID int64) (*models.Tenant, error) {
	return d.changeFavorites(ctx, cognitoID, propertyID, func(assoc *gorm.Association, p *models.Property) error {
		return assoc.Delete(p)
	})
}

func (d *Database) changeFavorites(ctx context.Context, cognitoID string, propertyID int64, change func(*gorm.Association, *models.Property) error) (*models.Tenant, error) {
	var tenant models.Tenant
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cognito_id = ?", cognitoID).First(&tenant).Error; err != nil {
			return err
		}
		var property models.Property
		if err := tx.Select("id").First(&property, propertyID).Error; err != nil {
			return err
		}
		if err := change(tx.Model(&tenant).Omit("Favorites.*").Association("Favorites"), &property); err != nil {
			return fmt.Errorf("failed to update favorites: %w", err)
		}
		return tx.Preload("Favorites").First(&tenant, tenant.ID).Error
	})
	if err != nil {
		return nil, classify(err)
	}
	return &tenant, nil
}

// CurrentResidences returns the properties a tenant currently lives in
func (d *Database) CurrentResidences(ctx context.Context, cognitoID string) ([]models.Property, error) {
	var properties []models.Property
	err := d.db.WithContext(ctx).
		Preload("Location").
		Joins("JOIN tenant_properties tp ON tp.property_id = properties.id").
		Joins("JOIN tenants t ON t.id = tp.tenant_id").
		Where("t.cognito_id = ?", cognitoID).
		Find(&properties).Error
	if err != nil {
		return nil, classify(err)
	}
	if err := d.attachCoordinates(ctx, properties); err != nil {
		return nil, err
	}
	return properties, nil
}

func (d *Database) GetManager(ctx context.Context, cognitoID string) (*models.Manager, error) {
	var manager models.Manager
	if err := d.db.WithContext(ctx).Where("cognito_id = ?", cognitoID).First(&manager).Error; err != nil {
		return nil, classify(err)
	}
	return &manager, nil
}

func (d *Database) CreateManager(ctx context.Context, manager models.Manager) (*models.Manager, error) {
	if err := d.db.WithContext(ctx).Create(&manager).Error; err != nil {
		return nil, classify(err)
	}
	return &manager, nil
}

func (d *Database) UpdateManager(ctx context.Context, cognitoID string, name, email, phone string) (*models.Manager, error) {
	var manager models.Manager
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cognito_id = ?", cognitoID).First(&manager).Error; err != nil {
			return err
		}
		manager.Name, manager.Email, manager.PhoneNumber = name, email, phone
		return tx.Model(&manager).Select("name", "email", "phone_number").Updates(&manager).Error
	})
	if err != nil {
		return nil, classify(err)
	}
	return &manager, nil
}

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"rentiful/server/internal/models"
)

var (
	// ErrInvalidTransition is returned when an application leaves a final state
	ErrInvalidTransition = errors.New("application status cannot change")
	ErrNotOwner          = errors.New("property is managed by another account")
)

// ListLeases returns the leases visible to a user: the tenant's own leases,
// or every lease on a manager's properties.
func (d *Database) ListLeases(ctx context.Context, cognitoID, role string) ([]models.Lease, error) {
	q := d.db.WithContext(ctx).
		Preload("Property").
		Preload("Tenant")

	switch role {
	case models.RoleTenant:
		q = q.Where("leases.tenant_cognito_id = ?", cognitoID)
	case models.RoleManager:
		q = q.Joins("JOIN properties mp ON mp.id = leases.property_id").
			Where("mp.manager_cognito_id = ?", cognitoID)
	default:
		return nil, fmt.Errorf("unknown user type %q", role)
	}

	var leases []models.Lease
	if err := q.Order("leases.start_date DESC").Find(&leases).Error; err != nil {
		return nil, classify(err)
	}
	return leases, nil
}

func (d *Database) PropertyLeases(ctx context.Context, propertyID int64) ([]models.Lease, error) {
	var leases []models.Lease
	err := d.db.WithContext(ctx).
		Preload("Tenant").
		Where("property_id = ?", propertyID).
		Order("start_date DESC").
		Find(&leases).Error
	if err != nil {
		return nil, classify(err)
	}
	return leases, nil
}

func (d *Database) LeasePayments(ctx context.Context, leaseID int64) ([]models.Payment, error) {
	var payments []models.Payment
	err := d.db.WithContext(ctx).
		Where("lease_id = ?", leaseID).
		Order("due_date ASC").
		Find(&payments).Error
	if err != nil {
		return nil, classify(err)
	}
	return payments, nil
}

// CreateApplication stores a pending application for an existing property
func (d *Database) CreateApplication(ctx context.Context, app models.Application) (*models.Application, error) {
	app.Status = models.ApplicationPending
	if app.ApplicationDate.IsZero() {
		app.ApplicationDate = time.Now().UTC()
	}
	app.LeaseID = nil

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var property models.Property
		if err := tx.Select("id").First(&property, app.PropertyID).Error; err != nil {
			return err
		}
		return tx.Omit("Property", "Tenant", "Lease").Create(&app).Error
	})
	if err != nil {
		return nil, classify(err)
	}
	return &app, nil
}

// ListApplications returns the applications visible to a user: the tenant's
// own applications, or every application on a manager's properties.
func (d *Database) ListApplications(ctx context.Context, cognitoID, role string) ([]models.Application, error) {
	q := d.db.WithContext(ctx).
		Preload("Property").
		Preload("Tenant").
		Preload("Lease")

	switch role {
	case models.RoleTenant:
		q = q.Where("applications.tenant_cognito_id = ?", cognitoID)
	case models.RoleManager:
		q = q.Joins("JOIN properties mp ON mp.id = applications.property_id").
			Where("mp.manager_cognito_id = ?", cognitoID)
	default:
		return nil, fmt.Errorf("unknown user type %q", role)
	}

	var apps []models.Application
	if err := q.Order("applications.application_date DESC").Find(&apps).Error; err != nil {
		return nil, classify(err)
	}
	return apps, nil
}

// UpdateApplicationStatus moves a pending application to a final status.
// Approval creates a one year lease at the property's rent and records the
// tenant as a resident, all in the same transaction. Only the manager of the
// property may decide on an application.
func (d *Database) UpdateApplicationStatus(ctx context.Context, id int64, managerCognitoID string, status models.ApplicationStatus) (*models.Application, error) {
	var app models.Application
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Property").First(&app, id).Error; err != nil {
			return err
		}
		if app.Property == nil || app.Property.ManagerCognitoID != managerCognitoID {
			return ErrNotOwner
		}
		if app.Status != models.ApplicationPending && app.Status != status {
			return ErrInvalidTransition
		}
		if app.Status == status {
			return nil
		}

		if status == models.ApplicationApproved {
			start := time.Now().UTC()
			lease := models.Lease{
				StartDate:       start,
				EndDate:         start.AddDate(1, 0, 0),
				Rent:            app.Property.PricePerMonth,
				Deposit:         app.Property.SecurityDeposit,
				PropertyID:      app.PropertyID,
				TenantCognitoID: app.TenantCognitoID,
			}
			if err := tx.Omit("Property", "Tenant", "Payments").Create(&lease).Error; err != nil {
				return fmt.Errorf("failed to create lease: %w", err)
			}
			app.LeaseID = &lease.ID

			var tenant models.Tenant
			if err := tx.Where("cognito_id = ?", app.TenantCognitoID).First(&tenant).Error; err != nil {
				return err
			}
			residence := models.Property{ID: app.PropertyID}
			if err := tx.Model(&tenant).Omit("Properties.*").Association("Properties").Append(&residence); err != nil {
				return fmt.Errorf("failed to link tenant to property: %w", err)
			}
		}

		app.Status = status
		return tx.Model(&app).Select("status", "lease_id").Updates(&app).Error
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrNotOwner) {
			return nil, err
		}
		return nil, classify(err)
	}

	if err := d.db.WithContext(ctx).Preload("Property").Preload("Tenant").Preload("Lease").First(&app, id).Error; err != nil {
		return nil, classify(err)
	}
	return &app, nil
}

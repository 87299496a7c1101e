package models

import "time"

type Lease struct {
	ID              int64     `json:"id" gorm:"primaryKey"`
	StartDate       time.Time `json:"startDate" gorm:"not null"`
	EndDate         time.Time `json:"endDate" gorm:"not null;index"`
	Rent            float64   `json:"rent" gorm:"not null"`
	Deposit         float64   `json:"deposit" gorm:"not null"`
	PropertyID      int64     `json:"propertyId" gorm:"not null;index"`
	TenantCognitoID string    `json:"tenantCognitoId" gorm:"not null;index"`

	Property *Property `json:"property,omitempty" gorm:"foreignKey:PropertyID"`
	Tenant   *Tenant   `json:"tenant,omitempty" gorm:"foreignKey:TenantCognitoID;references:CognitoID"`
	Payments []Payment `json:"payments,omitempty" gorm:"foreignKey:LeaseID"`
}

type Payment struct {
	ID            int64         `json:"id" gorm:"primaryKey"`
	AmountDue     float64       `json:"amountDue" gorm:"not null"`
	AmountPaid    float64       `json:"amountPaid" gorm:"not null"`
	DueDate       time.Time     `json:"dueDate" gorm:"not null"`
	PaymentDate   time.Time     `json:"paymentDate"`
	PaymentStatus PaymentStatus `json:"paymentStatus" gorm:"type:text;not null"`
	LeaseID       int64         `json:"leaseId" gorm:"not null;index"`
}

type Application struct {
	ID              int64             `json:"id" gorm:"primaryKey"`
	ApplicationDate time.Time         `json:"applicationDate" gorm:"not null"`
	Status          ApplicationStatus `json:"status" gorm:"type:text;not null"`
	PropertyID      int64             `json:"propertyId" gorm:"not null;index"`
	TenantCognitoID string            `json:"tenantCognitoId" gorm:"not null;index"`
	Name            string            `json:"name" gorm:"not null"`
	Email           string            `json:"email" gorm:"not null"`
	PhoneNumber     string            `json:"phoneNumber" gorm:"not null"`
	Message         string            `json:"message"`
	LeaseID         *int64            `json:"leaseId" gorm:"uniqueIndex"`

	Property *Property `json:"property,omitempty" gorm:"foreignKey:PropertyID"`
	Tenant   *Tenant   `json:"tenant,omitempty" gorm:"foreignKey:TenantCognitoID;references:CognitoID"`
	Lease    *Lease    `json:"lease,omitempty" gorm:"foreignKey:LeaseID"`
}

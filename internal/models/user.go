package models

type Manager struct {
	ID          int64  `json:"id" gorm:"primaryKey"`
	CognitoID   string `json:"cognitoId" gorm:"uniqueIndex;not null"`
	Name        string `json:"name" gorm:"not null"`
	Email       string `json:"email" gorm:"not null"`
	PhoneNumber string `json:"phoneNumber"`

	ManagedProperties []Property `json:"managedProperties,omitempty" gorm:"foreignKey:ManagerCognitoID;references:CognitoID"`
}

type Tenant struct {
	ID          int64  `json:"id" gorm:"primaryKey"`
	CognitoID   string `json:"cognitoId" gorm:"uniqueIndex;not null"`
	Name        string `json:"name" gorm:"not null"`
	Email       string `json:"email" gorm:"not null"`
	PhoneNumber string `json:"phoneNumber"`

	Properties   []Property    `json:"properties,omitempty" gorm:"many2many:tenant_properties;"`
	Favorites    []Property    `json:"favorites,omitempty" gorm:"many2many:tenant_favorites;"`
	Applications []Application `json:"applications,omitempty" gorm:"foreignKey:TenantCognitoID;references:CognitoID"`
	Leases       []Lease       `json:"leases,omitempty" gorm:"foreignKey:TenantCognitoID;references:CognitoID"`
}

// Role values carried in the custom:role token claim
const (
	RoleManager = "manager"
	RoleTenant  = "tenant"
)

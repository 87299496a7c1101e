package api

import (
	"fmt"
	"mime/multipart"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"rentiful/server/internal/geocoding"
	"rentiful/server/internal/models"
)

var registerValidators sync.Once

// RegisterValidators adds the enum validators used by the request forms to
// gin's validator engine
func RegisterValidators() error {
	var err error
	registerValidators.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}
		rules := map[string]validator.Func{
			"propertytype": func(fl validator.FieldLevel) bool {
				_, err := models.ParsePropertyType(fl.Field().String())
				return err == nil
			},
			"amenitylist": func(fl validator.FieldLevel) bool {
				_, err := parseList(fl.Field().String(), models.ParseAmenity)
				return err == nil
			},
			"highlightlist": func(fl validator.FieldLevel) bool {
				_, err := parseList(fl.Field().String(), models.ParseHighlight)
				return err == nil
			},
			"applicationstatus": func(fl validator.FieldLevel) bool {
				_, err := models.ParseApplicationStatus(fl.Field().String())
				return err == nil
			},
		}
		for tag, fn := range rules {
			if err = v.RegisterValidation(tag, fn); err != nil {
				return
			}
		}
	})
	return err
}

// createPropertyForm is the multipart body of POST /properties. Numbers are
// coerced by the form binder; booleans follow the "true" string convention of
// the web client, anything else is false.
type createPropertyForm struct {
	Name              string  `form:"name" binding:"required"`
	Description       string  `form:"description"`
	PricePerMonth     float64 `form:"pricePerMonth" binding:"required,gt=0"`
	SecurityDeposit   float64 `form:"securityDeposit" binding:"gte=0"`
	ApplicationFee    float64 `form:"applicationFee" binding:"gte=0"`
	IsPetsAllowed     string  `form:"isPetsAllowed"`
	IsParkingIncluded string  `form:"isParkingIncluded"`
	Beds              int     `form:"beds" binding:"gte=0"`
	Baths             float64 `form:"baths" binding:"gte=0"`
	SquareFeet        int     `form:"squareFeet" binding:"gte=0"`
	PropertyType      string  `form:"propertyType" binding:"required,propertytype"`
	Amenities         string  `form:"amenities" binding:"omitempty,amenitylist"`
	Highlights        string  `form:"highlights" binding:"omitempty,highlightlist"`

	Address          string `form:"address" binding:"required"`
	City             string `form:"city" binding:"required"`
	State            string `form:"state" binding:"required"`
	Country          string `form:"country" binding:"required"`
	PostalCode       string `form:"postalCode" binding:"required"`
	ManagerCognitoID string `form:"managerCognitoId"`
}

func (f createPropertyForm) property() models.Property {
	amenities, _ := parseList(f.Amenities, models.ParseAmenity)
	highlights, _ := parseList(f.Highlights, models.ParseHighlight)
	return models.Property{
		Name:              f.Name,
		Description:       f.Description,
		PricePerMonth:     f.PricePerMonth,
		SecurityDeposit:   f.SecurityDeposit,
		ApplicationFee:    f.ApplicationFee,
		IsPetsAllowed:     f.IsPetsAllowed == "true",
		IsParkingIncluded: f.IsParkingIncluded == "true",
		Beds:              f.Beds,
		Baths:             f.Baths,
		SquareFeet:        f.SquareFeet,
		PropertyType:      models.PropertyType(f.PropertyType),
		Amenities:         toStrings(amenities),
		Highlights:        toStrings(highlights),
		ManagerCognitoID:  f.ManagerCognitoID,
	}
}

func (f createPropertyForm) address() geocoding.Address {
	return geocoding.Address{
		Street:     f.Address,
		City:       f.City,
		State:      f.State,
		Country:    f.Country,
		PostalCode: f.PostalCode,
	}
}

type profileBody struct {
	CognitoID   string `json:"cognitoId"`
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	PhoneNumber string `json:"phoneNumber"`
}

type applicationBody struct {
	PropertyID  int64  `json:"propertyId" binding:"required,gt=0"`
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	PhoneNumber string `json:"phoneNumber" binding:"required"`
	Message     string `json:"message"`
}

type statusBody struct {
	Status string `json:"status" binding:"required,applicationstatus"`
}

// parseList splits a comma separated enum list, dropping blanks and duplicates
func parseList[T ~string](raw string, parse func(string) (T, error)) ([]T, error) {
	var out []T
	seen := make(map[T]bool)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := parse(part)
		if err != nil {
			return nil, err
		}
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out, nil
}

func toStrings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

func isImage(fh *multipart.FileHeader) bool {
	return strings.HasPrefix(fh.Header.Get("Content-Type"), "image/")
}

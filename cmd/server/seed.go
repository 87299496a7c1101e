package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bradfitz/latlong"
	"github.com/spf13/cobra"

	"rentiful/server/config"
	"rentiful/server/internal/database"
	"rentiful/server/internal/models"
)

func newSeedCmd() *cobra.Command {
	var (
		cities    []string
		managerID string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert a demo manager with one listing per city",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}

			db, err := database.NewDatabase(cfg.Database.URL, logger, cfg.Database.SlowQueryThreshold)
			if err != nil {
				fail("database: %v", err)
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			if err := ensureManager(ctx, db, managerID); err != nil {
				fail("manager %s: %v", managerID, err)
				return err
			}

			existing, err := db.ManagerProperties(ctx, managerID)
			if err != nil {
				fail("listing existing properties: %v", err)
				return err
			}
			seeded := make(map[string]bool, len(existing))
			for _, p := range existing {
				seeded[p.Location.City] = true
			}

			for _, name := range cities {
				city := config.GetCityByName(name)
				if city == nil {
					fail("unknown city %q, choose from %v", name, config.GetCityNames())
					continue
				}
				if seeded[city.Name] {
					success("%s already seeded", city.Name)
					continue
				}

				loc, prop := sampleListing(*city, managerID)
				created, err := db.CreateProperty(ctx, loc, prop)
				if err != nil {
					fail("%s: %v", city.Name, err)
					continue
				}
				success("%s: property %d", city.Name, created.ID)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&cities, "city", config.GetCityNames(), "cities to seed")
	cmd.Flags().StringVar(&managerID, "manager-id", "seed-manager", "cognito id of the demo manager")
	return cmd
}

func ensureManager(ctx context.Context, db *database.Database, cognitoID string) error {
	_, err := db.GetManager(ctx, cognitoID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return err
	}
	_, err = db.CreateManager(ctx, models.Manager{
		CognitoID: cognitoID,
		Name:      "Demo Manager",
		Email:     fmt.Sprintf("%s@example.com", cognitoID),
	})
	return err
}

func sampleListing(city config.City, managerID string) (models.Location, models.Property) {
	lon, lat := city.Center[0], city.Center[1]
	loc := models.Location{
		Address:         "1 Main Street",
		City:            city.Name,
		State:           city.State,
		Country:         city.Country,
		PostalCode:      "00000",
		TimeZone:        latlong.LookupZoneName(lat, lon),
		GeocodeAttempts: 1,
		Coordinates:     models.Coordinates{Longitude: lon, Latitude: lat},
	}
	prop := models.Property{
		Name:             fmt.Sprintf("%s Demo Apartment", city.Name),
		Description:      "Seeded listing",
		PricePerMonth:    2500,
		SecurityDeposit:  500,
		ApplicationFee:   50,
		Beds:             2,
		Baths:            1,
		SquareFeet:       850,
		PropertyType:     models.PropertyTypeApartment,
		Amenities:        []string{string(models.AmenityWasherDryer), string(models.AmenityAirConditioning)},
		Highlights:       []string{string(models.HighlightQuietNeighborhood)},
		IsPetsAllowed:    true,
		PostedDate:       time.Now().UTC(),
		ManagerCognitoID: managerID,
	}
	return loc, prop
}

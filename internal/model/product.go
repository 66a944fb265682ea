package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalid marks a validation failure. Callers test for it with errors.Is.
var ErrInvalid = errors.New("invalid")

// DateLayout is the storage and wire format of a calendar date.
const DateLayout = "2006-01-02"

type Category string

const (
	CategoryDairy      Category = "dairy"
	CategoryMeat       Category = "meat"
	CategoryFish       Category = "fish"
	CategoryVegetables Category = "vegetables"
	CategoryFruits     Category = "fruits"
	CategoryBakery     Category = "bakery"
	CategoryFrozen     Category = "frozen"
	CategoryCanned     Category = "canned"
	CategoryBeverages  Category = "beverages"
	CategoryOther      Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryDairy,
	CategoryMeat,
	CategoryFish,
	CategoryVegetables,
	CategoryFruits,
	CategoryBakery,
	CategoryFrozen,
	CategoryCanned,
	CategoryBeverages,
	CategoryOther,
}

// ParseCategory maps a case-insensitive name onto a Category.
func ParseCategory(s string) (Category, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

type StorageLocation string

const (
	LocationFridge  StorageLocation = "fridge"
	LocationFreezer StorageLocation = "freezer"
	LocationPantry  StorageLocation = "pantry"
	LocationCounter StorageLocation = "counter"
)

var StorageLocations = []StorageLocation{
	LocationFridge,
	LocationFreezer,
	LocationPantry,
	LocationCounter,
}

func ParseStorageLocation(s string) (StorageLocation, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, l := range StorageLocations {
		if string(l) == s {
			return l, true
		}
	}
	return "", false
}

// Status is the freshness tier derived from the day count.
type Status string

const (
	StatusGood    Status = "good"
	StatusWarning Status = "warning"
	StatusExpired Status = "expired"
)

type Product struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Brand           string          `json:"brand"`
	Category        Category        `json:"category"`
	StorageLocation StorageLocation `json:"storage_location"`
	ExpiryDate      time.Time       `json:"expiry_date"`
	Barcode         string          `json:"barcode"`
	ImageURL        string          `json:"image_url"`
	Notes           string          `json:"notes"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Validate checks the fields a caller must supply before the product is stored.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("name is required: %w", ErrInvalid)
	}
	if _, ok := ParseCategory(string(p.Category)); !ok {
		return fmt.Errorf("unknown category %q: %w", p.Category, ErrInvalid)
	}
	if _, ok := ParseStorageLocation(string(p.StorageLocation)); !ok {
		return fmt.Errorf("unknown storage location %q: %w", p.StorageLocation, ErrInvalid)
	}
	if p.ExpiryDate.IsZero() {
		return fmt.Errorf("expiry date is required: %w", ErrInvalid)
	}
	return nil
}

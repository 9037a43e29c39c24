package service

import (
	"context"
	"errors"
	"fmt"

	"travel-expense-api/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CountryRequest struct {
	Code string `json:"code" binding:"required,min=2,max=3"`
	Name string `json:"name" binding:"required"`
}

type CurrencyRequest struct {
	Code   string `json:"code" binding:"required,len=3"`
	Name   string `json:"name" binding:"required"`
	Symbol string `json:"symbol"`
}

type ExpenseCategoryRequest struct {
	Name       string `json:"name" binding:"required"`
	SAPAccount string `json:"sap_account"`
}

type SupplierRequest struct {
	Name  string `json:"name" binding:"required"`
	TaxID string `json:"tax_id"`
}

type TaxRequest struct {
	Name string `json:"name" binding:"required"`
	Rate string `json:"rate" binding:"required"` // Decimal string, e.g. "0.18"
}

type LocationRequest struct {
	Name      string `json:"name" binding:"required"`
	CountryID string `json:"country_id" binding:"required"`
}

// --- Interface ---

// MasterDataService is the administrative CRUD surface behind the workflow's
// lookup tables. The workflow itself only ever reads these.
type MasterDataService interface {
	ListCountries(ctx context.Context) ([]model.Country, error)
	CreateCountry(ctx context.Context, req CountryRequest) (*model.Country, error)
	UpdateCountry(ctx context.Context, id uuid.UUID, req CountryRequest) (*model.Country, error)
	DeleteCountry(ctx context.Context, id uuid.UUID) error

	ListCurrencies(ctx context.Context) ([]model.Currency, error)
	CreateCurrency(ctx context.Context, req CurrencyRequest) (*model.Currency, error)
	UpdateCurrency(ctx context.Context, id uuid.UUID, req CurrencyRequest) (*model.Currency, error)
	DeleteCurrency(ctx context.Context, id uuid.UUID) error

	ListCategories(ctx context.Context) ([]model.ExpenseCategory, error)
	CreateCategory(ctx context.Context, req ExpenseCategoryRequest) (*model.ExpenseCategory, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, req ExpenseCategoryRequest) (*model.ExpenseCategory, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	ListSuppliers(ctx context.Context) ([]model.Supplier, error)
	CreateSupplier(ctx context.Context, req SupplierRequest) (*model.Supplier, error)
	UpdateSupplier(ctx context.Context, id uuid.UUID, req SupplierRequest) (*model.Supplier, error)
	DeleteSupplier(ctx context.Context, id uuid.UUID) error

	ListTaxes(ctx context.Context) ([]model.Tax, error)
	CreateTax(ctx context.Context, req TaxRequest) (*model.Tax, error)
	UpdateTax(ctx context.Context, id uuid.UUID, req TaxRequest) (*model.Tax, error)
	DeleteTax(ctx context.Context, id uuid.UUID) error

	ListLocations(ctx context.Context) ([]model.Location, error)
	CreateLocation(ctx context.Context, req LocationRequest) (*model.Location, error)
	UpdateLocation(ctx context.Context, id uuid.UUID, req LocationRequest) (*model.Location, error)
	DeleteLocation(ctx context.Context, id uuid.UUID) error
}

type masterDataService struct {
	db *gorm.DB
}

func NewMasterDataService(db *gorm.DB) MasterDataService {
	return &masterDataService{db: db}
}

// --- Generic helpers ---

func listAll[T any](ctx context.Context, db *gorm.DB, order string) ([]T, error) {
	var rows []T
	if err := db.WithContext(ctx).Order(order).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch records: %w", err)
	}
	return rows, nil
}

func findByID[T any](ctx context.Context, db *gorm.DB, id uuid.UUID) (*T, error) {
	var row T
	if err := db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNotFound("record not found")
		}
		return nil, fmt.Errorf("failed to fetch record: %w", err)
	}
	return &row, nil
}

func deleteByID[T any](ctx context.Context, db *gorm.DB, id uuid.UUID) error {
	row, err := findByID[T](ctx, db, id)
	if err != nil {
		return err
	}
	if err := db.WithContext(ctx).Delete(row).Error; err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

// --- Countries ---

func (s *masterDataService) ListCountries(ctx context.Context) ([]model.Country, error) {
	return listAll[model.Country](ctx, s.db, "name ASC")
}

func (s *masterDataService) CreateCountry(ctx context.Context, req CountryRequest) (*model.Country, error) {
	country := model.Country{Code: req.Code, Name: req.Name}
	if err := s.db.WithContext(ctx).Create(&country).Error; err != nil {
		return nil, fmt.Errorf("failed to create country: %w", err)
	}
	return &country, nil
}

func (s *masterDataService) UpdateCountry(ctx context.Context, id uuid.UUID, req CountryRequest) (*model.Country, error) {
	country, err := findByID[model.Country](ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	country.Code = req.Code
	country.Name = req.Name
	if err := s.db.WithContext(ctx).Save(country).Error; err != nil {
		return nil, fmt.Errorf("failed to update country: %w", err)
	}
	return country, nil
}

func (s *masterDataService) DeleteCountry(ctx context.Context, id uuid.UUID) error {
	return deleteByID[model.Country](ctx, s.db, id)
}

// --- Currencies ---

func (s *masterDataService) ListCurrencies(ctx context.Context) ([]model.Currency, error) {
	return listAll[model.Currency](ctx, s.db, "code ASC")
}

func (s *masterDataService) CreateCurrency(ctx context.Context, req CurrencyRequest) (*model.Currency, error) {
	currency := model.Currency{Code: req.Code, Name: req.Name, Symbol: req.Symbol}
	if err := s.db.WithContext(ctx).Create(&currency).Error; err != nil {
		return nil, fmt.Errorf("failed to create currency: %w", err)
	}
	return &currency, nil
}

func (s *masterDataService) UpdateCurrency(ctx context.Context, id uuid.UUID, req CurrencyRequest) (*model.Currency, error) {
	currency, err := findByID[model.Currency](ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	currency.Code = req.Code
	currency.Name = req.Name
	currency.Symbol = req.Symbol
	if err := s.db.WithContext(ctx).Save(currency).Error; err != nil {
		return nil, fmt.Errorf("failed to update currency: %w", err)
	}
	return currency, nil
}

func (s *masterDataService) DeleteCurrency(ctx context.Context, id uuid.UUID) error {
	return deleteByID[model.Currency](ctx, s.db, id)
}

// --- Expense categories ---

func (s *masterDataService) ListCategories(ctx context.Context) ([]model.ExpenseCategory, error) {
	return listAll[model.ExpenseCategory](ctx, s.db, "name ASC")
}

func (s *masterDataService) CreateCategory(ctx context.Context, req ExpenseCategoryRequest) (*model.ExpenseCategory, error) {
	category := model.ExpenseCategory{Name: req.Name, SAPAccount: req.SAPAccount}
	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return &category, nil
}

func (s *masterDataService) UpdateCategory(ctx context.Context, id uuid.UUID, req ExpenseCategoryRequest) (*model.ExpenseCategory, error) {
	category, err := findByID[model.ExpenseCategory](ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	category.Name = req.Name
	category.SAPAccount = req.SAPAccount
	if err := s.db.WithContext(ctx).Save(category).Error; err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return category, nil
}

func (s *masterDataService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return deleteByID[model.ExpenseCategory](ctx, s.db, id)
}

// --- Suppliers ---

func (s *masterDataService) ListSuppliers(ctx context.Context) ([]model.Supplier, error) {
	return listAll[model.Supplier](ctx, s.db, "name ASC")
}

func (s *masterDataService) CreateSupplier(ctx context.Context, req SupplierRequest) (*model.Supplier, error) {
	supplier := model.Supplier{Name: req.Name, TaxID: req.TaxID}
	if err := s.db.WithContext(ctx).Create(&supplier).Error; err != nil {
		return nil, fmt.Errorf("failed to create supplier: %w", err)
	}
	return &supplier, nil
}

func (s *masterDataService) UpdateSupplier(ctx context.Context, id uuid.UUID, req SupplierRequest) (*model.Supplier, error) {
	supplier, err := findByID[model.Supplier](ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	supplier.Name = req.Name
	supplier.TaxID = req.TaxID
	if err := s.db.WithContext(ctx).Save(supplier).Error; err != nil {
		return nil, fmt.Errorf("failed to update supplier: %w", err)
	}
	return supplier, nil
}

func (s *masterDataService) DeleteSupplier(ctx context.Context, id uuid.UUID) error {
	return deleteByID[model.Supplier](ctx, s.db, id)
}

// --- Taxes ---

func (s *masterDataService) ListTaxes(ctx context.Context) ([]model.Tax, error) {
	return listAll[model.Tax](ctx, s.db, "name ASC")
}

func (s *masterDataService) CreateTax(ctx context.Context, req TaxRequest) (*model.Tax, error) {
	rate, err := decimal.NewFromString(req.Rate)
	if err != nil || rate.Sign() < 0 {
		return nil, errValidation("rate must be a non-negative decimal")
	}
	tax := model.Tax{Name: req.Name, Rate: rate}
	if err := s.db.WithContext(ctx).Create(&tax).Error; err != nil {
		return nil, fmt.Errorf("failed to create tax: %w", err)
	}
	return &tax, nil
}

func (s *masterDataService) UpdateTax(ctx context.Context, id uuid.UUID, req TaxRequest) (*model.Tax, error) {
	tax, err := findByID[model.Tax](ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	rate, parseErr := decimal.NewFromString(req.Rate)
	if parseErr != nil || rate.Sign() < 0 {
		return nil, errValidation("rate must be a non-negative decimal")
	}
	tax.Name = req.Name
	tax.Rate = rate
	if err := s.db.WithContext(ctx).Save(tax).Error; err != nil {
		return nil, fmt.Errorf("failed to update tax: %w", err)
	}
	return tax, nil
}

func (s *masterDataService) DeleteTax(ctx context.Context, id uuid.UUID) error {
	return deleteByID[model.Tax](ctx, s.db, id)
}

// --- Locations ---

func (s *masterDataService) ListLocations(ctx context.Context) ([]model.Location, error) {
	var locations []model.Location
	if err := s.db.WithContext(ctx).Preload("Country").Order("name ASC").Find(&locations).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch locations: %w", err)
	}
	return locations, nil
}

func (s *masterDataService) CreateLocation(ctx context.Context, req LocationRequest) (*model.Location, error) {
	countryID, err := uuid.Parse(req.CountryID)
	if err != nil {
		return nil, errValidation("invalid country_id")
	}
	if _, err := findByID[model.Country](ctx, s.db, countryID); err != nil {
		return nil, errValidation("country not found")
	}
	location := model.Location{Name: req.Name, CountryID: countryID}
	if err := s.db.WithContext(ctx).Create(&location).Error; err != nil {
		return nil, fmt.Errorf("failed to create location: %w", err)
	}
	return &location, nil
}

func (s *masterDataService) UpdateLocation(ctx context.Context, id uuid.UUID, req LocationRequest) (*model.Location, error) {
	location, err := findByID[model.Location](ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	countryID, parseErr := uuid.Parse(req.CountryID)
	if parseErr != nil {
		return nil, errValidation("invalid country_id")
	}
	location.Name = req.Name
	location.CountryID = countryID
	if err := s.db.WithContext(ctx).Save(location).Error; err != nil {
		return nil, fmt.Errorf("failed to update location: %w", err)
	}
	return location, nil
}

func (s *masterDataService) DeleteLocation(ctx context.Context, id uuid.UUID) error {
	return deleteByID[model.Location](ctx, s.db, id)
}

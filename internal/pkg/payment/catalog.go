package payment

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Supported checkout currencies.
const (
	CurrencyUSD = "USD"
	CurrencyINR = "INR"
)

var (
	ErrUnknownPackage      = errors.New("unknown credit package")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
)

// Price holds a package price in major units per currency.
type Price struct {
	USD decimal.Decimal `json:"usd"`
	INR decimal.Decimal `json:"inr"`
}

// Package is a purchasable bundle of credits.
type Package struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Credits int    `json:"credits"`
	Price   Price  `json:"price"`
	Popular bool   `json:"popular,omitempty"`
}

var packages = []Package{
	{
		ID:      "starter",
		Name:    "Starter",
		Credits: 50,
		Price:   Price{USD: decimal.RequireFromString("5.00"), INR: decimal.RequireFromString("399")},
	},
	{
		ID:      "writer",
		Name:    "Writer",
		Credits: 150,
		Price:   Price{USD: decimal.RequireFromString("12.00"), INR: decimal.RequireFromString("999")},
		Popular: true,
	},
	{
		ID:      "author",
		Name:    "Author",
		Credits: 400,
		Price:   Price{USD: decimal.RequireFromString("29.00"), INR: decimal.RequireFromString("2399")},
	},
}

// Packages returns the static package catalog.
func Packages() []Package {
	out := make([]Package, len(packages))
	copy(out, packages)
	return out
}

// FindPackage looks up a package by id.
func FindPackage(id string) (Package, error) {
	for _, p := range packages {
		if p.ID == id {
			return p, nil
		}
	}
	return Package{}, ErrUnknownPackage
}

// FindByAmount returns the package whose price in currency equals amount
// minor units.
func FindByAmount(amount int64, currency string) (Package, error) {
	for _, p := range packages {
		minor, err := p.AmountMinor(currency)
		if err != nil {
			return Package{}, err
		}
		if minor == amount {
			return p, nil
		}
	}
	return Package{}, ErrUnknownPackage
}

// FindByCredits returns the package granting the given credits.
func FindByCredits(credits int) (Package, error) {
	for _, p := range packages {
		if p.Credits == credits {
			return p, nil
		}
	}
	return Package{}, ErrUnknownPackage
}

// PriceIn returns the major-unit price in currency.
func (p Package) PriceIn(currency string) (decimal.Decimal, error) {
	switch NormalizeCurrency(currency) {
	case CurrencyUSD:
		return p.Price.USD, nil
	case CurrencyINR:
		return p.Price.INR, nil
	default:
		return decimal.Zero, ErrUnsupportedCurrency
	}
}

// AmountMinor returns the price in minor units (cents, paise) as the
// gateway expects it.
func (p Package) AmountMinor(currency string) (int64, error) {
	price, err := p.PriceIn(currency)
	if err != nil {
		return 0, err
	}
	return price.Shift(2).Round(0).IntPart(), nil
}

func NormalizeCurrency(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}

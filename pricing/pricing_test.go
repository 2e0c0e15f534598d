package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/pricegrid/pricegrid/models"
)

type fixedRates struct {
	quote Quote
	err   error
}

func (f fixedRates) Lookup(context.Context, string, decimal.Decimal, *models.Location) (Quote, error) {
	return f.quote, f.err
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestNormalize_TotalIsBasePlusShippingPlusTax(t *testing.T) {
	n := NewNormalizer(fixedRates{quote: Quote{Shipping: dec("5.99"), TaxRate: dec("0.0725")}})

	raw := models.RawListing{Merchant: "shopco", BasePrice: dec("19.99")}
	l, degraded := n.Normalize(context.Background(), raw, nil)
	if degraded {
		t.Fatal("unexpected degraded mode")
	}

	// 19.99 * 0.0725 = 1.449275, rounds to 1.45.
	if l.Tax.String() != "1.45" {
		t.Errorf("Tax = %s, want 1.45", l.Tax)
	}
	if l.ShippingCost.String() != "5.99" {
		t.Errorf("ShippingCost = %s, want 5.99", l.ShippingCost)
	}
	want := l.BasePrice.Add(l.ShippingCost).Add(l.Tax)
	if !l.TotalPrice.Equal(want) {
		t.Errorf("TotalPrice = %s, want %s", l.TotalPrice, want)
	}
	if l.TotalPrice.String() != "27.43" {
		t.Errorf("TotalPrice = %s, want 27.43", l.TotalPrice)
	}
}

func TestNormalize_LookupFailureDegradesToBasePrice(t *testing.T) {
	n := NewNormalizer(fixedRates{err: errors.New("rate service down")})

	raw := models.RawListing{Merchant: "shopco", BasePrice: dec("10.00")}
	l, degraded := n.Normalize(context.Background(), raw, nil)
	if !degraded {
		t.Fatal("want degraded mode on lookup failure")
	}
	if !l.ShippingCost.IsZero() || !l.Tax.IsZero() {
		t.Errorf("degraded listing carries shipping %s tax %s, want zero", l.ShippingCost, l.Tax)
	}
	if !l.TotalPrice.Equal(raw.BasePrice) {
		t.Errorf("TotalPrice = %s, want base %s", l.TotalPrice, raw.BasePrice)
	}
}

func TestNormalizeAll_ReportsAnyDegradation(t *testing.T) {
	n := NewNormalizer(fixedRates{err: errors.New("down")})
	raws := []models.RawListing{
		{Merchant: "a", BasePrice: dec("1.00")},
		{Merchant: "b", BasePrice: dec("2.00")},
	}
	out, degraded := n.NormalizeAll(context.Background(), raws, nil)
	if len(out) != 2 {
		t.Fatalf("got %d listings, want 2", len(out))
	}
	if !degraded {
		t.Error("want degraded = true")
	}
}

func TestStaticRates_ShippingThresholds(t *testing.T) {
	s := NewStaticRates()
	cases := []struct {
		merchant string
		base     string
		want     string
	}{
		{"amazon", "24.99", "5.99"},
		{"amazon", "25.01", "0"},
		{"walmart", "34.99", "5.99"},
		{"walmart", "40.00", "0"},
		{"newegg", "49.99", "7.99"},
		{"newegg", "51.00", "0"},
		{"ebay", "500.00", "5.99"},
		{"unknownco", "500.00", "5.99"},
	}
	for _, tc := range cases {
		t.Run(tc.merchant+"/"+tc.base, func(t *testing.T) {
			got := s.shipping(tc.merchant, dec(tc.base))
			if got.String() != tc.want {
				t.Errorf("shipping(%s, %s) = %s, want %s", tc.merchant, tc.base, got, tc.want)
			}
		})
	}
}

func TestStaticRates_TaxRate(t *testing.T) {
	s := NewStaticRates()

	if got := s.taxRate(&models.Location{State: "ca"}); got.String() != "0.0725" {
		t.Errorf("CA rate = %s, want 0.0725", got)
	}
	if got := s.taxRate(&models.Location{State: "OR"}); !got.IsZero() {
		t.Errorf("OR rate = %s, want 0", got)
	}
	if got := s.taxRate(nil); !got.IsZero() {
		t.Errorf("nil location rate = %s, want default 0", got)
	}

	s.DefaultTaxRate = dec("0.05")
	if got := s.taxRate(&models.Location{State: "ZZ"}); got.String() != "0.05" {
		t.Errorf("unknown state rate = %s, want default 0.05", got)
	}
}

func TestStaticRates_Disabled(t *testing.T) {
	s := &StaticRates{}
	q, err := s.Lookup(context.Background(), "amazon", dec("10.00"), &models.Location{State: "CA"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !q.Shipping.IsZero() || !q.TaxRate.IsZero() {
		t.Errorf("disabled rates produced shipping %s tax %s", q.Shipping, q.TaxRate)
	}
}

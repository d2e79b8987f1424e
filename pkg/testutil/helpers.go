// Package testutil provides common fixtures for testing.
package testutil

import (
	"testing"
	"time"

	"github.com/iwvelando/loan-leads/pkg/catalog"
	"github.com/iwvelando/loan-leads/pkg/tracking"
)

// ValidUUID is a well-formed reference number for tests.
const ValidUUID = "3f2b8c1e-7d4a-4b6e-9a1f-0c5d2e8b7a61"

// BaseTime is the submission time used by tracking fixtures.
var BaseTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

// Product returns a copy of a product from the default catalog and fails the
// test when the id is unknown.
func Product(t testing.TB, id string) catalog.Product {
	t.Helper()
	p, ok := catalog.Default().Lookup(id)
	if !ok {
		t.Fatalf("product %q not in default catalog", id)
	}
	return p
}

// EffectiveProduct builds a minimal annuity product with the given rate and
// tenor options.
func EffectiveProduct(rate float64, unit catalog.TenorUnit, tenors []int) catalog.Product {
	return catalog.Product{
		ID:   "test-effective",
		Name: "Test Effective",
		Constraints: catalog.Constraints{
			TenorUnit:    unit,
			TenorOptions: tenors,
		},
		Calculation: &catalog.Calculation{
			Type:      catalog.CalculationEffective,
			Rate:      rate,
			MinAmount: 1000000,
			MaxAmount: 1000000000,
		},
	}
}

// Record builds a tracking record that walked through the given statuses
// after submission, one hour apart.
func Record(t testing.TB, uuid string, statuses ...tracking.Status) *tracking.ApplicationTracking {
	t.Helper()
	r := tracking.NewRecord(uuid, BaseTime, nil)
	for i, s := range statuses {
		if err := r.Apply(s, BaseTime.Add(time.Duration(i+1)*time.Hour), "system", ""); err != nil {
			t.Fatalf("building record: %v", err)
		}
	}
	return r
}

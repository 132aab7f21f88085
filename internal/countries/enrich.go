// enrich.go resolves the country details attached to blog posts on read.
package countries

import (
	"context"
	"strings"

	"github.com/travelog/travelog/internal/db/models"
)

// Enrich looks up a country by name and returns the detail block attached to
// posts. A failed or empty lookup degrades to null fields rather than failing
// the post read.
func Enrich(ctx context.Context, svc Service, countryName string) models.CountryDetails {
	found, err := svc.GetByName(ctx, countryName)
	if err != nil || len(found) == 0 {
		return models.CountryDetails{}
	}

	// Prefer an exact (case-insensitive) name match; the upstream name search
	// is partial, so "India" also returns "British Indian Ocean Territory".
	country := found[0]
	for _, c := range found {
		if strings.EqualFold(c.Name, countryName) {
			country = c
			break
		}
	}

	details := models.CountryDetails{}
	if country.Flag.PNG != "" || country.Flag.SVG != "" {
		details.Flag = &models.CountryFlag{
			PNG: country.Flag.PNG,
			SVG: country.Flag.SVG,
			Alt: country.Flag.Alt,
		}
	}
	if len(country.Currencies) > 0 {
		details.Currency = &models.CountryCurrency{
			Code:   country.Currencies[0].Code,
			Name:   country.Currencies[0].Name,
			Symbol: country.Currencies[0].Symbol,
		}
	}
	if country.Capital != "" {
		capital := country.Capital
		details.Capital = &capital
	}

	return details
}

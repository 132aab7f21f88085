// Package countries implements the country lookup endpoints, gated by API key.
// The handlers are a thin shell over the countries service; caching and upstream
// reshaping live there.
package countries

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/travelog/travelog/internal/api/respond"
	"github.com/travelog/travelog/internal/countries"
)

func writeLookupError(c *gin.Context, err error) {
	if errors.Is(err, countries.ErrNotFound) {
		respond.Fail(c, http.StatusNotFound, respond.KindInvalidCountry, "No country matches that query")
		return
	}
	respond.Fail(c, http.StatusBadGateway, respond.KindUpstream, "Country data source is unavailable")
}

// @Summary      List all countries
// @Tags         Countries
// @Produce      json
// @Param        x-api-key  header  string  true  "API key"
// @Success      200  {object}  map[string]interface{}  "data: [countries]"
// @Failure      502  {object}  map[string]interface{}  "UpstreamUnavailable"
// @Router       /api/countries [get]
// ListHandler handles GET /api/countries
func ListHandler(svc countries.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		found, err := svc.GetAll(c.Request.Context())
		if err != nil {
			writeLookupError(c, err)
			return
		}
		respond.OK(c, http.StatusOK, "Countries retrieved", found)
	}
}

// @Summary      Look up countries by name
// @Tags         Countries
// @Produce      json
// @Param        x-api-key  header  string  true  "API key"
// @Param        name  path  string  true  "Country name (partial match)"
// @Success      200  {object}  map[string]interface{}  "data: [countries]"
// @Failure      404  {object}  map[string]interface{}  "InvalidCountry"
// @Router       /api/countries/name/{name} [get]
// ByNameHandler handles GET /api/countries/name/:name
func ByNameHandler(svc countries.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		found, err := svc.GetByName(c.Request.Context(), c.Param("name"))
		if err != nil {
			writeLookupError(c, err)
			return
		}
		respond.OK(c, http.StatusOK, "Countries retrieved", found)
	}
}

// @Summary      Look up countries by region
// @Tags         Countries
// @Produce      json
// @Param        x-api-key  header  string  true  "API key"
// @Param        region  path  string  true  "Region name, e.g. europe"
// @Success      200  {object}  map[string]interface{}  "data: [countries]"
// @Failure      404  {object}  map[string]interface{}  "InvalidCountry"
// @Router       /api/countries/region/{region} [get]
// ByRegionHandler handles GET /api/countries/region/:region
func ByRegionHandler(svc countries.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		found, err := svc.GetByRegion(c.Request.Context(), c.Param("region"))
		if err != nil {
			writeLookupError(c, err)
			return
		}
		respond.OK(c, http.StatusOK, "Countries retrieved", found)
	}
}

// Copyright (C) 2025 l3montree GmbH
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.


package controllers

import (
	"errors"
	"log/slog"

	"github.com/l3montree-dev/vulncorrelator/dtos"
	"github.com/l3montree-dev/vulncorrelator/services"
	"github.com/l3montree-dev/vulncorrelator/shared"
	"github.com/labstack/echo/v4"
)

const callerHeader = "X-Caller"

type MatchingController struct {
	matchingService   shared.MatchingService
	findingRepository shared.FindingRepository
}

func NewMatchingController(matchingService shared.MatchingService, findingRepository shared.FindingRepository) *MatchingController {
	return &MatchingController{
		matchingService:   matchingService,
		findingRepository: findingRepository,
	}
}

// @Summary Run the vulnerability matching of a scan
// @Description Replaces the findings of the scan with freshly correlated ones
// @Tags Matching
// @Produce json
// @Param scanID path string true "Scan ID"
// @Param X-Caller header string false "Name of the caller, used for auditing"
// @Success 200 {object} dtos.MatchingSummary
// @Failure 400 {object} object{message=string}
// @Failure 500 {object} object{message=string}
// @Router /scans/{scanID}/matching [post]
func (c *MatchingController) RunMatching(ctx echo.Context) error {
	var req dtos.RunMatchingRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(400, "could not bind request").WithInternal(err)
	}
	if err := shared.V.Struct(req); err != nil {
		return echo.NewHTTPError(400, "invalid scan id").WithInternal(err)
	}

	name := ctx.Request().Header.Get(callerHeader)
	if name == "" {
		name = "anonymous"
	}
	caller := dtos.Caller{Name: name, Source: "api"}

	summary, err := c.matchingService.RunMatching(ctx.Request().Context(), caller, req.ScanID)
	if err != nil {
		if errors.Is(err, services.ErrPurgeFailed) {
			return echo.NewHTTPError(500, "could not remove the previous findings of the scan").WithInternal(err)
		}
		return echo.NewHTTPError(500, "could not run matching").WithInternal(err)
	}

	slog.Info("matching triggered via api", "scanID", req.ScanID, "caller", caller.String(), "findings", summary.TotalFindings)
	return ctx.JSON(200, summary)
}

// @Summary List the findings of a scan
// @Tags Matching
// @Produce json
// @Param scanID path string true "Scan ID"
// @Success 200 {array} models.VulnerabilityFinding
// @Router /scans/{scanID}/findings [get]
func (c *MatchingController) ListFindings(ctx echo.Context) error {
	var req dtos.RunMatchingRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(400, "could not bind request").WithInternal(err)
	}
	if err := shared.V.Struct(req); err != nil {
		return echo.NewHTTPError(400, "invalid scan id").WithInternal(err)
	}

	findings, err := c.findingRepository.ListByScan(nil, req.ScanID)
	if err != nil {
		return echo.NewHTTPError(500, "could not list findings").WithInternal(err)
	}
	return ctx.JSON(200, findings)
}

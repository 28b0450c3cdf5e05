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
	"github.com/google/uuid"
	"github.com/l3montree-dev/vulncorrelator/database/models"
	"github.com/l3montree-dev/vulncorrelator/dtos"
	"github.com/l3montree-dev/vulncorrelator/normalize"
	"github.com/l3montree-dev/vulncorrelator/shared"
	"github.com/labstack/echo/v4"
)

type ManualMappingController struct {
	manualMappingRepository shared.ManualMappingRepository
}

func NewManualMappingController(manualMappingRepository shared.ManualMappingRepository) *ManualMappingController {
	return &ManualMappingController{
		manualMappingRepository: manualMappingRepository,
	}
}

// @Summary List all active manual cpe mappings
// @Tags Mappings
// @Produce json
// @Success 200 {array} models.ManualCPEMapping
// @Router /mappings [get]
func (c *ManualMappingController) List(ctx echo.Context) error {
	mappings, err := c.manualMappingRepository.ListActive(nil)
	if err != nil {
		return echo.NewHTTPError(500, "could not list mappings").WithInternal(err)
	}
	return ctx.JSON(200, mappings)
}

// @Summary Create a manual cpe mapping
// @Description A mapping without a package version applies to every version of the package
// @Tags Mappings
// @Accept json
// @Produce json
// @Param body body dtos.CreateManualMappingRequest true "Mapping"
// @Success 201 {object} models.ManualCPEMapping
// @Router /mappings [post]
func (c *ManualMappingController) Create(ctx echo.Context) error {
	var req dtos.CreateManualMappingRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(400, "could not bind request").WithInternal(err)
	}
	if err := shared.V.Struct(req); err != nil {
		return echo.NewHTTPError(400, err.Error())
	}

	cpe, err := normalize.ParseCPE(req.CPEURI)
	if err != nil {
		return echo.NewHTTPError(400, "invalid cpe uri").WithInternal(err)
	}

	if req.ConfidenceLevel == "" {
		req.ConfidenceLevel = dtos.ConfidenceLevelMedium
	}
	if req.PackageVersion != nil && *req.PackageVersion == "" {
		req.PackageVersion = nil
	}

	createdBy := ctx.Request().Header.Get(callerHeader)
	if createdBy == "" {
		createdBy = "api"
	}

	mapping := models.ManualCPEMapping{
		PackageName:     req.PackageName,
		PackageVersion:  req.PackageVersion,
		CPEURI:          req.CPEURI,
		Vendor:          cpe.Vendor,
		Product:         cpe.Product,
		ConfidenceLevel: req.ConfidenceLevel,
		IsActive:        true,
		CreatedBy:       createdBy,
		Notes:           req.Notes,
	}
	if err := c.manualMappingRepository.Create(nil, &mapping); err != nil {
		return echo.NewHTTPError(500, "could not create mapping").WithInternal(err)
	}
	return ctx.JSON(201, mapping)
}

// @Summary Deactivate a manual cpe mapping
// @Tags Mappings
// @Param mappingID path string true "Mapping ID"
// @Success 204
// @Router /mappings/{mappingID} [delete]
func (c *ManualMappingController) Deactivate(ctx echo.Context) error {
	id, err := uuid.Parse(ctx.Param("mappingID"))
	if err != nil {
		return echo.NewHTTPError(400, "invalid mapping id").WithInternal(err)
	}

	if _, err := c.manualMappingRepository.Read(id); err != nil {
		return echo.NewHTTPError(404, "could not find mapping").WithInternal(err)
	}

	if err := c.manualMappingRepository.Deactivate(nil, id); err != nil {
		return echo.NewHTTPError(500, "could not deactivate mapping").WithInternal(err)
	}
	return ctx.NoContent(204)
}

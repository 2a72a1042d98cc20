package handler

import (
	"net/http"

	"github.com/fleetops/vehicle-rental-service/internal/model"
	"github.com/fleetops/vehicle-rental-service/internal/query"
	"github.com/fleetops/vehicle-rental-service/internal/service"
	"github.com/fleetops/vehicle-rental-service/pkg/response"
	"github.com/gin-gonic/gin"
)

// queryRequest is the grid fetch payload: filter, sort and paging cursor.
type queryRequest struct {
	FilterColumn  query.Column `json:"filter_column"`
	FilterText    string       `json:"filter_text"`
	SortColumn    query.Column `json:"sort_column"`
	SortAscending bool         `json:"sort_ascending"`
	Page          int          `json:"page"`
	PageSize      int          `json:"page_size"`
}

// queryResponse returns the page plus the updated paging state so the
// client can render pagination without another round trip.
type queryResponse struct {
	PageInfo query.PageState `json:"page_info"`
	Vehicles []model.Vehicle `json:"vehicles"`
}

// query handles POST /vehicles/query: one filtered, sorted page window.
func (h *VehicleHandler) query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.WriteError(c, service.ErrInvalidInput)
		return
	}
	spec := query.FilterSortSpec{
		FilterColumn:  req.FilterColumn,
		FilterText:    req.FilterText,
		SortColumn:    req.SortColumn,
		SortAscending: req.SortAscending,
	}
	if spec.SortColumn == "" {
		spec.SortColumn = query.ColumnLicenseNumber
	}
	page := query.PageState{Page: req.Page, PageSize: req.PageSize}
	vehicles, err := h.svc.QueryVehicles(c.Request.Context(), spec, &page)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, queryResponse{PageInfo: page, Vehicles: vehicles})
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/fleetops/vehicle-rental-service/internal/model"
	"github.com/fleetops/vehicle-rental-service/internal/repository"
	"github.com/fleetops/vehicle-rental-service/internal/service"
	"github.com/fleetops/vehicle-rental-service/pkg/response"
	"github.com/gin-gonic/gin"
)

type VehicleHandler struct {
	svc service.VehicleService
}

func NewVehicleHandler(svc service.VehicleService) *VehicleHandler { return &VehicleHandler{svc: svc} }

func (h *VehicleHandler) Register(r *gin.RouterGroup) {
	g := r.Group("/vehicles")
	{
		g.POST("", h.create)
		g.POST("/query", h.query)
		// Use a stable wildcard name (vehicle_id) so nested routes (audit) can reuse it without Gin conflicts.
		g.GET("/:vehicle_id", h.getByID)
		g.PUT("/:vehicle_id", h.update)
		g.DELETE("/:vehicle_id", h.delete)
		g.GET("/:vehicle_id/audit", h.listAudit)
	}
}

// vehicleTokenResponse pairs a vehicle with the token a later PUT must
// present. Returned both on create and on a forUpdate load.
type vehicleTokenResponse struct {
	Vehicle model.Vehicle      `json:"vehicle"`
	Token   model.VersionToken `json:"token"`
}

func (h *VehicleHandler) create(c *gin.Context) {
	var req model.Vehicle
	if err := c.ShouldBindJSON(&req); err != nil {
		response.WriteError(c, service.ErrInvalidInput) // parsing details stay internal
		return
	}
	vehicle, token, err := h.svc.CreateVehicle(c.Request.Context(), c.GetHeader(ActingUserHeader), req)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusCreated, vehicleTokenResponse{Vehicle: vehicle, Token: token})
}

func (h *VehicleHandler) getByID(c *gin.Context) {
	id, _ := strconv.ParseInt(c.Param("vehicle_id"), 10, 64)
	forUpdate, _ := strconv.ParseBool(c.DefaultQuery("forUpdate", "false"))

	if forUpdate {
		vehicle, token, err := h.svc.LoadVehicleForUpdate(c.Request.Context(), id)
		if err != nil {
			response.WriteError(c, err)
			return
		}
		response.WriteData(c, http.StatusOK, vehicleTokenResponse{Vehicle: vehicle, Token: token})
		return
	}

	vehicle, err := h.svc.GetVehicle(c.Request.Context(), id)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, vehicle)
}

func (h *VehicleHandler) update(c *gin.Context) {
	id, _ := strconv.ParseInt(c.Param("vehicle_id"), 10, 64)
	var env model.ConcurrencyEnvelope
	if err := c.ShouldBindJSON(&env); err != nil {
		response.WriteError(c, service.ErrInvalidInput)
		return
	}
	if env.Vehicle.ID != id {
		response.WriteError(c, service.ErrInvalidInput)
		return
	}
	outcome, err := h.svc.UpdateVehicle(c.Request.Context(), c.GetHeader(ActingUserHeader), env)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	if !outcome.Accepted {
		// Send the authoritative state back so the caller can reconcile
		// and resubmit with the fresh token.
		env.ServerVehicle = outcome.ServerVehicle
		env.NewToken = outcome.CurrentToken
		response.WriteConflict(c, env)
		return
	}
	response.WriteData(c, http.StatusOK, gin.H{"new_token": outcome.NewToken})
}

func (h *VehicleHandler) delete(c *gin.Context) {
	id, _ := strconv.ParseInt(c.Param("vehicle_id"), 10, 64)
	if err := h.svc.DeleteVehicle(c.Request.Context(), c.GetHeader(ActingUserHeader), id); err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, gin.H{"status": "deleted"})
}

func (h *VehicleHandler) listAudit(c *gin.Context) {
	id, _ := strconv.ParseInt(c.Param("vehicle_id"), 10, 64)
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	res, err := h.svc.ListVehicleAudit(c.Request.Context(), id, repository.Page{Limit: limit, Offset: offset})
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, res)
}

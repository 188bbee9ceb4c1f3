package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"salonflow-backend/services"
	"salonflow-backend/utils"
)

// respondServiceError translates the service error taxonomy into HTTP codes.
func respondServiceError(c *gin.Context, err error) {
	var vErr *services.ValidationError
	switch {
	case errors.As(err, &vErr):
		utils.RespondWithError(c, http.StatusBadRequest, vErr.Error())
	case errors.Is(err, services.ErrNotFound):
		utils.RespondWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrInvalidState):
		utils.RespondWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrExternalService):
		utils.RespondWithError(c, http.StatusBadGateway, err.Error())
	default:
		utils.RespondWithError(c, http.StatusInternalServerError, "Internal error")
	}
}

// parseIDParam reads a uuid path parameter, responding 400 on failure.
func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}

func parseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

func toJSON(v interface{}) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}

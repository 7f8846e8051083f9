package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/oncolab/leukoflow/internal/domain"
	"github.com/oncolab/leukoflow/internal/service"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Find looks a user up by ?email= and optional ?role=.
func (h *UserHandler) Find(c *gin.Context) {
	u, err := h.userService.FindUser(c.Request.Context(), c.Query("email"), domain.Role(c.Query("role")))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, u)
}

func (h *UserHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	u, err := h.userService.GetUser(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, u)
}

// RosterPatients returns the stored patient roster of a doctor.
func (h *UserHandler) RosterPatients(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	patients, err := h.userService.RosterPatients(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, patients)
}

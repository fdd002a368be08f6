package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"disperse-backend/internal/dto"
	"disperse-backend/internal/services"
)

// DisperseHandler exposes the five transaction endpoints.
type DisperseHandler struct {
	service *services.DisperseService
}

func NewDisperseHandler(service *services.DisperseService) *DisperseHandler {
	return &DisperseHandler{service: service}
}

// DisperseEth handles POST /api/disperse-eth
func (h *DisperseHandler) DisperseEth(c *gin.Context) {
	var req dto.DisperseEthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	resp, err := h.service.DisperseEth(c.Request.Context(), &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DisperseErc20 handles POST /api/disperse-erc20
func (h *DisperseHandler) DisperseErc20(c *gin.Context) {
	var req dto.DisperseErc20Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	resp, err := h.service.DisperseErc20(c.Request.Context(), &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CollectErc20 handles POST /api/collect-erc20
func (h *DisperseHandler) CollectErc20(c *gin.Context) {
	var req dto.CollectErc20Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	resp, err := h.service.CollectErc20(c.Request.Context(), &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Transfer handles POST /api/transfer
func (h *DisperseHandler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	resp, err := h.service.Transfer(c.Request.Context(), &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Approve handles POST /api/approve
func (h *DisperseHandler) Approve(c *gin.Context) {
	var req dto.ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	resp, err := h.service.Approve(c.Request.Context(), &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

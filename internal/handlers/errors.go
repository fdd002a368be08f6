package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"disperse-backend/internal/allocation"
	"disperse-backend/internal/clients"
	"disperse-backend/internal/dto"
	"disperse-backend/internal/services"
	"disperse-backend/internal/txbuilder"
)

// respondServiceError maps service error kinds onto HTTP statuses. Node-side
// failures keep the node's own text in the response so callers can debug
// them; only unclassified errors are hidden behind a generic message.
func respondServiceError(c *gin.Context, err error) {
	var (
		invalidSpec   *allocation.InvalidSpecError
		insufficient  *allocation.InsufficientTotalError
		tokenNotFound *clients.TokenNotFoundError
		unsupported   *txbuilder.UnsupportedOperationError
		unavailable   *clients.UnavailableError
		rejected      *clients.RejectedError
		submission    *services.SubmissionRejectedError
		signing       *services.SigningError
	)

	switch {
	case errors.As(err, &invalidSpec),
		errors.As(err, &insufficient),
		errors.As(err, &tokenNotFound),
		errors.As(err, &unsupported):
		respondError(c, http.StatusBadRequest, err.Error())

	case errors.As(err, &unavailable):
		respondError(c, http.StatusServiceUnavailable, err.Error())

	case errors.As(err, &rejected), errors.As(err, &submission):
		respondError(c, http.StatusBadGateway, err.Error())

	case errors.As(err, &signing):
		respondError(c, http.StatusInternalServerError, err.Error())

	default:
		logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("unhandled service error")
		respondError(c, http.StatusInternalServerError, "internal server error")
	}
}

func respondError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, dto.ErrorResponse{Code: code, Message: message})
}

package handler

import (
	"errors"
	"net/http"

	"github.com/ctkuo2438/NUboard/internal/response"
	"github.com/ctkuo2438/NUboard/internal/service"
	"github.com/gin-gonic/gin"
)

// statusOf maps an engine failure kind to its HTTP status and error code.
func statusOf(kind service.Kind) (int, response.ErrCode) {
	switch kind {
	case service.KindValidation:
		return http.StatusBadRequest, response.ErrValidation
	case service.KindUserNotFound:
		return http.StatusNotFound, response.ErrUserNotFound
	case service.KindRoleNotFound:
		return http.StatusNotFound, response.ErrRoleNotFound
	case service.KindPermissionNotFound:
		return http.StatusNotFound, response.ErrPermissionNotFound
	case service.KindAlreadyHasRole:
		return http.StatusConflict, response.ErrUserAlreadyHasRole
	case service.KindAlreadyGranted:
		return http.StatusConflict, response.ErrPermissionAlreadyGranted
	case service.KindCannotRemoveLastAdmin:
		return http.StatusUnprocessableEntity, response.ErrCannotRemoveLastAdmin
	case service.KindCannotDisableOwnAccount:
		return http.StatusUnprocessableEntity, response.ErrCannotDisableOwnAccount
	default:
		return http.StatusInternalServerError, response.ErrDatabase
	}
}

// respondError writes the envelope for an engine failure. Database failures
// carry the generic message only.
func respondError(c *gin.Context, err error) {
	kind := service.KindOf(err)
	status, code := statusOf(kind)

	message := ""
	var svcErr *service.Error
	if kind != service.KindDatabase && errors.As(err, &svcErr) {
		message = svcErr.Message
	}
	response.FailWithMessage(c, status, code, message)
}

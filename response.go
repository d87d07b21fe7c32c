package main

import (
	"errors"
	"fmt"
	"net/http"

	"zeptical/pkg/apperr"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// envelope is the body of every /api response.
type envelope struct {
	Success bool        `json:"success"`
	Result  any         `json:"result,omitempty"`
	Msg     string      `json:"msg,omitempty"`
	Kind    apperr.Kind `json:"kind,omitempty"`
}

func respondOK(c *gin.Context, result any, msg string) {
	c.JSON(http.StatusOK, envelope{Success: true, Result: result, Msg: msg})
}

// respondErr writes err with the status of its kind. Server side failures are logged.
func respondErr(c *gin.Context, log *zap.Logger, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, envelope{Success: false, Msg: apperr.MessageOf(err), Kind: kind})
}

// bindErr turns a gin binding failure into a validation error naming the first bad field.
func bindErr(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		msg := fmt.Sprintf("%s is invalid", fe.Field())
		if fe.Tag() == "required" {
			msg = fmt.Sprintf("%s is required", fe.Field())
		}
		return apperr.Wrap(err, apperr.KindValidation, msg)
	}
	return apperr.Wrap(err, apperr.KindValidation, "Invalid request body")
}

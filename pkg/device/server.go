package device

import (
	"context"
	"errors"
	"io"
	"net/http"

	"edabridge/pkg/apis"
	"edabridge/pkg/apis/response"
	"edabridge/pkg/enervent"
	"github.com/gin-gonic/gin"
	"github.com/mitchellh/mapstructure"
	"k8s.io/klog/v2"
)

func InstallHandler(group *gin.RouterGroup, mgr *Manager) {
	group.GET("/", root())
	group.GET("/summary", getSummary(mgr))
	group.GET("/mode/:mode", getMode(mgr))
	group.POST("/mode/:mode", setMode(mgr))
	group.POST("/setting/:setting/:value", setSetting(mgr))
	group.POST("/alarm/acknowledge", acknowledgeAlarm(mgr))
	group.GET("/alarm/history", getAlarmHistory(mgr))
}

func root() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, apis.Banner)
	}
}

func getSummary(mgr *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := mgr.GetSummary(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

type modeStatus struct {
	Active bool `json:"active" mapstructure:"active"`
}

func getMode(mgr *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		active, err := mgr.GetMode(c.Request.Context(), c.Param(apis.Mode))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, &modeStatus{Active: active})
	}
}

func setMode(mgr *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := map[string]interface{}{}
		if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
			klog.V(2).InfoS("Failed to parse mode request", "err", err)
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrMalformedJSON))
			return
		}

		// "active" is accepted in any form that reads as a boolean, e.g. 1 or "true".
		var target modeStatus
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &target,
		})
		if err != nil {
			abortWithError(c, err)
			return
		}
		if err := decoder.Decode(body); err != nil {
			klog.V(2).InfoS("Failed to decode mode request", "err", err)
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrRequestBody))
			return
		}

		mode := c.Param(apis.Mode)
		klog.V(2).InfoS("Setting mode", "mode", mode, "active", target.Active)
		ctx := c.Request.Context()
		if err := mgr.SetMode(ctx, mode, target.Active); err != nil {
			abortWithError(c, err)
			return
		}
		active, err := mgr.GetMode(ctx, mode)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, &modeStatus{Active: active})
	}
}

func setSetting(mgr *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		setting, value := c.Param(apis.Setting), c.Param(apis.Value)
		klog.V(2).InfoS("Setting setting", "setting", setting, "value", value)

		ctx := c.Request.Context()
		if err := mgr.SetSetting(ctx, setting, value); err != nil {
			abortWithError(c, err)
			return
		}
		settings, err := mgr.GetSettings(ctx)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"settings": settings})
	}
}

func acknowledgeAlarm(mgr *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := mgr.AcknowledgeAlarm(c.Request.Context()); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func getAlarmHistory(mgr *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		history, err := mgr.GetAlarmHistory(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"alarmHistory": history})
	}
}

func abortWithError(c *gin.Context, err error) {
	status, re := classifyError(err)
	if status >= http.StatusInternalServerError {
		klog.ErrorS(err, "Request failed", "method", c.Request.Method, "path", c.Request.URL.Path)
	} else {
		klog.V(2).InfoS("Request rejected", "method", c.Request.Method, "path", c.Request.URL.Path, "err", err)
	}
	c.AbortWithStatusJSON(status, response.NewMultiError(re))
}

// classifyError maps domain errors to HTTP status codes. Anything unrecognised came from the bus.
func classifyError(err error) (int, error) {
	switch {
	case errors.Is(err, enervent.ErrUnknownMode), errors.Is(err, enervent.ErrUnknownSetting):
		return http.StatusNotFound, response.ErrResourceNotFound(err)
	case errors.Is(err, enervent.ErrUnsupported):
		return http.StatusUnprocessableEntity, response.ErrUnsupported(err)
	case errors.Is(err, enervent.ErrInvalidValueType), errors.Is(err, enervent.ErrOutOfRange):
		return http.StatusBadRequest, response.ErrInvalidValue(err)
	case errors.Is(err, context.Canceled):
		return http.StatusInternalServerError, response.ErrInternal(err)
	default:
		return http.StatusBadGateway, response.ErrDeviceCommunication(err)
	}
}

package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/bitfantasy/procurement/internal/procurement/entity"
	"github.com/bitfantasy/procurement/internal/procurement/service"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Handlers 采购处理器集合
type Handlers struct {
	Vendor    *VendorHandler
	PO        *POHandler
	Payment   *PaymentHandler
	Analytics *AnalyticsHandler
}

// NewHandlers 创建采购处理器集合
func NewHandlers(svcs *service.Services) *Handlers {
	RegisterValidators()
	return &Handlers{
		Vendor:    NewVendorHandler(svcs.Vendor),
		PO:        NewPOHandler(svcs.PO),
		Payment:   NewPaymentHandler(svcs.Payment),
		Analytics: NewAnalyticsHandler(svcs.Analytics),
	}
}

// RegisterRoutes 注册采购路由
func (h *Handlers) RegisterRoutes(api *gin.RouterGroup) {
	vendors := api.Group("/vendors")
	{
		vendors.POST("", h.Vendor.Create)
		vendors.GET("", h.Vendor.List)
		vendors.GET("/:id", h.Vendor.Get)
		vendors.PATCH("/:id", h.Vendor.Update)
	}

	orders := api.Group("/purchase-orders")
	{
		orders.POST("", h.PO.Create)
		orders.GET("", h.PO.List)
		orders.GET("/export", h.PO.Export)
		orders.GET("/:id", h.PO.Get)
		orders.GET("/:id/outstanding", h.PO.Outstanding)
		orders.PATCH("/:id/status", h.PO.UpdateStatus)
	}

	payments := api.Group("/payments")
	{
		payments.POST("", h.Payment.Create)
		payments.GET("", h.Payment.List)
		payments.GET("/:id", h.Payment.Get)
	}

	analytics := api.Group("/analytics")
	{
		analytics.GET("/vendor-outstanding", h.Analytics.VendorOutstanding)
		analytics.GET("/payment-aging", h.Analytics.PaymentAging)
	}
}

var registerOnce sync.Once

// RegisterValidators 拒绝未知字段并注册自定义校验规则
func RegisterValidators() {
	registerOnce.Do(func() {
		binding.EnableDecoderDisallowUnknownFields = true
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			// 错误信息使用 JSON 字段名
			v.RegisterTagNameFunc(func(fld reflect.StructField) string {
				name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
				if name == "-" {
					return ""
				}
				return name
			})
			v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
				_, err := entity.ParseDate(fl.Field().String())
				return err == nil
			})
		}
	})
}

// === 响应辅助函数 ===

// Response 错误响应
type Response struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// ValidationFailed 参数校验失败，逐字段给出原因
func ValidationFailed(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, describeFieldError(fe))
		}
		c.JSON(http.StatusBadRequest, Response{
			Code:    40001,
			Message: "Validation failed",
			Errors:  details,
		})
		return
	}
	c.JSON(http.StatusBadRequest, Response{
		Code:    40001,
		Message: "Validation failed",
		Errors:  []string{err.Error()},
	})
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gt":
		return fmt.Sprintf("%s must be a positive number", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "uuid":
		return fmt.Sprintf("%s must be a UUID", field)
	case "email":
		return fmt.Sprintf("%s must be an email", field)
	case "isodate":
		return fmt.Sprintf("%s must be a valid ISO 8601 date string", field)
	case "min":
		return fmt.Sprintf("%s must contain at least %s element(s)", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	}
	return fmt.Sprintf("%s failed on %s", field, fe.Tag())
}

// HandleError 将业务错误映射为HTTP响应
func HandleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, service.ErrConflict):
		Conflict(c, err.Error())
	case errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrOverpayment):
		BadRequest(c, err.Error())
	case errors.Is(err, service.ErrValidation):
		Error(c, 40001, err.Error())
	default:
		c.Error(err)
		InternalError(c, "Internal server error")
	}
}

// parseID 校验路径ID为UUID
func parseID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		Error(c, 40001, "id must be a UUID")
		return "", false
	}
	return id, true
}

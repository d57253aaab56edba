package response

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	apperrors "bunkmate/pkg/errors"
)

type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorInfo  `json:"error,omitempty"`
	Timestamp string      `json:"timestamp"`
}

type ErrorInfo struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type ListResponse struct {
	Items interface{} `json:"items"`
	Total int         `json:"total"`
}

type PaginatedResponse struct {
	Items      interface{} `json:"items"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

func Success(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Timestamp: now(),
	})
}

func Created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, Response{
		Success:   true,
		Data:      data,
		Timestamp: now(),
	})
}

func List(c echo.Context, items interface{}, total int) error {
	return c.JSON(http.StatusOK, Response{
		Success:   true,
		Timestamp: now(),
		Data: ListResponse{
			Items: items,
			Total: total,
		},
	})
}

func Paginated(c echo.Context, items interface{}, total, page, pageSize int) error {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}

	return c.JSON(http.StatusOK, Response{
		Success:   true,
		Timestamp: now(),
		Data: PaginatedResponse{
			Items:      items,
			Total:      total,
			Page:       page,
			PageSize:   pageSize,
			TotalPages: totalPages,
		},
	})
}

func Error(c echo.Context, err error) error {
	var validationErr validator.ValidationErrors
	if errors.As(err, &validationErr) {
		return handleValidationError(c, validationErr)
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.RetryAfter > 0 {
			seconds := int(appErr.RetryAfter.Round(time.Second) / time.Second)
			if seconds < 1 {
				seconds = 1
			}
			c.Response().Header().Set("Retry-After", strconv.Itoa(seconds))
		}
		return c.JSON(appErr.Status, Response{
			Success:   false,
			Timestamp: now(),
			Error: &ErrorInfo{
				Code:    appErr.Code,
				Message: appErr.Message,
			},
		})
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return c.JSON(httpErr.Code, Response{
			Success:   false,
			Timestamp: now(),
			Error: &ErrorInfo{
				Code:    apperrors.CodeBadRequest,
				Message: http.StatusText(httpErr.Code),
			},
		})
	}

	return c.JSON(http.StatusInternalServerError, Response{
		Success:   false,
		Timestamp: now(),
		Error: &ErrorInfo{
			Code:    apperrors.CodeInternal,
			Message: "An unexpected error occurred",
		},
	})
}

func handleValidationError(c echo.Context, validationErr validator.ValidationErrors) error {
	message := "Invalid input data"
	if len(validationErr) > 0 {
		err := validationErr[0]
		field := strings.ToLower(err.Field())
		switch err.Tag() {
		case "required":
			message = field + " is required"
		case "min":
			message = field + " must be at least " + err.Param()
		case "max":
			message = field + " must be at most " + err.Param()
		case "oneof":
			message = field + " must be one of: " + err.Param()
		case "url":
			message = field + " must be a valid URL"
		default:
			message = field + " is invalid"
		}
	}

	return c.JSON(http.StatusBadRequest, Response{
		Success:   false,
		Timestamp: now(),
		Error: &ErrorInfo{
			Code:    apperrors.CodeValidation,
			Message: message,
		},
	})
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

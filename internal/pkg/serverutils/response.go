package serverutils

// BaseResponse is the JSON envelope of every endpoint.
type BaseResponse[T any] struct {
	Success   bool   `json:"success"`
	Code      int    `json:"code"`
	Message   string `json:"message"`
	ErrorType string `json:"error_type,omitempty"`
	Data      T      `json:"data"`
}

func SuccessResponse[T any](message string, data T) BaseResponse[T] {
	return BaseResponse[T]{
		Success: true,
		Code:    200,
		Message: message,
		Data:    data,
	}
}

func ErrorResponse(code int, message string) BaseResponse[any] {
	return BaseResponse[any]{
		Success: false,
		Code:    code,
		Message: message,
	}
}

// ErrorResponseWithData is used for business rejections the client can act on.
func ErrorResponseWithData(code int, errorType, message string, data any) BaseResponse[any] {
	return BaseResponse[any]{
		Success:   false,
		Code:      code,
		Message:   message,
		ErrorType: errorType,
		Data:      data,
	}
}

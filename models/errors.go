package models

// ValidationError 字段校验错误，创建/更新记录前同步抛出
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError 创建校验错误
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// OperationNotAllowedError 当前状态下不允许执行该操作
type OperationNotAllowedError struct {
	Message string
}

func (e *OperationNotAllowedError) Error() string {
	return e.Message
}

// NewOperationNotAllowedError 创建操作不允许错误
func NewOperationNotAllowedError(message string) *OperationNotAllowedError {
	return &OperationNotAllowedError{Message: message}
}

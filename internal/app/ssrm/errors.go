package ssrm

import "fmt"

// ValidationError - запрос не прошел разбор или проверку (400)
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// UnsupportedFeatureError - функция агрегации или оператор фильтра вне поддерживаемого набора (501)
type UnsupportedFeatureError struct {
	Feature string
	Value   string
}

func (e *UnsupportedFeatureError) Error() string {
	return fmt.Sprintf("unsupported %s: %q", e.Feature, e.Value)
}

// ConnectivityError - не удалось получить соединение с базой (500)
type ConnectivityError struct {
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("database connection failed: %v", e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// DriverError - ошибка выполнения пайплайна агрегации (500)
type DriverError struct {
	Err error
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("aggregation failed: %v", e.Err)
}

func (e *DriverError) Unwrap() error {
	return e.Err
}

package models

// ActionResult - нормализованный ответ любой граничной операции.
// Сообщение всегда пригодно для показа пользователю, сырые ошибки бэкенда сюда не попадают.
type ActionResult struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Succeeded создает успешный ActionResult.
func Succeeded(message string, data interface{}) ActionResult {
	return ActionResult{Success: true, Message: message, Data: data}
}

// Failed создает неуспешный ActionResult без данных.
func Failed(message string) ActionResult {
	return ActionResult{Success: false, Message: message}
}

// ErrorResponse - стандартная структура для ответа об ошибке в формате JSON.
type ErrorResponse struct {
	Error string `json:"error"`
}

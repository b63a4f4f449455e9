// Package response defines the JSON envelope every API endpoint returns.
// Clients switch on `status` without inspecting the HTTP code.
package response

import "fmt"

type Response struct {
	Status     string      `json:"status"` // "success" or "error"
	StatusCode int         `json:"status_code"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
}

func Success(statusCode int, data interface{}) Response {
	return Response{Status: "success", StatusCode: statusCode, Data: data}
}

func Error(statusCode int, msg string) Response {
	return Response{Status: "error", StatusCode: statusCode, Error: msg}
}

// Errorf is Error with fmt-style formatting of the message.
func Errorf(statusCode int, format string, args ...interface{}) Response {
	return Error(statusCode, fmt.Sprintf(format, args...))
}

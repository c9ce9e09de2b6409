package domain

import "net/http"

// Response is the outcome of one request
type Response struct {
	Status      int
	Body        []byte
	ContentType string
}

// OK is a 200 response carrying body
func OK(body []byte, contentType string) Response {
	return Response{Status: http.StatusOK, Body: body, ContentType: contentType}
}

// NotFound is a 404 response with an empty body
func NotFound() Response {
	return Response{Status: http.StatusNotFound}
}

// InternalError is a 500 response with an empty body
func InternalError() Response {
	return Response{Status: http.StatusInternalServerError}
}

// MethodNotAllowed is a 405 response with an empty body
func MethodNotAllowed() Response {
	return Response{Status: http.StatusMethodNotAllowed}
}

// IsSuccess reports a 2xx status
func (r Response) IsSuccess() bool {
	return r.Status >= 200 && r.Status < 300
}

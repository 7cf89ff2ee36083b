// Package lax implements tools for building easy RESTful APIs.
//
//	    ^ ^
//	("\(-_-)/")
//	)(       )(
//	((...) (...))
//
// Take it easy!
package lax

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Request wraps http.Request to provide convenience methods.
type Request struct {
	*http.Request
}

// JSON loads JSON data from a request into the given address.
func (request *Request) JSON(ptr any) error {
	return json.NewDecoder(request.Body).Decode(ptr)
}

// MethodHandler is a handle for an HTTP method.
//
// It may return a *Response, an error, or any value to encode as JSON.
type MethodHandler = func(request *Request) any

// View represents a view for a RESTful API.
type View struct {
	Head   MethodHandler
	Get    MethodHandler
	Post   MethodHandler
	Put    MethodHandler
	Delete MethodHandler
}

// Response represents a response to return.
type Response struct {
	Status int
	Data   any
}

// IssueDescription is an issue created with Issue.
type IssueDescription struct {
	Path    string `json:"path"`
	Problem string `json:"problem"`
}

// Issue creates an issue for use with MakeErrorListResponse.
func Issue(path, problem string) IssueDescription {
	return IssueDescription{path, problem}
}

// MakeResponse creates a response with a status code and data.
func MakeResponse(status int, data any) *Response {
	return &Response{status, data}
}

// MakeErrorResponse creates a response with a status and an error message.
func MakeErrorResponse(status int, message string) *Response {
	return &Response{status, map[string]string{"error": message}}
}

// MakeErrorListResponse creates a 400 error response from parts.
func MakeErrorListResponse(parts ...IssueDescription) *Response {
	return &Response{http.StatusBadRequest, parts}
}

func methodNotAllowedHandler(*Request) any {
	return MakeErrorResponse(http.StatusMethodNotAllowed, "Method Not Allowed")
}

// dispatch picks the handler for a request method and its default status.
func dispatch(view *View, requestMethod string) (MethodHandler, int) {
	var handler MethodHandler
	defaultStatus := http.StatusOK

	switch requestMethod {
	case http.MethodGet:
		handler = view.Get
	case http.MethodPost:
		handler = view.Post
		defaultStatus = http.StatusCreated
	case http.MethodPut:
		handler = view.Put
	case http.MethodDelete:
		handler = view.Delete
		defaultStatus = http.StatusNoContent
	case http.MethodHead:
		handler = view.Head
	}

	if handler == nil {
		return methodNotAllowedHandler, http.StatusMethodNotAllowed
	}

	return handler, defaultStatus
}

func normalise(response any, defaultStatus int) (*Response, error) {
	switch v := response.(type) {
	case *Response:
		return v, nil
	case error:
		return &Response{http.StatusInternalServerError, nil}, v
	default:
		return &Response{defaultStatus, v}, nil
	}
}

// API wraps views into handlers.
type API struct {
	// Debug shows internal error messages in responses.
	Debug bool
	Log   *zap.Logger
}

// Wrap creates an HandlerFunc from a View.
func (api *API) Wrap(view View) http.HandlerFunc {
	return func(writer http.ResponseWriter, httpRequest *http.Request) {
		request := Request{httpRequest}
		method, defaultStatus := dispatch(&view, request.Method)
		response, responseErr := normalise(method(&request), defaultStatus)

		if responseErr != nil {
			api.Log.Error("API error", zap.String("path", request.URL.Path), zap.Error(responseErr))
			message := "Internal Server Error"

			if api.Debug {
				message = responseErr.Error()
			}

			response = MakeErrorResponse(response.Status, message)
		}

		writer.Header().Set("Content-Type", "application/json")
		writer.WriteHeader(response.Status)

		if response.Status == http.StatusNoContent {
			return
		}

		outputEncoder := json.NewEncoder(writer)
		outputEncoder.SetEscapeHTML(false)

		if err := outputEncoder.Encode(response.Data); err != nil {
			api.Log.Error("API encoding error", zap.String("path", request.URL.Path), zap.Error(err))
		}
	}
}

package model

import "strings"

// Method is an HTTP verb recognised as a route registration.
type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodPatch   Method = "PATCH"
	MethodDelete  Method = "DELETE"
	MethodOptions Method = "OPTIONS"
	MethodHead    Method = "HEAD"
)

// ParseMethod maps a call property name such as "get" or "Post" onto the
// closed verb set. Anything else (including "all" and "use") is rejected.
func ParseMethod(name string) (Method, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "get":
		return MethodGet, true
	case "post":
		return MethodPost, true
	case "put":
		return MethodPut, true
	case "patch":
		return MethodPatch, true
	case "delete":
		return MethodDelete, true
	case "options":
		return MethodOptions, true
	case "head":
		return MethodHead, true
	default:
		return "", false
	}
}

// Lower returns the lower-cased verb, as used for API document keys.
func (m Method) Lower() string {
	return strings.ToLower(string(m))
}

func (m Method) String() string {
	return string(m)
}

package services

import "strings"

// User-facing messages. Nothing from the remote body, the URL or a Go error
// string is ever shown to a caller.
const (
	msgUnavailable     = "AI service is temporarily unavailable. Please try again in a moment."
	msgBusyHTML        = "AI service is currently busy processing requests. Please try again shortly."
	msgBusy            = "AI service is currently busy. Please try again shortly."
	msgGatewayHTML     = "AI service took too long to respond. The analysis may require more time. Please try again."
	msgGateway         = "AI service took too long to respond. Please try again."
	msgErrorHTML       = "AI service encountered an error. Please try again later."
	msgInternal        = "AI service encountered an internal error. Please try again later."
	msgError           = "AI service returned an error. Please try again later."
	msgConnTimeout     = "AI service is taking longer than expected to process your request. This may happen with complex analyses. Please try again."
	msgConnRefused     = "Unable to connect to AI service. The service may be temporarily unavailable. Please try again later."
	msgConnGeneric     = "Failed to communicate with AI service. Please try again later."
	msgMalformed       = "AI service returned an invalid response. Please try again later."
	msgIncompleteShape = "AI service returned an incomplete analysis. Please try again later."
)

var htmlStatusMessages = map[int]string{
	502: msgUnavailable,
	503: msgBusyHTML,
	504: msgGatewayHTML,
}

var plainStatusMessages = map[int]string{
	500: msgInternal,
	502: msgUnavailable,
	503: msgBusy,
	504: msgGateway,
}

// statusMessage picks the canned message for an HTTP failure.
func statusMessage(status int, html bool) string {
	if html {
		if msg, ok := htmlStatusMessages[status]; ok {
			return msg
		}
		return msgErrorHTML
	}
	if msg, ok := plainStatusMessages[status]; ok {
		return msg
	}
	return msgError
}

// looksLikeHTML detects proxy and gateway error pages.
func looksLikeHTML(body []byte) bool {
	s := strings.TrimSpace(string(body))
	if s == "" {
		return false
	}
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "<!doctype") ||
		strings.HasPrefix(lower, "<html") ||
		strings.Contains(lower, "<html")
}

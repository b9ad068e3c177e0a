package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strconv"
)

// maxBodyBytes caps how much of a request body is read; chat-platform
// webhooks are small.
const maxBodyBytes = 1 << 20

// Reply is the payload shape the chat platform expects: the rendered
// markdown goes into context.live_instructions for the agent, and the
// same text is echoed as a plain response for the user.
type Reply struct {
	Context   map[string]string `json:"context"`
	Responses []TextResponse    `json:"responses"`
}

// TextResponse is one text message shown to the user.
type TextResponse struct {
	Type  string   `json:"type"`
	Texts []string `json:"texts"`
}

// NewReply builds a Reply carrying the given markdown plus any extra
// context variables the chat platform should remember.
func NewReply(markdown string, extra map[string]string) Reply {
	ctx := map[string]string{"live_instructions": markdown}
	for key, value := range extra {
		ctx[key] = value
	}

	return Reply{
		Context:   ctx,
		Responses: []TextResponse{{Type: "text", Texts: []string{markdown}}},
	}
}

// readBody reads the request body as a JSON object, super-tolerantly:
// a malformed or missing body yields an empty object rather than an
// error, so a sloppy chat-platform request never fails the turn.
func readBody(r *http.Request) map[string]interface{} {
	defer r.Body.Close()

	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return map[string]interface{}{}
	}

	var body map[string]interface{}
	if err := json.Unmarshal(data, &body); err != nil || body == nil {
		return map[string]interface{}{}
	}

	return body
}

// stringValue renders a decoded JSON value as a string. Variables
// normally arrive as text, but a phone number occasionally shows up as
// a bare JSON number.
func stringValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

// objectValue returns v as a JSON object, or an empty one.
func objectValue(v interface{}) map[string]interface{} {
	m, _ := v.(map[string]interface{})
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}

// pickVar fetches a named variable from the places the chat platform
// may put it, in order: body.context, the body itself, an "x-<name>"
// header, a "<name>" header, and finally the query string.
func pickVar(name string, body map[string]interface{}, r *http.Request) string {
	if v := stringValue(objectValue(body["context"])[name]); v != "" {
		return v
	}
	if v := stringValue(body[name]); v != "" {
		return v
	}
	if v := r.Header.Get("x-" + name); v != "" {
		return v
	}
	if v := r.Header.Get(name); v != "" {
		return v
	}
	return r.URL.Query().Get(name)
}

// pickPhone tries the spots a phone number may arrive in, including the
// trigger/message text for flows that forward the user's reply
// verbatim.
func pickPhone(body map[string]interface{}, r *http.Request) string {
	ctx := objectValue(body["context"])

	candidates := []string{
		stringValue(ctx["phone"]),
		stringValue(objectValue(ctx["user"])["phone"]),
		stringValue(objectValue(body["trigger"])["text"]),
		stringValue(objectValue(body["message"])["text"]),
		r.Header.Get("x-phone"),
		r.Header.Get("phone"),
		r.URL.Query().Get("phone"),
	}

	for _, candidate := range candidates {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

var nonDigits = regexp.MustCompile(`\D`)

// NormalizePhone keeps only digits and trims an over-long number to its
// most useful tail: the last 13 digits (country code + area code + 9 +
// 8 digits), then the last 11 (area code + 9 + 8 digits).
func NormalizePhone(input string) string {
	digits := nonDigits.ReplaceAllString(input, "")
	if len(digits) > 13 {
		return digits[len(digits)-13:]
	}
	if len(digits) > 11 {
		return digits[len(digits)-11:]
	}
	return digits
}

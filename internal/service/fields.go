package service

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"
)

// responseField is a compiled JMESPath expression over a decoded JSON response body.
type responseField struct {
	expr   string
	search func(data any) (any, error)
}

func mustCompileField(expr string) responseField {
	q, err := jmespath.Compile(expr)
	if err != nil {
		panic(fmt.Sprintf("compile response field %q: %v", expr, err))
	}
	return responseField{expr: expr, search: q.Search}
}

var (
	fieldAccessToken    = mustCompileField("access_token")
	fieldTokenType      = mustCompileField("token_type")
	fieldExpiresIn      = mustCompileField("expires_in")
	fieldResourceServer = mustCompileField("resource_server_base_uri")
	fieldJobID          = mustCompileField("jobId")
	fieldResultFileURL  = mustCompileField("jobResult.resultFileURL")
	fieldReportFile     = mustCompileField("files.file")
)

// String returns the field as trimmed text. Numbers are rendered without exponent;
// missing fields, nulls and non-scalar values yield "".
func (f responseField) String(body any) string {
	s, _ := f.Lookup(body)
	return s
}

// Lookup is String with presence: ok is false when the field is missing, null or
// not a string or number, and true for a present empty string.
func (f responseField) Lookup(body any) (string, bool) {
	if body == nil {
		return "", false
	}
	v, err := f.search(body)
	if err != nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return plainNumber(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	default:
		return "", false
	}
}

// plainNumber keeps integer literals exact and expands exponent forms such as 1e3.
func plainNumber(n json.Number) string {
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10)
	}
	if fl, err := n.Float64(); err == nil {
		return strconv.FormatFloat(fl, 'f', -1, 64)
	}
	return n.String()
}

// Int64 returns the field as an integer, or false when absent or not numeric.
func (f responseField) Int64(body any) (int64, bool) {
	s := f.String(body)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	if fl, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(fl), true
	}
	return 0, false
}

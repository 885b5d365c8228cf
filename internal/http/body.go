package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
)

const maxBodySize = 1 << 20

var errInvalidBody = errors.New(msgInvalidBody)

// readBody decodes a JSON object or a form body into a flat map and reports
// whether the body was a form. Form fields keep their first value. An empty
// body yields an empty map.
func readBody(c echo.Context) (map[string]any, bool, error) {
	req := c.Request()
	ctype := req.Header.Get(echo.HeaderContentType)

	if strings.HasPrefix(ctype, echo.MIMEMultipartForm) {
		values, err := c.FormParams()
		if err != nil {
			return nil, true, fmt.Errorf("%w: %v", errInvalidBody, err)
		}
		return firstValues(values), true, nil
	}

	raw, err := readRaw(req.Body)
	if err != nil {
		return nil, false, err
	}

	// net/http only parses urlencoded bodies for POST, PUT and PATCH, and
	// DELETE carries _id in the body too.
	if strings.HasPrefix(ctype, echo.MIMEApplicationForm) {
		values, err := url.ParseQuery(string(raw))
		if err != nil {
			return nil, true, fmt.Errorf("%w: %v", errInvalidBody, err)
		}
		return firstValues(values), true, nil
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, false, nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false, fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	if out == nil {
		return nil, false, fmt.Errorf("%w: expected a JSON object", errInvalidBody)
	}
	return out, false, nil
}

func readRaw(body io.Reader) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	raw, err := io.ReadAll(io.LimitReader(body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	if len(raw) > maxBodySize {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", errInvalidBody, maxBodySize)
	}
	return raw, nil
}

func firstValues(values url.Values) map[string]any {
	out := make(map[string]any, len(values))
	for key, v := range values {
		if len(v) > 0 {
			out[key] = v[0]
		}
	}
	return out
}

// text returns body[key] as a string. Non-string scalars are formatted.
func text(body map[string]any, key string) string {
	switch v := body[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any, []any:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// updateFields flattens an update body: the nested fieldsToUpdate object is
// merged under the top-level keys and _id is removed. Blank form inputs are
// dropped as if the field had not been sent. JSON empty strings are kept so
// a client can clear an optional field.
func updateFields(body map[string]any, form bool) map[string]any {
	out := make(map[string]any, len(body))
	if nested, ok := body[nestedFieldsKey].(map[string]any); ok {
		for k, v := range nested {
			out[k] = v
		}
	}
	for k, v := range body {
		if k == nestedFieldsKey {
			continue
		}
		out[k] = v
	}
	delete(out, "_id")

	if form {
		for k, v := range out {
			if s, ok := v.(string); ok && s == "" {
				delete(out, k)
			}
		}
	}
	return out
}

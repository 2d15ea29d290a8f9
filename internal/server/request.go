package server

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"
)

// decodeEstimateRequest reads a POST /estimate body. Storefront scripts send
// ids as strings or numbers and sometimes nest them, so a few shapes are
// accepted. An empty body is an empty request.
func decodeEstimateRequest(body io.Reader) (EstimateRequest, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		if err == io.EOF {
			return EstimateRequest{}, nil
		}
		return EstimateRequest{}, err
	}
	return EstimateRequest{
		ProductID:      getString(payload, []string{"product_id", "productId", "product.id", "variation_id"}),
		ShippingMethod: getString(payload, []string{"shipping_method", "shippingMethod", "method_key", "shipping.method"}),
		Context:        getString(payload, []string{"context", "display_context"}),
	}, nil
}

// getString returns the first non-empty value from the candidate keys as a
// string. Whole numbers are accepted. Supports dot-path navigation for
// nested maps.
func getString(m map[string]any, keys []string) string {
	for _, k := range keys {
		switch v := getPath(m, k).(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			if f, ok := toFloat(v); ok && f == float64(int64(f)) {
				return strconv.FormatInt(int64(f), 10)
			}
		}
	}
	return ""
}

// getPath navigates a dot-separated key into nested maps.
func getPath(m map[string]any, path string) any {
	parts := strings.Split(path, ".")
	var cur any = m
	for _, p := range parts {
		mm, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := mm[p]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		if err == nil {
			return f, true
		}
		return 0, false
	default:
		return 0, false
	}
}

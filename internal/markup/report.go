package markup

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// reportKeys are the top-level report fields that are lifted into Report
// itself rather than copied into its metadata.
var reportKeys = map[string]bool{
	"id":          true,
	"reportId":    true,
	"title":       true,
	"summary":     true,
	"description": true,
	"metadata":    true,
}

// parseReport recognizes a "report: {...}" paragraph. Anything that is not a
// JSON object after the prefix is not a report.
func parseReport(text string, cfg *parseConfig) (Report, bool) {
	m := reportPattern.FindStringSubmatch(text)
	if m == nil {
		return Report{}, false
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(m[1]), &fields); err != nil || fields == nil {
		return Report{}, false
	}

	r := Report{ReportID: firstString(fields, "id", "reportId")}
	if r.ReportID == "" {
		r.ReportID = fmt.Sprintf("report-%d", cfg.now().UnixMilli())
	}
	r.Title = firstString(fields, "title")
	if r.Title == "" {
		r.Title = "Report " + r.ReportID
	}
	r.Summary = firstString(fields, "summary", "description")

	meta := make(map[string]any)
	if nested, ok := fields["metadata"].(map[string]any); ok {
		for k, v := range nested {
			meta[k] = v
		}
	}
	for k, v := range fields {
		if !reportKeys[k] {
			meta[k] = v
		}
	}
	if len(meta) > 0 {
		r.Metadata = meta
	}
	return r, true
}

// firstString returns the first non-empty scalar among keys, formatted as a
// string. JSON numbers are accepted so that {"id": 42} yields "42".
func firstString(fields map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := fields[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

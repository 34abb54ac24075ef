package logging

import "strings"

type infoField struct {
	label string
	value string
}

const infoAttrLimit = 8

// infoHighlightKeys are shown first, in this order, at INFO and above.
var infoHighlightKeys = []string{
	FieldAlert,
	FieldEventType,
	"error",
	FieldErrorHint,
	FieldImpact,
	"format",
	"output_path",
	"stream_offset",
	"repair_rule",
	"confidence",
	"checksum",
	"files_total",
	"files_done",
	"files_failed",
	"files_skipped",
	"progress_percent",
	"duration",
}

// selectInfoFields returns formatted info-level fields and a count of entries
// left out because of limit. limit=0 means no limit.
func selectInfoFields(attrs []kv, limit int) ([]infoField, int) {
	if len(attrs) == 0 {
		return nil, 0
	}
	used := make([]bool, len(attrs))
	result := make([]infoField, 0, infoAttrLimit)
	hidden := 0
	add := func(idx int) {
		used[idx] = true
		if limit > 0 && len(result) >= limit {
			hidden++
			return
		}
		value := attrString(attrs[idx].value)
		if len(value) > 160 && attrs[idx].key != "error" {
			hidden++
			return
		}
		result = append(result, infoField{label: displayLabel(attrs[idx].key), value: value})
	}

	for _, key := range infoHighlightKeys {
		for idx, attr := range attrs {
			if !used[idx] && attr.key == key {
				add(idx)
			}
		}
	}
	for idx, attr := range attrs {
		if used[idx] || skipInfoKey(attr.key) {
			continue
		}
		add(idx)
	}
	return result, hidden
}

// skipInfoKey reports keys already rendered in the header or too noisy for
// INFO output.
func skipInfoKey(key string) bool {
	switch key {
	case "", FieldComponent, FieldRunID, FieldFile, FieldStage:
		return true
	}
	return strings.HasSuffix(key, "_bytes") || strings.HasPrefix(key, "ffprobe.")
}

func displayLabel(key string) string {
	switch key {
	case FieldAlert:
		return "Alert"
	case FieldEventType:
		return "Event"
	case FieldErrorHint:
		return "Hint"
	case FieldImpact:
		return "Impact"
	case "output_path":
		return "Output"
	case "stream_offset":
		return "Offset"
	case "repair_rule":
		return "Rule"
	case "files_total":
		return "Files"
	case "files_done":
		return "Done"
	case "files_failed":
		return "Failed"
	case "files_skipped":
		return "Skipped"
	case "progress_percent":
		return "Progress"
	default:
		return titleizeKey(key)
	}
}

func titleizeKey(key string) string {
	parts := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	})
	for i, part := range parts {
		parts[i] = strings.ToUpper(part[:1]) + strings.ToLower(part[1:])
	}
	return strings.Join(parts, " ")
}

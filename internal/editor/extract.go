// internal/editor/extract.go
package editor

// The edit function's payload shape has shifted across upstream revisions:
// a list of choices, a nested object, or a flat field. Extraction is an
// ordered list of probes over the decoded document; the first probe yielding
// a non-empty string wins.

type extractor func(doc any) (string, bool)

var extractors = []extractor{
	// message[0].image — list-of-choices shape
	func(doc any) (string, bool) { return str(field(index(field(doc, "message"), 0), "image")) },
	// message.image
	func(doc any) (string, bool) { return str(field(field(doc, "message"), "image")) },
	// image
	func(doc any) (string, bool) { return str(field(doc, "image")) },
	// edited_image_url
	func(doc any) (string, bool) { return str(field(doc, "edited_image_url")) },
	// result as a bare string
	func(doc any) (string, bool) { return str(field(doc, "result")) },
	// result.image
	func(doc any) (string, bool) { return str(field(field(doc, "result"), "image")) },
}

// ExtractEditedURL probes doc for an edited-image URL.
func ExtractEditedURL(doc any) (string, bool) {
	for _, probe := range extractors {
		if url, ok := probe(doc); ok {
			return url, true
		}
	}
	return "", false
}

func field(v any, name string) any {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return m[name]
}

func index(v any, i int) any {
	s, ok := v.([]any)
	if !ok || i < 0 || i >= len(s) {
		return nil
	}
	return s[i]
}

func str(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok && s != ""
}

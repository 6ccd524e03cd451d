package editor

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var doc any
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	return doc
}

func TestExtractEditedURL_AllShapes(t *testing.T) {
	t.Parallel()

	const want = "https://x/y.png"

	cases := []struct {
		name string
		body string
	}{
		{"list of choices", `{"message":[{"image":"https://x/y.png"}]}`},
		{"nested object", `{"message":{"image":"https://x/y.png"}}`},
		{"flat image", `{"image":"https://x/y.png"}`},
		{"flat edited_image_url", `{"edited_image_url":"https://x/y.png"}`},
		{"result string", `{"result":"https://x/y.png"}`},
		{"result object", `{"result":{"image":"https://x/y.png"}}`},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			url, ok := ExtractEditedURL(decode(t, tc.body))
			require.True(t, ok)
			assert.Equal(t, want, url)
		})
	}
}

func TestExtractEditedURL_PriorityOrder(t *testing.T) {
	t.Parallel()

	// The choices shape outranks the flat field when both are present.
	doc := decode(t, `{"message":[{"image":"https://a/1.png"}],"image":"https://b/2.png"}`)
	url, ok := ExtractEditedURL(doc)
	require.True(t, ok)
	assert.Equal(t, "https://a/1.png", url)
}

func TestExtractEditedURL_Unrecognized(t *testing.T) {
	t.Parallel()

	cases := []string{
		`{"status":"ok"}`,
		`{"message":null}`,
		`{"message":[]}`,
		`{"message":[{"text":"no image here"}]}`,
		`{"message":{"image":""}}`,
		`{"message":42}`,
		`[]`,
		`"just a string"`,
		`null`,
	}

	for _, raw := range cases {
		url, ok := ExtractEditedURL(decode(t, raw))
		assert.False(t, ok, "input %s", raw)
		assert.Empty(t, url)
	}
}

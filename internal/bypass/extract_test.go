package bypass

import (
	"errors"
	"testing"
)

func TestExtractPayload(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "plain json passes through",
			body: `{"data":{"children":[]}}`,
			want: `{"data":{"children":[]}}`,
		},
		{
			name: "whitespace trimmed",
			body: "\n  {\"ok\":true}  \n",
			want: `{"ok":true}`,
		},
		{
			name: "json inside html pre tag",
			body: `<html><head></head><body><pre>{"data":{"children":[]}}</pre></body></html>`,
			want: `{"data":{"children":[]}}`,
		},
		{
			name: "first pre wins",
			body: `<body><pre>{"a":1}</pre><pre>{"b":2}</pre></body>`,
			want: `{"a":1}`,
		},
		{
			name: "pre with surrounding whitespace",
			body: "<html><body><pre>\n  {\"x\":[1,2]}\n</pre></body></html>",
			want: `{"x":[1,2]}`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractPayload(tt.body)
			if err != nil {
				t.Fatalf("extractPayload error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractPayloadErrors(t *testing.T) {
	t.Parallel()
	for _, body := range []string{
		"",
		"   \n ",
		"<html><body>blocked</body></html>",
		"<html><body><pre>   </pre></body></html>",
	} {
		_, err := extractPayload(body)
		if !errors.Is(err, ErrParse) {
			t.Fatalf("extractPayload(%q) err = %v, want ErrParse", body, err)
		}
	}
}

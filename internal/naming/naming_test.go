package naming

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFingerprintDeterministic(t *testing.T) {
	hexKey := regexp.MustCompile(`^[0-9a-f]{8}$`)

	urls := []string{
		"https://example.com/watch?v=abc123",
		"https://example.com/watch?v=abc124",
		"",
		"not a url at all",
	}

	for _, url := range urls {
		key := Fingerprint(url)
		require.Regexp(t, hexKey, key)
		require.Equal(t, key, Fingerprint(url), "fingerprint must be stable for %q", url)
	}

	require.NotEqual(t, Fingerprint(urls[0]), Fingerprint(urls[1]))
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name      string
		title     string
		maxLength int
		want      string
	}{
		{
			name:      "unsafe characters removed and spaces collapsed",
			title:     "My Video!!! Title",
			maxLength: 100,
			want:      "My_Video_Title",
		},
		{
			name:      "empty input yields empty string",
			title:     "",
			maxLength: 100,
			want:      "",
		},
		{
			name:      "whitespace runs collapse to one underscore",
			title:     "a  \t b",
			maxLength: 100,
			want:      "a_b",
		},
		{
			name:      "already safe name unchanged",
			title:     "plain-name_01",
			maxLength: 100,
			want:      "plain-name_01",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Sanitize(tt.title, tt.maxLength))
		})
	}
}

func TestSanitizeTruncationPreservesExtension(t *testing.T) {
	long := ""
	for i := 0; i < 30; i++ {
		long += "abcde"
	}

	got := Sanitize(long+".mp4", 20)
	require.Len(t, got, 20)
	require.Regexp(t, `\.mp4$`, got)

	// Output alphabet stays within the safe set regardless of input.
	safe := regexp.MustCompile(`^[A-Za-z0-9_.-]*$`)
	require.Regexp(t, safe, got)
	require.Regexp(t, safe, Sanitize("日本語のタイトル (テスト)", 100))
}

func TestSanitizeNeverExceedsMaxLength(t *testing.T) {
	titles := []string{
		"short",
		"a very long title with many words that keeps going on and on and on and on and on and on and on and on",
		"extension.heavy.name.with.dots.mkv",
	}

	for _, title := range titles {
		require.LessOrEqual(t, len(Sanitize(title, 50)), 50, "title %q", title)
	}
}

func TestEncodeRFC5987(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "attr-chars pass through", in: "My_Video-Title.mp4", want: "My_Video-Title.mp4"},
		{name: "space encoded", in: "a b", want: "a%20b"},
		{name: "utf8 bytes percent-encoded", in: "héllo", want: "h%C3%A9llo"},
		{name: "asterisk and quote encoded", in: `a*"b`, want: "a%2A%22b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, EncodeRFC5987(tt.in))
		})
	}
}

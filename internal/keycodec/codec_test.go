package keycodec

import (
	"testing"
)

func TestEncodeKnownNames(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"index.html", "index_DOT_html"},
		{"styles.css", "styles_DOT_css"},
		{"script.js", "script_DOT_js"},
		{"lib/util.js", "lib_SLASH_util_DOT_js"},
		{"price$.md", "price_DOLLAR__DOT_md"},
		{"notes#1", "notes_HASH_1"},
		{"a[0]", "a_LBRACKET_0_RBRACKET_"},
		{"plain", "plain"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Encode(tc.name); got != tc.want {
				t.Errorf("Encode(%q) = %q, want %q", tc.name, got, tc.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	names := []string{
		"index.html",
		"styles.css",
		"a.b.c.d",
		"dir/sub/file.js",
		"$#[]/._",
		"under_score.txt",
		// Names that contain escape tokens verbatim must still round-trip.
		"weird_DOT_name",
		"_UNDER_",
		"__",
		"",
		"unicode-ñ.html",
	}

	for _, name := range names {
		key := Encode(name)
		got, err := Decode(key)
		if err != nil {
			t.Errorf("Decode(Encode(%q)) error: %v", name, err)
			continue
		}
		if got != name {
			t.Errorf("Decode(Encode(%q)) = %q", name, got)
		}
	}
}

func TestNoCollisions(t *testing.T) {
	// Pairs that would collide under a naive sequential-replace scheme.
	pairs := [][2]string{
		{"a.b", "a_DOT_b"},
		{"x_UNDER_y", "x_y"},
		{"_", "_UNDER_"},
		{"a/b", "a_SLASH_b"},
	}

	for _, p := range pairs {
		if Encode(p[0]) == Encode(p[1]) {
			t.Errorf("Encode(%q) == Encode(%q) == %q", p[0], p[1], Encode(p[0]))
		}
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, key := range []string{"_", "_DOT", "a_XYZ_b", "trailing_"} {
		if _, err := Decode(key); err == nil {
			t.Errorf("Decode(%q) succeeded, want error", key)
		}
	}
}

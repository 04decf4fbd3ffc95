// Package keycodec maps file names to storage-safe keys and back.
//
// The storage path syntax forbids '.', '$', '#', '[', ']' and '/'. Each
// forbidden character is replaced by a multi-character token, and '_' itself
// is escaped so that a name already containing a token verbatim (for example
// "weird_DOT_name") still round-trips. Encode is character-wise, the token
// set is prefix-free, and every '_' in an encoded key starts a token, so
// Decode(Encode(x)) == x and distinct names never collide.
package keycodec

import (
	"fmt"
	"strings"
)

// tokens maps each escaped character to its token. Every token starts with
// '_' and no token is a prefix of another.
var tokens = []struct {
	ch    byte
	token string
}{
	{'.', "_DOT_"},
	{'$', "_DOLLAR_"},
	{'#', "_HASH_"},
	{'[', "_LBRACKET_"},
	{']', "_RBRACKET_"},
	{'/', "_SLASH_"},
	{'_', "_UNDER_"},
}

// Encode converts a file name into a storage-safe key.
func Encode(name string) string {
	var b strings.Builder
	b.Grow(len(name))

outer:
	for i := 0; i < len(name); i++ {
		for _, t := range tokens {
			if name[i] == t.ch {
				b.WriteString(t.token)
				continue outer
			}
		}
		b.WriteByte(name[i])
	}
	return b.String()
}

// Decode converts a storage key back into the original file name. It fails
// on keys that did not come from Encode (a '_' that starts no known token).
func Decode(key string) (string, error) {
	var b strings.Builder
	b.Grow(len(key))

	for i := 0; i < len(key); {
		if key[i] != '_' {
			b.WriteByte(key[i])
			i++
			continue
		}

		matched := false
		for _, t := range tokens {
			if strings.HasPrefix(key[i:], t.token) {
				b.WriteByte(t.ch)
				i += len(t.token)
				matched = true
				break
			}
		}
		if !matched {
			return "", fmt.Errorf("malformed key %q: unknown escape at offset %d", key, i)
		}
	}
	return b.String(), nil
}

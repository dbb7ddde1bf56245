package validate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty passes through", "", ""},
		{"plain text unchanged", "alice_01", "alice_01"},
		{"strips script tag", "<script>alert(1)</script>", "alert(1)"},
		{"strips nested tag trick", "<scr<script>ipt>x", "ipt&gt;x"},
		{"escapes stray angle bracket", "a < b", "a &lt; b"},
		{"escapes quotes", `say "hi" 'there'`, "say &#34;hi&#34; &#39;there&#39;"},
		{"trims whitespace", "  bob  ", "bob"},
		{"ampersand untouched", "fish & chips", "fish & chips"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"plain",
		"<b>bold</b>",
		`<img src=x onerror="alert(1)">`,
		"a < b > c",
		`quotes "and' more`,
		"  padded  ",
		"&amp; already escaped",
	}

	for _, in := range inputs {
		once := Sanitize(in)
		require.Equal(t, once, Sanitize(once), "sanitize must be idempotent for %q", in)
	}
}

func TestUsername(t *testing.T) {
	valid := []string{"abc", "alice_01", "ABC_def_123", "xxxxxxxxxxxxxxxxxxxx"} // 20 chars
	for _, s := range valid {
		require.True(t, Username(s), "expected %q valid", s)
	}

	invalid := []string{"", "ab", "xxxxxxxxxxxxxxxxxxxxx", "has space", "dash-ed", "émile", "semi;colon"}
	for _, s := range invalid {
		require.False(t, Username(s), "expected %q invalid", s)
	}
}

func TestEmail(t *testing.T) {
	valid := []string{"alice@x.com", "a.b+c@sub.domain.org", "user_1@host.co"}
	for _, s := range valid {
		require.True(t, Email(s), "expected %q valid", s)
	}

	invalid := []string{"", "plain", "a@b", "a@b.c", "@x.com", "a@.com", "a b@x.com"}
	for _, s := range invalid {
		require.False(t, Email(s), "expected %q invalid", s)
	}
}

func TestPasswordStrength(t *testing.T) {
	valid := []string{"P@ssw0rd1", "longenough!", "........", `has"quote`}
	for _, s := range valid {
		require.True(t, PasswordStrength(s), "expected %q strong", s)
	}

	invalid := []string{"", "short!", "noSpecialChars1", "sh0rt.."}
	for _, s := range invalid {
		require.False(t, PasswordStrength(s), "expected %q weak", s)
	}
}

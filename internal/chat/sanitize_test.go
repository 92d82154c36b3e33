package chat

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestCleanContent(t *testing.T) {
	s := NewSanitizer(500, 50)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello", "hello"},
		{"trim", "  hi  ", "hi"},
		{"tags", "<b>bold</b> text", "bold text"},
		{"script token", "hi<script>alert(1)</script>", "hialert(1)"},
		{"script any case", "ScRiPt kiddie", "kiddie"},
		{"spliced script", "scscriptript", ""},
		{"spliced tag", "<<b>script>x", ">x"},
		{"only markup", "<p></p>", ""},
		{"unclosed tag kept", "a < b", "a < b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.CleanContent(tt.in))
		})
	}
}

func TestCleanContent_Truncates(t *testing.T) {
	s := NewSanitizer(500, 50)

	got := s.CleanContent(strings.Repeat("é", 600))
	assert.Equal(t, 500, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "..."))

	exact := strings.Repeat("x", 500)
	assert.Equal(t, exact, s.CleanContent(exact))
}

func TestCleanDisplayName(t *testing.T) {
	s := NewSanitizer(500, 50)

	assert.Equal(t, "Bob", s.CleanDisplayName("<b>Bob</b>"))
	assert.Equal(t, "Tom  Jerry", s.CleanDisplayName(`Tom & "Jerry"`))
	assert.Equal(t, DefaultDisplayName, s.CleanDisplayName(""))
	assert.Equal(t, DefaultDisplayName, s.CleanDisplayName("   <i></i> "))
	assert.Equal(t, DefaultDisplayName, s.CleanDisplayName("script"))

	long := s.CleanDisplayName(strings.Repeat("n", 80))
	assert.Equal(t, 50, utf8.RuneCountInString(long))
}

func TestCleanDisplayName_StripsBeforeTruncating(t *testing.T) {
	s := NewSanitizer(500, 50)

	name := strings.Repeat("a", 48) + "&&&&" + "bc"
	assert.Equal(t, strings.Repeat("a", 48)+"bc", s.CleanDisplayName(name))
}

func TestSanitize_Idempotent(t *testing.T) {
	s := NewSanitizer(500, 50)
	inputs := []string{
		"<b>Bob</b>",
		"hi<script>alert(1)</script>",
		"scscriptript<<i>>",
		"  padded  ",
		"a < b > c",
		`"quoted" & 'single'`,
		strings.Repeat("word ", 150),
		strings.Repeat("a", 49) + " " + strings.Repeat("b", 10),
		"SCRIPTscript<script>",
	}
	for _, in := range inputs {
		c := s.CleanContent(in)
		assert.Equal(t, c, s.CleanContent(c), "content %q", in)

		n := s.CleanDisplayName(in)
		assert.Equal(t, n, s.CleanDisplayName(n), "name %q", in)
	}
}

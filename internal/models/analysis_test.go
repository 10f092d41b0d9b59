package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringList_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want StringList
	}{
		{"real json array", `["pain", "settlement"]`, StringList{"pain", "settlement"}},
		{"array encoded as string", `"[\"pain\", \"settlement\"]"`, StringList{"pain", "settlement"}},
		{"comma separated string", `"pain, settlement"`, StringList{"pain", "settlement"}},
		{"single value", `"pain"`, StringList{"pain"}},
		{"empty string", `""`, nil},
		{"empty array", `[]`, StringList{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got StringList
			require.NoError(t, got.UnmarshalJSON([]byte(tt.in)))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStringList_UnmarshalJSON_Invalid(t *testing.T) {
	var got StringList
	assert.Error(t, got.UnmarshalJSON([]byte(`42`)))
}

func TestNormalizeStringList(t *testing.T) {
	assert.Nil(t, NormalizeStringList(nil))
	assert.Equal(t, StringList{"a", "b"}, NormalizeStringList([]string{"a", "b"}))
	assert.Equal(t, StringList{"a", "b"}, NormalizeStringList([]any{"a", "b", ""}))
	assert.Equal(t, StringList{"a", "b"}, NormalizeStringList(`["a", "b"]`))
	assert.Equal(t, StringList{"a", "b"}, NormalizeStringList("a, b"))
	assert.Nil(t, NormalizeStringList(3.14))
}

func TestCleanLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Spanish", "Spanish"},
		{"'Spanish'", "Spanish"},
		{" 'Spanish' ", "Spanish"},
		{"  English", "English"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanLanguage(tt.in), "input %q", tt.in)
	}
}

func TestValidTestimonialStatus(t *testing.T) {
	for _, s := range TestimonialStatuses {
		assert.True(t, ValidTestimonialStatus(s), s)
	}
	assert.False(t, ValidTestimonialStatus("approved"))
	assert.False(t, ValidTestimonialStatus(""))
	assert.False(t, ValidTestimonialStatus("Flagged"))
}

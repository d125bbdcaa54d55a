package server

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCORSAllow(t *testing.T) {
	cases := []struct {
		allowed []string
		origin  string
		want    string
	}{
		{[]string{"*"}, "http://a.example", "*"},
		{[]string{"http://a.example", "*"}, "http://a.example", "*"},
		{[]string{"http://a.example"}, "http://a.example", "http://a.example"},
		{[]string{"http://a.example"}, "http://b.example", ""},
		{[]string{"*"}, "", ""},
	}
	for _, tc := range cases {
		got := CORSOptions{AllowedOrigins: tc.allowed}.allow(tc.origin)
		require.Equal(t, tc.want, got, "allowed %v, origin %q", tc.allowed, tc.origin)
	}
}

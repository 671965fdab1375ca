package main

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateNamePreservesMultibyteRunes(t *testing.T) {
	cases := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short untouched", "Editor", 36, "Editor"},
		{"long ascii clipped", "An Extraordinarily Long Application Name Indeed", 36, "An Extraordinarily Long Application…"},
		{"cjk clipped on rune boundary", "网易云音乐播放器", 5, "网易云音…"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := truncateName(tc.in, tc.n)
			assert.Equal(t, tc.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSampleSpec(t *testing.T) {
	cases := []struct {
		in    string
		every int
		ok    bool
	}{
		{"1/50", 50, true},
		{"50", 50, true},
		{" 2/10 ", 5, true},
		{"1/1", 1, true},
		{"1", 1, true},
		{"", 0, false},
		{"0", 0, false},
		{"x/10", 0, false},
		{"1/y", 0, false},
	}
	for _, tc := range cases {
		every, ok := parseSampleSpec(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.every, every, tc.in)
	}
}

func TestDebugSamplerEvery(t *testing.T) {
	s := newDebugSampler(3)
	var got []bool
	for i := 0; i < 6; i++ {
		got = append(got, s.Allow())
	}
	assert.Equal(t, []bool{true, false, false, true, false, false}, got)

	s.Set(1)
	for i := 0; i < 3; i++ {
		assert.True(t, s.Allow())
	}
}

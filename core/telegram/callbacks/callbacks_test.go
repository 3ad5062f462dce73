package callbacks

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func TestParseCallbackData(t *testing.T) {
	cases := []struct {
		name          string
		cb            *tele.Callback
		unique, value string
	}{
		{"nil", nil, "", ""},
		{"routed", &tele.Callback{Unique: "show", Data: "road|trip"}, "show", "road|trip"},
		{"raw", &tele.Callback{Data: "\fshow|road|trip"}, "show", "road|trip"},
		{"no payload", &tele.Callback{Data: "\fcancel_delete"}, "cancel_delete", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u, p := ParseCallbackData(tc.cb)
			assert.Equal(t, tc.unique, u)
			assert.Equal(t, tc.value, p)
		})
	}
}

func TestEncodeLimit(t *testing.T) {
	data, err := Encode("use_playlist", "road-trip")
	require.NoError(t, err)
	assert.Equal(t, "\fuse_playlist|road-trip", data)

	_, err = Encode("use_playlist", strings.Repeat("x", 60))
	assert.Error(t, err)
	assert.False(t, Fits("delete_playlist", strings.Repeat("я", 30)))
}

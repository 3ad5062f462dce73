// Package callbacks reads and writes the callback_data Telebot attaches to
// inline buttons: "\f<unique>|<payload>".
package callbacks

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// MaxDataLen is Telegram's callback_data limit in bytes.
const MaxDataLen = 64

// Encode renders the callback_data of a button, failing past MaxDataLen.
func Encode(unique, payload string) (string, error) {
	data := "\f" + unique
	if payload != "" {
		data += "|" + payload
	}
	if len(data) > MaxDataLen {
		return "", fmt.Errorf("callback data for %q is %d bytes, limit %d", unique, len(data), MaxDataLen)
	}
	return data, nil
}

// Fits reports whether payload can ride on a button with the given unique.
func Fits(unique, payload string) bool {
	_, err := Encode(unique, payload)
	return err == nil
}

// ParseCallbackData splits cb into unique and payload. Telebot fills Unique
// itself for routed buttons; raw data is parsed here. Only the first "|"
// separates, payloads may contain more.
func ParseCallbackData(cb *tele.Callback) (unique, payload string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	unique, payload, _ = strings.Cut(strings.TrimPrefix(cb.Data, "\f"), "|")
	return strings.TrimSpace(unique), payload
}

// CallbackPayload is the payload of the pressed button.
func CallbackPayload(c tele.Context) string {
	_, payload := ParseCallbackData(c.Callback())
	return payload
}

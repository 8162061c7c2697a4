package clients

import (
	"errors"
	"net/url"
	"strings"
	"unicode"
)

// ErrNoWhatsAppNumber is returned when the store has no contact number
// configured to send orders to.
var ErrNoWhatsAppNumber = errors.New("whatsapp number not configured")

// WhatsAppLinker builds click-to-chat links that open a conversation with the
// store prefilled with a message.
type WhatsAppLinker struct {
	baseURL string
}

func NewWhatsAppLinker(baseURL string) *WhatsAppLinker {
	if baseURL == "" {
		baseURL = "https://wa.me"
	}
	return &WhatsAppLinker{baseURL: strings.TrimRight(baseURL, "/")}
}

// OrderLink returns the link for phone, which may carry any formatting;
// only its digits are kept.
func (l *WhatsAppLinker) OrderLink(phone, message string) (string, error) {
	number := digitsOnly(phone)
	if number == "" {
		return "", ErrNoWhatsAppNumber
	}

	text := strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
	return l.baseURL + "/" + number + "?text=" + text, nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r <= unicode.MaxASCII && unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

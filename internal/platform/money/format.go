// Package money renders amounts for kiosk screens.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultLocale is used when no locale or an unparseable one is configured.
const DefaultLocale = "fr-FR"

// Formatter prints euro amounts with the separators of a locale.
type Formatter struct {
	tag     language.Tag
	printer *message.Printer
	prefix  bool
}

// NewFormatter parses locale as a BCP 47 tag, falling back to DefaultLocale.
func NewFormatter(locale string) Formatter {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil || tag == language.Und {
		tag = language.MustParse(DefaultLocale)
	}
	base, _ := tag.Base()
	return Formatter{
		tag:     tag,
		printer: message.NewPrinter(tag),
		prefix:  base.String() == "en",
	}
}

// Locale returns the tag in use.
func (f Formatter) Locale() string {
	return f.tag.String()
}

// Format renders amount rounded to cents, e.g. "1 234,50 €" for fr-FR and "€1,234.50" for en.
func (f Formatter) Format(amount decimal.Decimal) string {
	if f.printer == nil {
		f = NewFormatter(DefaultLocale)
	}
	value := amount.Round(2).InexactFloat64()
	text := f.printer.Sprint(number.Decimal(value, number.Scale(2)))
	if f.prefix {
		return "€" + text
	}
	return text + " €"
}

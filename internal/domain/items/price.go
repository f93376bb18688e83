package items

import (
	"fmt"
	"strconv"
	"strings"
)

// Tabla de símbolos por moneda. También define el set permitido:
// una currency es válida si y solo si está acá.
var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
}

// Monedas sin unidades menores (se muestran sin decimales).
var zeroDecimalCurrencies = map[string]bool{
	"JPY": true,
}

// FormatPrice arma el precio para mostrar a partir de unidades menores:
// FormatPrice(500, "USD") => "$5.00", FormatPrice(100, "JPY") => "¥100".
func FormatPrice(priceMinor int64, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))

	symbol, ok := currencySymbols[currency]
	if !ok {
		symbol = "$"
	}

	if zeroDecimalCurrencies[currency] {
		return symbol + groupThousands(strconv.FormatInt(priceMinor, 10))
	}

	major := priceMinor / 100
	cents := priceMinor % 100
	if cents < 0 {
		cents = -cents
	}
	return fmt.Sprintf("%s%s.%02d", symbol, groupThousands(strconv.FormatInt(major, 10)), cents)
}

// FormattedPrice es el precio del item listo para mostrar.
func (it Item) FormattedPrice() string {
	return FormatPrice(it.PriceMinor, it.Currency)
}

// groupThousands inserta separadores de miles ("1234567" => "1,234,567").
func groupThousands(digits string) string {
	neg := strings.HasPrefix(digits, "-")
	if neg {
		digits = digits[1:]
	}

	n := len(digits)
	if n <= 3 {
		if neg {
			return "-" + digits
		}
		return digits
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	head := n % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 && !(neg && b.Len() == 1) {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

package dte

import (
	"fmt"
	"strconv"
)

// Kind is the SII document type code.
type Kind int

const (
	Invoice    Kind = 33
	Receipt    Kind = 39
	CreditNote Kind = 61
)

// Code returns the numeric code as sent in tipodoc fields.
func (k Kind) Code() string {
	return strconv.Itoa(int(k))
}

// Label returns the Spanish document name shown to merchants.
func (k Kind) Label() string {
	switch k {
	case Invoice:
		return "Factura"
	case Receipt:
		return "Boleta"
	case CreditNote:
		return "Nota de Crédito"
	default:
		return "Documento " + k.Code()
	}
}

func (k Kind) Valid() bool {
	return k == Invoice || k == Receipt || k == CreditNote
}

func (k Kind) String() string {
	return k.Code()
}

// MarshalText encodes the kind as its code string ("39").
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.Code()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, ok := ParseKind(string(text))
	if !ok {
		return fmt.Errorf("unknown document kind %q", string(text))
	}
	*k = parsed
	return nil
}

// ParseKind accepts a numeric document code ("33", "39", "61").
func ParseKind(code string) (Kind, bool) {
	n, err := strconv.Atoi(code)
	if err != nil {
		return 0, false
	}
	k := Kind(n)
	if !k.Valid() {
		return 0, false
	}
	return k, true
}

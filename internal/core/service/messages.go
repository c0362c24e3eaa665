package service

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/rl1809/storefront/internal/core/domain"
)

const (
	DefaultLocale   = "pt-BR"
	DefaultCurrency = "BRL"
)

// English texts double as catalog keys.
var messageKeys = map[domain.NotificationKind]string{
	domain.KindProductAdded:   "Product added to cart",
	domain.KindProductRemoved: "Product removed from cart",
	domain.KindAmountUpdated:  "Product quantity updated",
	domain.KindStockExceeded:  "Requested quantity is out of stock",
	domain.KindAddFailed:      "Error adding product",
	domain.KindRemoveFailed:   "Error removing product",
	domain.KindUpdateFailed:   "Error changing product quantity",
	domain.KindOrderPlaced:    "Order placed!",
	domain.KindFinalizeFailed: "Error finalizing order",
}

var portuguese = map[domain.NotificationKind]string{
	domain.KindProductAdded:   "Produto adicionado ao carrinho",
	domain.KindProductRemoved: "Produto removido do carrinho",
	domain.KindAmountUpdated:  "Quantidade do produto atualizada",
	domain.KindStockExceeded:  "Quantidade solicitada fora de estoque",
	domain.KindAddFailed:      "Erro na adição do produto",
	domain.KindRemoveFailed:   "Erro na remoção do produto",
	domain.KindUpdateFailed:   "Erro na alteração de quantidade do produto",
	domain.KindOrderPlaced:    "Pedido realizado!",
	domain.KindFinalizeFailed: "Erro ao finalizar o pedido",
}

var supportedLocales = []language.Tag{language.English, language.BrazilianPortuguese}

// Messages renders notification texts and prices for one locale.
type Messages struct {
	tag     language.Tag
	printer *message.Printer
	unit    currency.Unit
}

func NewMessages(locale, currencyCode string) (*Messages, error) {
	requested, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return nil, fmt.Errorf("parse currency %q: %w", currencyCode, err)
	}

	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for kind, key := range messageKeys {
		if err := b.SetString(language.English, key, key); err != nil {
			return nil, err
		}
		if err := b.SetString(language.BrazilianPortuguese, key, portuguese[kind]); err != nil {
			return nil, err
		}
	}

	_, index, _ := language.NewMatcher(supportedLocales).Match(requested)
	tag := supportedLocales[index]

	return &Messages{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(b)),
		unit:    unit,
	}, nil
}

// MustMessages is NewMessages for values known to be valid.
func MustMessages(locale, currencyCode string) *Messages {
	m, err := NewMessages(locale, currencyCode)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Messages) Locale() language.Tag {
	return m.tag
}

func (m *Messages) Text(kind domain.NotificationKind) string {
	key, ok := messageKeys[kind]
	if !ok {
		return string(kind)
	}
	return m.printer.Sprintf(key)
}

func (m *Messages) Price(amount decimal.Decimal) string {
	return m.printer.Sprint(currency.Symbol(m.unit.Amount(amount.InexactFloat64())))
}

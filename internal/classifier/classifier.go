
package classifier

import (
	"strings"

	"olx-go-crawler/internal/models"
)

type Kind string

const (
	KindNone    Kind = "none"
	KindFree    Kind = "free"
	KindPerUnit Kind = "per_unit"
	KindBarter  Kind = "barter"
	KindAmount  Kind = "amount"
)

// Labels the marketplace prints instead of an amount.
const (
	FreeLabel    = "Безкоштовно"
	PerUnitLabel = "за 1 шт."
	BarterLabel  = "Обмін"
)

type Price struct {
	Kind  Kind
	Value string
}

// ClassifyPrice normalizes the text of a price block. found is false when the
// page has no price block at all.
//
// Amounts lose their trailing currency token and the remaining tokens are
// joined without a separator, so "12 500 грн." becomes "12500". Labelled
// prices are kept verbatim.
func ClassifyPrice(text string, found bool) Price {
	if !found {
		return Price{Kind: KindNone, Value: models.None}
	}

	tokens := strings.Fields(text)
	switch {
	case text == FreeLabel:
		return Price{Kind: KindFree, Value: text}
	case len(tokens) >= 3 && strings.Join(tokens[len(tokens)-3:], " ") == PerUnitLabel:
		return Price{Kind: KindPerUnit, Value: text}
	case text == BarterLabel:
		return Price{Kind: KindBarter, Value: text}
	}

	if len(tokens) == 0 {
		return Price{Kind: KindAmount, Value: ""}
	}
	return Price{Kind: KindAmount, Value: strings.Join(tokens[:len(tokens)-1], "")}
}

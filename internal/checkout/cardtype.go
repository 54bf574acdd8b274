package checkout

import (
	"fmt"
	"regexp"
)

type CardType string

const (
	CardUnset      CardType = ""
	CardVisa       CardType = "Visa"
	CardMasterCard CardType = "MasterCard"
	CardAmex       CardType = "American Express"
	CardJCB        CardType = "JCB"
	CardDiners     CardType = "Diners Club"
	CardRuPay      CardType = "RuPay"
)

// cardRule describes how numbers and CVCs of one card network look.
// groups drives display spacing; nil means blocks of four.
type cardRule struct {
	pattern   *regexp.Regexp
	maxDigits int
	cvcLen    int
	groups    []int
	message   string
}

var cardOrder = []CardType{CardVisa, CardMasterCard, CardAmex, CardJCB, CardDiners, CardRuPay}

var cardRules = map[CardType]cardRule{
	CardVisa: {
		pattern:   regexp.MustCompile(`^4[0-9]{12}(?:[0-9]{3})?$`),
		maxDigits: 16,
		cvcLen:    3,
		message:   "Visa cards must start with 4 and be 13 or 16 digits.",
	},
	CardMasterCard: {
		pattern:   regexp.MustCompile(`^5[1-5][0-9]{14}$`),
		maxDigits: 16,
		cvcLen:    3,
		message:   "MasterCard must start with 51-55 and be 16 digits.",
	},
	CardAmex: {
		pattern:   regexp.MustCompile(`^3[47][0-9]{13}$`),
		maxDigits: 15,
		cvcLen:    4,
		groups:    []int{4, 6, 5},
		message:   "American Express cards must start with 34 or 37 and be 15 digits.",
	},
	CardJCB: {
		pattern:   regexp.MustCompile(`^(?:2131|1800|35[0-9]{3})[0-9]{11}$`),
		maxDigits: 16,
		cvcLen:    3,
		message:   "JCB cards must start with 2131, 1800, or 35 and be 15-16 digits.",
	},
	CardDiners: {
		pattern:   regexp.MustCompile(`^3(?:0[0-5]|[689][0-9])[0-9]{11}$`),
		maxDigits: 14,
		cvcLen:    3,
		groups:    []int{4, 6, 4},
		message:   "Diners Club cards must start with 300-305, 36, or 38-39 and be 14 digits.",
	},
	CardRuPay: {
		pattern:   regexp.MustCompile(`^6[0-9]{15}$`),
		maxDigits: 16,
		cvcLen:    3,
		message:   "RuPay cards must start with 6 and be 16 digits.",
	},
}

// genericCard applies when no card type has been chosen.
var genericCard = cardRule{
	pattern:   regexp.MustCompile(`^[0-9]{13,19}$`),
	maxDigits: 19,
	cvcLen:    3,
	message:   "Card number must be 13-19 digits.",
}

// CardTypes lists the supported networks in display order.
func CardTypes() []CardType {
	out := make([]CardType, len(cardOrder))
	copy(out, cardOrder)
	return out
}

func (t CardType) Known() bool {
	_, ok := cardRules[t]
	return ok
}

// CVCLength is the number of digits the security code must have.
func (t CardType) CVCLength() int {
	return ruleFor(t).cvcLen
}

func ruleFor(t CardType) cardRule {
	if r, ok := cardRules[t]; ok {
		return r
	}
	return genericCard
}

func (r cardRule) cvcMessage(t CardType) string {
	if r.cvcLen != 3 && t.Known() {
		return fmt.Sprintf("%s cards require %d-digit CVV.", t, r.cvcLen)
	}
	return fmt.Sprintf("CVV must be %d digits for this card type.", r.cvcLen)
}

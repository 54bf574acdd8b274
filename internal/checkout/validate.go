package checkout

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	nameSpecialChars  = regexp.MustCompile(`[!@#$%^&*(),?":{}|<>\-_=+]`)
	emailSpecialChars = regexp.MustCompile(`[!#$%^&*(),?":{}|<>\-_=+]`)
	addressSpecial    = regexp.MustCompile(`[!@#$%^&*(),?":{}|<>]`)
	placeSpecial      = regexp.MustCompile(`[!@#$%^&*(),?":{}|<>0-9]`)
	leadingSpace      = regexp.MustCompile(`^\s`)
	multiSpace        = regexp.MustCompile(`\s{2,}`)
	anyDigit          = regexp.MustCompile(`[0-9]`)
	anySpace          = regexp.MustCompile(`\s`)

	namePattern   = regexp.MustCompile(`^[A-Z][a-zA-Z ]{2,39}$`)
	emailPattern  = regexp.MustCompile(`^[a-z][a-z0-9]*(?:\.[a-z0-9]+)*@[a-z]+\.(?:com|org|net|edu|gov|co|io|in|biz|info|tv|us|ca|uk|eu)$`)
	phonePattern  = regexp.MustCompile(`^[6-9][0-9]{9}$`)
	placePattern  = regexp.MustCompile(`^[A-Za-z]+(?: [A-Za-z]+)*$`)
	zipPattern    = regexp.MustCompile(`^[0-9]{6}$`)
	expiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/([0-9]{2})$`)
	digitsOnly    = regexp.MustCompile(`^[0-9]+$`)
)

const (
	emailMinLen    = 13
	emailMaxLen    = 50
	addressMinLen  = 10
	placeMinLen    = 2
	phoneMaxRepeat = 6
	cardMaxRepeat  = 15
)

// Validate returns the user-facing error for value in field, or "" when it is valid.
// cardType selects the card-number and CVC rules; now anchors the expiry check.
func Validate(field Field, value string, cardType CardType, now time.Time) string {
	switch field {
	case FieldName:
		return validateName(value)
	case FieldEmail:
		return validateEmail(value)
	case FieldPhone:
		return validatePhone(value)
	case FieldAddress:
		return validateAddress(value)
	case FieldCity:
		return validatePlace("City", value)
	case FieldState:
		return validatePlace("State", value)
	case FieldZipCode:
		return validateZipCode(value)
	case FieldPaymentMethod:
		return validatePaymentMethod(PaymentMethod(value))
	case FieldCardType:
		return validateCardType(CardType(value))
	case FieldCardNumber:
		return validateCardNumber(value, cardType)
	case FieldCardExpiry:
		return validateCardExpiry(value, now)
	case FieldCardCVC:
		return validateCardCVC(value, cardType)
	default:
		return ""
	}
}

func validateName(v string) string {
	switch {
	case v == "":
		return "Name is required."
	case nameSpecialChars.MatchString(v):
		return "Name cannot contain special characters."
	case leadingSpace.MatchString(v):
		return "Name should not start with a space."
	case multiSpace.MatchString(v):
		return "Name should not contain multiple consecutive spaces."
	case anyDigit.MatchString(v):
		return "Name cannot contain numbers."
	case strings.HasSuffix(v, " "):
		return "Name should not end with a space."
	case !namePattern.MatchString(v):
		return "Name must start with a capital letter, contain only letters and spaces, and be between 3 to 40 characters long."
	}
	return ""
}

func validateEmail(v string) string {
	if v == "" {
		return "Email is required."
	}
	v = strings.ToLower(v)
	switch {
	case utf8.RuneCountInString(v) > emailMaxLen:
		return "Email cannot exceed 50 characters."
	case utf8.RuneCountInString(v) < emailMinLen:
		return "Email must be at least 13 characters long."
	case emailSpecialChars.MatchString(v):
		return "Email cannot contain special characters."
	case v[0] < 'a' || v[0] > 'z':
		return "Email must start with a letter."
	case strings.Contains(v, "..") || !emailPattern.MatchString(v):
		return "Please enter a valid email address (user@domain.com)."
	}
	return ""
}

func validatePhone(v string) string {
	switch {
	case v == "":
		return "Phone number is required."
	case !phonePattern.MatchString(v):
		return "Phone number must be 10 digits and start with 6, 7, 8, or 9."
	case longestRun(v) > phoneMaxRepeat:
		return "Phone number cannot have more than 6 identical consecutive digits."
	}
	return ""
}

func validateAddress(v string) string {
	switch {
	case v == "":
		return "Address is required."
	case leadingSpace.MatchString(v):
		return "Address cannot start with a space."
	case utf8.RuneCountInString(v) < addressMinLen:
		return "Address must be at least 10 characters long."
	case addressSpecial.MatchString(v):
		return "Address contains invalid special characters."
	}
	return ""
}

// validatePlace covers city and state, which share one rule set.
func validatePlace(label, v string) string {
	switch {
	case v == "":
		return label + " is required."
	case leadingSpace.MatchString(v):
		return label + " name cannot start with a space."
	case placeSpecial.MatchString(v):
		return label + " name cannot contain special characters or numbers."
	case utf8.RuneCountInString(v) < placeMinLen:
		return label + " name must be at least 2 characters long."
	case !placePattern.MatchString(v):
		return label + " name must start with a letter and contain only letters and single spaces."
	}
	return ""
}

func validateZipCode(v string) string {
	switch {
	case v == "":
		return "ZIP code is required."
	case !zipPattern.MatchString(v):
		return "ZIP code must be exactly 6 digits."
	}
	return ""
}

func validatePaymentMethod(m PaymentMethod) string {
	switch {
	case m == PaymentUnset:
		return "Please select a payment method"
	case !m.Valid():
		return "Unsupported payment method"
	}
	return ""
}

func validateCardType(t CardType) string {
	switch {
	case t == CardUnset:
		return "Please select a card type"
	case !t.Known():
		return "Unsupported card type"
	}
	return ""
}

func validateCardNumber(v string, t CardType) string {
	cleaned := anySpace.ReplaceAllString(v, "")
	if cleaned == "" {
		return "Card number is required."
	}
	rule := ruleFor(t)
	if !rule.pattern.MatchString(cleaned) {
		return rule.message
	}
	if longestRun(cleaned) > cardMaxRepeat {
		return "Card number cannot have all identical digits."
	}
	return ""
}

func validateCardExpiry(v string, now time.Time) string {
	if v == "" {
		return "Expiry date is required."
	}
	m := expiryPattern.FindStringSubmatch(v)
	if m == nil {
		return "Invalid expiry date format (MM/YY)."
	}
	month, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[2])
	if !ExpiresAt(month, year, now.Location()).After(now) {
		return "Expiry date must be in the future."
	}
	return ""
}

// ExpiresAt is the instant a card printed MM/YY stops being valid: the first
// day of the month after its expiry month, with YY read as 20YY.
func ExpiresAt(month, year int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(2000+year, time.Month(month)+1, 1, 0, 0, 0, 0, loc)
}

func validateCardCVC(v string, t CardType) string {
	if v == "" {
		return "CVV is required."
	}
	rule := ruleFor(t)
	if len(v) != rule.cvcLen || !digitsOnly.MatchString(v) {
		return rule.cvcMessage(t)
	}
	return ""
}

// longestRun returns the length of the longest run of one repeated byte.
func longestRun(s string) int {
	best, cur := 0, 0
	for i := 0; i < len(s); i++ {
		if i > 0 && s[i] == s[i-1] {
			cur++
		} else {
			cur = 1
		}
		if cur > best {
			best = cur
		}
	}
	return best
}

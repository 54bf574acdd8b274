package checkout

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	nonDigits       = regexp.MustCompile(`[^0-9]`)
	nonNameChars    = regexp.MustCompile(`[^a-zA-Z\s]`)
	spaceRuns       = regexp.MustCompile(`\s+`)
	emailDisallowed = regexp.MustCompile(`[^a-z0-9.@_-]`)
	atRuns          = regexp.MustCompile(`@{2,}`)
	dotRuns         = regexp.MustCompile(`\.{2,}`)
)

const (
	phoneDigits  = 10
	zipDigits    = 6
	expiryMaxLen = 5
)

// Normalize rewrites a raw keystroke value into the form stored on the session.
// It never rejects input; validation decides whether the result is acceptable.
func Normalize(field Field, raw string, cardType CardType) string {
	switch field {
	case FieldName:
		return normalizeName(raw)
	case FieldEmail:
		return normalizeEmail(raw)
	case FieldPhone:
		return truncate(nonDigits.ReplaceAllString(raw, ""), phoneDigits)
	case FieldZipCode:
		return truncate(nonDigits.ReplaceAllString(raw, ""), zipDigits)
	case FieldCardNumber:
		rule := ruleFor(cardType)
		return groupDigits(truncate(nonDigits.ReplaceAllString(raw, ""), rule.maxDigits), rule.groups)
	case FieldCardExpiry:
		return normalizeExpiry(raw)
	case FieldCardCVC:
		return truncate(nonDigits.ReplaceAllString(raw, ""), ruleFor(cardType).cvcLen)
	case FieldAddress, FieldCity, FieldState:
		return strings.TrimLeftFunc(raw, unicode.IsSpace)
	default:
		return raw
	}
}

func normalizeName(raw string) string {
	s := strings.TrimLeftFunc(raw, unicode.IsSpace)
	s = nonNameChars.ReplaceAllString(s, "")
	s = spaceRuns.ReplaceAllString(s, " ")
	s = strings.TrimLeft(s, " ")

	b := []byte(s)
	for i := range b {
		if (i == 0 || b[i-1] == ' ') && b[i] >= 'a' && b[i] <= 'z' {
			b[i] -= 'a' - 'A'
		}
	}
	return string(b)
}

func normalizeEmail(raw string) string {
	s := strings.ToLower(raw)
	s = spaceRuns.ReplaceAllString(s, "")
	s = emailDisallowed.ReplaceAllString(s, "")
	s = atRuns.ReplaceAllString(s, "@")
	s = dotRuns.ReplaceAllString(s, ".")
	s = strings.NewReplacer(".@", "@", "@.", "@").Replace(s)
	if i := strings.Index(s, "@"); i >= 0 {
		s = strings.Trim(s[:i], ".") + s[i:]
	}
	return s
}

func normalizeExpiry(raw string) string {
	d := nonDigits.ReplaceAllString(raw, "")
	if len(d) < 2 {
		return d
	}
	month := d[:2]
	if m, _ := strconv.Atoi(month); m > 12 {
		month = "12"
	} else if m < 1 {
		month = "01"
	}
	year := d[2:min(len(d), 4)]
	if year == "" {
		return month
	}
	return truncate(month+"/"+year, expiryMaxLen)
}

// groupDigits spaces digits into the given block sizes; nil means blocks of four.
func groupDigits(d string, groups []int) string {
	if d == "" {
		return d
	}
	var parts []string
	for i := 0; len(d) > 0; i++ {
		size := 4
		if groups != nil {
			if i >= len(groups) {
				parts = append(parts, d)
				break
			}
			size = groups[i]
		}
		n := min(size, len(d))
		parts = append(parts, d[:n])
		d = d[n:]
	}
	return strings.Join(parts, " ")
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

package functions

import (
	"strings"
	"time"
	"unicode"

	"tabula-hq/formula/pkg/schema"
)

// Lead score weights.
const (
	scoreEmail        = 20
	scorePhone        = 15
	scoreCompany      = 15
	scoreSeniorTitle  = 20
	scoreManagerTitle = 10
	scoreSource       = 15
	scoreRecent       = 15
	maxLeadScore      = 100

	recentActivityWindow = 30 * 24 * time.Hour
)

var (
	seniorTitleWords  = []string{"ceo", "cto", "cfo", "founder", "vp", "director", "head"}
	managerTitleWords = []string{"manager", "lead"}
	warmSources       = []string{"referral", "partner"}
)

func customFunctions() []*Definition {
	return []*Definition{
		{
			Name:        "LEAD_SCORE",
			Category:    CategoryCustom,
			MinArgs:     0,
			MaxArgs:     0,
			Description: "Scores the current record from 0 to 100 using its contact, title, source and activity fields",
			Syntax:      "LEAD_SCORE()",
			Execute:     leadScore,
		},
	}
}

func leadScore(_ []any, ctx *schema.Context) (any, error) {
	if ctx == nil || ctx.Record == nil {
		return 0.0, nil
	}
	rec := ctx.Record
	field := func(keys ...string) any {
		for _, k := range keys {
			if v, ok := rec.LookupFold(k); ok && !IsBlank(v) {
				return v
			}
		}
		return nil
	}

	score := 0
	if IsEmail(field("email")) {
		score += scoreEmail
	}
	if IsPhone(field("phone")) {
		score += scorePhone
	}
	if !IsBlank(field("company")) {
		score += scoreCompany
	}

	titleWords := words(ToText(field("title", "jobTitle")))
	switch {
	case containsAny(titleWords, seniorTitleWords):
		score += scoreSeniorTitle
	case containsAny(titleWords, managerTitleWords):
		score += scoreManagerTitle
	}

	source := strings.ToLower(strings.TrimSpace(ToText(field("source", "leadSource"))))
	for _, s := range warmSources {
		if source == s {
			score += scoreSource
			break
		}
	}

	if last, ok := ToTime(field("lastActivity", "lastActivityDate", "last_activity")); ok {
		if Clock().Sub(last) <= recentActivityWindow {
			score += scoreRecent
		}
	}

	return float64(min(score, maxLeadScore)), nil
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func containsAny(haystack, needles []string) bool {
	for _, h := range haystack {
		for _, n := range needles {
			if h == n {
				return true
			}
		}
	}
	return false
}

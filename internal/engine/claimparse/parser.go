// Package claimparse turns raw patent claims text into structured claims.
//
// Claims text in filings is only loosely formatted: numbered blocks
// ("1. A method...") are the common case, but OCR artifacts, page numbers
// and inconsistent delimiters are frequent.  The parser is therefore
// deliberately forgiving: text that cannot be split into numbered blocks
// becomes a single independent claim rather than an error, because partial
// structure is strictly more useful downstream than rejecting the patent.
package claimparse

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/claimscope/claimscope/internal/domain/patent"
)

var (
	// Block anchors, tried in order. The first pattern that yields at
	// least one non-trivial block wins.
	reNumberedBlock = regexp.MustCompile(`(?m)^\s*(\d+)[.)]\s+`)
	reWordedBlock   = regexp.MustCompile(`(?mi)^\s*claim\s+(\d+)[.:]\s*`)

	// Line-based fallback when neither anchor splits the text.
	reClaimLine = regexp.MustCompile(`^\s*(\d+)[.)]\s*(.*)$`)

	// Back-reference phrases marking a claim as dependent.
	reDependency = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:according to|as (?:claimed|defined|set forth|recited) in|of) claims?\s+\d+`),
		regexp.MustCompile(`(?i)claims?\s+\d+[,\s]+(?:wherein|where|further|additionally)`),
		regexp.MustCompile(`(?i)(?:the|a|an)\s+\w+\s+(?:of|according to)\s+claim\s+\d+`),
	}

	// Every claim number mentioned in a back-reference, including
	// enumerations ("claims 1, 3 and 5").
	reClaimRef = regexp.MustCompile(`(?i)claims?\s+(\d+(?:\s*(?:,|and|or)\s*\d+)*)`)
	reDigits   = regexp.MustCompile(`\d+`)

	// Claim-type heuristics applied to the opening words.
	reKindMethod    = regexp.MustCompile(`(?i)^(?:a|the)\s+(?:method|process)\b`)
	reKindApparatus = regexp.MustCompile(`(?i)^(?:a|an|the)\s+(?:apparatus|device|machine|equipment)\b`)
	reKindSystem    = regexp.MustCompile(`(?i)^(?:a|the)\s+system\b`)

	// Key-element extraction.
	reElementBody = regexp.MustCompile(`(?is)(?:comprising|including|having|consists?\s+of)[:\s]+(.+?)(?:\bwherein\b|\bwhere\b|;|$)`)
	reElementSep  = regexp.MustCompile(`(?i)[;,](?:\s*and\b)?|\s+and\s+`)
	reElementNoun = regexp.MustCompile(`(?i)^(?:an\s+|a\s+|the\s+)?(\w+(?:\s+\w+){0,3})`)
	reQuoted      = regexp.MustCompile(`"([^"]+)"`)

	// Text cleanup.
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reSpaces     = regexp.MustCompile(`[ \t]+`)
	rePageNumber = regexp.MustCompile(`\n\s*-?\d+-?\s*\n`)
)

// minClaimTextLen filters out blocks that are too short to be a real claim,
// typically stray numbering left over from page headers.
const minClaimTextLen = 10

const maxKeyElements = 10

type rawClaim struct {
	number int
	text   string
}

// Parse splits raw claims text into a structured, validated claim set.
//
// Blank input yields an empty set.  Text that cannot be split into numbered
// blocks collapses into a single independent claim numbered 1.  The returned
// set always satisfies patent.ClaimSet.Validate: dependent claims whose
// back-reference cannot be resolved to a preceding claim in the set are
// marked independent instead.
func Parse(claimsText string) patent.ClaimSet {
	text := preprocess(claimsText)
	if text == "" {
		return patent.ClaimSet{}
	}

	raws := splitBlocks(text, reNumberedBlock)
	if len(raws) == 0 {
		raws = splitBlocks(text, reWordedBlock)
	}
	if len(raws) == 0 {
		raws = splitLines(text)
	}
	if len(raws) == 0 {
		raws = []rawClaim{{number: 1, text: text}}
	}

	raws = dedupeAndSort(raws)

	numbers := make(map[int]bool, len(raws))
	for _, r := range raws {
		numbers[r.number] = true
	}

	claims := make(patent.ClaimSet, 0, len(raws))
	for _, r := range raws {
		c := patent.Claim{
			Number:      r.number,
			Text:        r.text,
			Kind:        detectKind(r.text),
			KeyElements: extractKeyElements(r.text),
		}
		if parent, ok := resolveParent(r.text, r.number, numbers); ok {
			c.ParentNumber = parent
		} else {
			c.IsIndependent = true
		}
		claims = append(claims, c)
	}
	return claims
}

func preprocess(s string) string {
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reSpaces.ReplaceAllString(s, " ")
	s = rePageNumber.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}

// splitBlocks slices the text between consecutive anchor matches. The
// anchor's captured digits become the claim number; everything up to the
// next anchor (or end of text) becomes the claim body.
func splitBlocks(text string, anchor *regexp.Regexp) []rawClaim {
	locs := anchor.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}
	raws := make([]rawClaim, 0, len(locs))
	for i, loc := range locs {
		number, err := strconv.Atoi(text[loc[2]:loc[3]])
		if err != nil || number < 1 {
			continue
		}
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		body := strings.TrimSpace(text[loc[1]:end])
		if len(body) <= minClaimTextLen {
			continue
		}
		raws = append(raws, rawClaim{number: number, text: body})
	}
	return raws
}

// splitLines is the fallback parser: any line opening with "N." or "N)"
// starts a new claim, and lines without a number continue the current one.
func splitLines(text string) []rawClaim {
	var raws []rawClaim
	var cur *rawClaim
	for _, line := range strings.Split(text, "\n") {
		if m := reClaimLine.FindStringSubmatch(line); m != nil {
			number, err := strconv.Atoi(m[1])
			if err == nil && number >= 1 {
				raws = append(raws, rawClaim{number: number, text: strings.TrimSpace(m[2])})
				cur = &raws[len(raws)-1]
				continue
			}
		}
		if cur != nil {
			cur.text = strings.TrimSpace(cur.text + " " + strings.TrimSpace(line))
		}
	}
	out := raws[:0]
	for _, r := range raws {
		if len(r.text) > minClaimTextLen {
			out = append(out, r)
		}
	}
	return out
}

func dedupeAndSort(raws []rawClaim) []rawClaim {
	sort.SliceStable(raws, func(i, j int) bool { return raws[i].number < raws[j].number })
	out := raws[:0]
	seen := make(map[int]bool, len(raws))
	for _, r := range raws {
		if seen[r.number] {
			continue
		}
		seen[r.number] = true
		out = append(out, r)
	}
	return out
}

// resolveParent reports whether the claim text carries a usable
// back-reference.  The parent is the smallest referenced claim number that
// both precedes this claim and exists in the set; references that cannot be
// resolved leave the claim independent.
func resolveParent(text string, own int, numbers map[int]bool) (int, bool) {
	dependent := false
	for _, re := range reDependency {
		if re.MatchString(text) {
			dependent = true
			break
		}
	}
	if !dependent {
		return 0, false
	}
	parent := 0
	for _, m := range reClaimRef.FindAllStringSubmatch(text, -1) {
		for _, d := range reDigits.FindAllString(m[1], -1) {
			n, err := strconv.Atoi(d)
			if err != nil || n < 1 || n >= own || !numbers[n] {
				continue
			}
			if parent == 0 || n < parent {
				parent = n
			}
		}
	}
	if parent == 0 {
		return 0, false
	}
	return parent, true
}

func detectKind(text string) patent.ClaimKind {
	switch {
	case reKindMethod.MatchString(text):
		return patent.KindMethod
	case reKindApparatus.MatchString(text):
		return patent.KindApparatus
	case reKindSystem.MatchString(text):
		return patent.KindSystem
	default:
		return patent.KindUnspecified
	}
}

// extractKeyElements pulls short technical phrases out of the claim body:
// quoted terms, plus the noun phrases following structuring connectors like
// "comprising" or "having".  Best effort only; an empty result is normal.
func extractKeyElements(text string) []string {
	var elements []string
	seen := make(map[string]bool)
	add := func(s string) {
		s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `.,:;`))
		if len(s) <= 3 {
			return
		}
		key := strings.ToLower(s)
		if seen[key] {
			return
		}
		seen[key] = true
		elements = append(elements, s)
	}

	for _, m := range reQuoted.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	for _, m := range reElementBody.FindAllStringSubmatch(text, -1) {
		for _, seg := range reElementSep.Split(m[1], -1) {
			seg = strings.TrimSpace(seg)
			if seg == "" {
				continue
			}
			if n := reElementNoun.FindStringSubmatch(seg); n != nil {
				add(n[1])
			}
		}
	}
	if len(elements) > maxKeyElements {
		elements = elements[:maxKeyElements]
	}
	return elements
}

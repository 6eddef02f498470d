package wordweave

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// Length thresholds, counted in grapheme clusters.
const (
	MinSegmentLength  = 50   // Extracted container text
	MinMaskedLength   = 30   // Text left after masking learned words
	MinDirectText     = 10   // Direct text child that makes a container eligible
	MinProviderText   = 30   // Reduced text worth a provider call
	MaxSegmentLength  = 2000 // Truncation bound for segment text
	MinLatinWordLen   = 5
	MinCJKWordLen     = 2
	MaxCJKWindowLen   = 4
	MinContextLength  = 30 // Parent text below this borrows the grandparent
)

var (
	latinWordRe = regexp.MustCompile(`\b[a-zA-Z]{5,}\b`)
	hanRunRe    = regexp.MustCompile(`[\x{4e00}-\x{9fff}]+`)
	sentenceRe  = regexp.MustCompile(`[.!?]+`)
	pureLatinRe = regexp.MustCompile(`^[a-zA-Z]+$`)
)

var codePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(const|let|var|function|class|import|export|return|if|else|for|while)\s`),
	regexp.MustCompile(`[{}();]\s*$`),
	regexp.MustCompile(`^\s*(//|/\*|\*|#)`),
	regexp.MustCompile(`\w+\.\w+\(`),
	regexp.MustCompile(`console\.`),
	regexp.MustCompile(`https?://`),
}

// StopWords are common English words never offered as candidates.
var StopWords = map[string]bool{}

func init() {
	for _, w := range strings.Fields(`the a an is are was were be been being have has had do does did
		will would could should may might must shall can need dare ought used to of in for on with at
		by from as into through during before after above below between under again further then once
		here there when where why how all each few more most other some such no nor not only own same
		so than too very just and but if or because until while this that these those what which who
		whom i you he she it we they me him her us them my your his its our their`) {
		StopWords[w] = true
	}
}

// TextLength counts the user-perceived characters of the trimmed text.
func TextLength(text string) int {
	return uniseg.GraphemeClusterCount(strings.TrimSpace(text))
}

// IsCodeText reports whether text looks like source code or a URL.
func IsCodeText(text string) bool {
	trimmed := strings.TrimSpace(text)
	for _, re := range codePatterns {
		if re.MatchString(trimmed) {
			return true
		}
	}
	return false
}

// ContainsHan reports whether s has at least one CJK ideograph.
func ContainsHan(s string) bool {
	for _, r := range s {
		if isHan(r) {
			return true
		}
	}
	return false
}

// ExtractCandidates returns the candidate terms of text: Latin words of at
// least five letters that are not stop words, followed by every 2 to 4
// character window of each CJK run. Duplicates are removed case-insensitively,
// keeping the first spelling seen.
func ExtractCandidates(text string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(w string) {
		k := strings.ToLower(w)
		if seen[k] {
			return
		}
		seen[k] = true
		out = append(out, w)
	}

	for _, w := range latinWordRe.FindAllString(text, -1) {
		if !StopWords[strings.ToLower(w)] {
			add(w)
		}
	}

	for _, run := range hanRunRe.FindAllString(text, -1) {
		runes := []rune(run)
		for n := MinCJKWordLen; n <= MaxCJKWindowLen && n <= len(runes); n++ {
			for i := 0; i+n <= len(runes); i++ {
				add(string(runes[i : i+n]))
			}
		}
	}
	return out
}

// AcceptableTerm applies the per-script minimum lengths to a provider term:
// CJK terms need two characters, pure Latin words five letters.
func AcceptableTerm(term string) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return false
	}
	if ContainsHan(term) && utf8.RuneCountInString(term) < MinCJKWordLen {
		return false
	}
	if pureLatinRe.MatchString(term) && len(term) < MinLatinWordLen {
		return false
	}
	return true
}

// ReconstructText keeps only the sentences of text that contain one of the
// given words, so the provider sees the uncached vocabulary in context.
func ReconstructText(text string, words []string) string {
	latin := make(map[string]bool, len(words))
	var han []string
	for _, w := range words {
		lw := strings.ToLower(w)
		latin[lw] = true
		if ContainsHan(w) {
			han = append(han, lw)
		}
	}

	var kept []string
	for _, sentence := range sentenceRe.Split(text, -1) {
		if strings.TrimSpace(sentence) == "" {
			continue
		}
		if sentenceHas(sentence, latin, han) {
			kept = append(kept, sentence)
		}
	}
	if len(kept) == 0 {
		return ""
	}
	return strings.TrimSpace(strings.Join(kept, ". ")) + "."
}

func sentenceHas(sentence string, latin map[string]bool, han []string) bool {
	for _, w := range latinWordRe.FindAllString(sentence, -1) {
		if latin[strings.ToLower(w)] {
			return true
		}
	}
	lower := strings.ToLower(sentence)
	for _, w := range han {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// MaskWords removes every boundary-delimited occurrence of the given words.
func MaskWords(text string, words map[string]bool) string {
	for w := range words {
		if w == "" {
			continue
		}
		for {
			i := IndexWord(text, w)
			if i < 0 {
				break
			}
			text = text[:i] + text[i+len(w):]
		}
	}
	return text
}

// IndexFold returns the byte index of the first case-insensitive occurrence
// of substr in s, or -1.
func IndexFold(s, substr string) int {
	return indexFoldFrom(s, substr, 0, false)
}

// IndexWord returns the byte index of the first case-insensitive occurrence
// of word in s whose edges sit on word boundaries, or -1. A Latin edge needs
// a neighbour that is neither an ASCII word character nor a CJK ideograph;
// a CJK edge needs none, so CJK words match inside CJK runs.
func IndexWord(s, word string) int {
	return indexFoldFrom(s, word, 0, true)
}

func indexFoldFrom(s, substr string, from int, bounded bool) int {
	n := len(substr)
	if n == 0 {
		return -1
	}
	first, _ := utf8.DecodeRuneInString(substr)
	last, _ := utf8.DecodeLastRuneInString(substr)

	for i := from; i+n <= len(s); {
		if strings.EqualFold(s[i:i+n], substr) {
			if !bounded || (leftBoundary(s, i, first) && rightBoundary(s, i+n, last)) {
				return i
			}
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return -1
}

func leftBoundary(s string, i int, edge rune) bool {
	if isHan(edge) || i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isBoundaryBlocker(r)
}

func rightBoundary(s string, j int, edge rune) bool {
	if isHan(edge) || j == len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[j:])
	return !isBoundaryBlocker(r)
}

// isBoundaryBlocker reports whether r glues onto an adjacent Latin word.
func isBoundaryBlocker(r rune) bool {
	return r == '_' || (r < utf8.RuneSelf && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')) || isHan(r)
}

package wordweave

import (
	"strings"
	"unicode"
)

// LanguageNames maps language codes to human-readable names for AI prompts.
var LanguageNames = map[string]string{
	"en":    "English",
	"zh-CN": "Chinese (Simplified)",
	"zh-TW": "Chinese (Traditional)",
	"zh":    "Chinese",
	"ja":    "Japanese",
	"ko":    "Korean",
	"fr":    "French",
	"de":    "German",
	"es":    "Spanish",
	"it":    "Italian",
	"pt":    "Portuguese",
	"ru":    "Russian",
	"ar":    "Arabic",
	"he":    "Hebrew",
	"vi":    "Vietnamese",
	"th":    "Thai",
}

// RTLLanguages contains language codes that use right-to-left text direction.
var RTLLanguages = map[string]bool{
	"ar": true, // Arabic
	"he": true, // Hebrew
	"fa": true, // Persian/Farsi
	"ur": true, // Urdu
}

// GetLanguageName returns the human-readable name for a language code.
// Falls back to the code itself if not found.
func GetLanguageName(langCode string) string {
	if name, ok := LanguageNames[langCode]; ok {
		return name
	}
	if name, ok := LanguageNames[BaseLang(langCode)]; ok {
		return name
	}
	return langCode
}

// BaseLang extracts the base language code (e.g., "zh" from "zh-CN" or "zh_CN").
func BaseLang(lang string) string {
	lang = strings.ReplaceAll(lang, "_", "-")
	base, _, _ := strings.Cut(lang, "-")
	return strings.ToLower(base)
}

// GetDirection returns "rtl" for right-to-left languages, "ltr" otherwise.
func GetDirection(langCode string) string {
	if RTLLanguages[BaseLang(langCode)] {
		return "rtl"
	}
	return "ltr"
}

// ToHTMLLang converts a locale code to HTML lang attribute format (e.g., "zh_CN" → "zh-CN").
func ToHTMLLang(langCode string) string {
	return strings.ReplaceAll(langCode, "_", "-")
}

// DetectLanguage returns the dominant language of text by script counts:
// "ja" when kana exceed 10%, "ko" when hangul exceed 10%, "zh" when han
// exceed 30%, otherwise "en".
func DetectLanguage(text string) string {
	var han, kana, hangul, latin int
	for _, r := range text {
		switch {
		case isHan(r):
			han++
		case unicode.In(r, unicode.Hiragana, unicode.Katakana):
			kana++
		case r >= 0xAC00 && r <= 0xD7AF:
			hangul++
		case r < unicode.MaxASCII && unicode.IsLetter(r):
			latin++
		}
	}

	total := han + kana + hangul + latin
	if total == 0 {
		total = 1
	}

	switch {
	case float64(kana)/float64(total) > 0.1:
		return "ja"
	case float64(hangul)/float64(total) > 0.1:
		return "ko"
	case float64(han)/float64(total) > 0.3:
		return "zh"
	}
	return "en"
}

// IsNativeLanguage reports whether a detected language matches the user's
// native language. Simplified and traditional Chinese are one family.
func IsNativeLanguage(detected, native string) bool {
	if detected == "zh" && BaseLang(native) == "zh" {
		return true
	}
	return detected == native
}

// RouteLanguages decides whether text in the detected language is processed
// under mode, and returns the source and target languages to translate
// between.
func RouteLanguages(text string, s Settings) (source, target string, ok bool) {
	detected := DetectLanguage(text)
	native := IsNativeLanguage(detected, s.NativeLanguage)

	switch s.ProcessMode {
	case ModeNativeOnly:
		if !native {
			return "", "", false
		}
	case ModeTargetOnly:
		if native {
			return "", "", false
		}
	}

	if native {
		return s.NativeLanguage, s.TargetLanguage, true
	}
	return detected, s.NativeLanguage, true
}

// isHan reports whether r is a CJK unified ideograph (U+4E00–U+9FFF).
func isHan(r rune) bool {
	return r >= 0x4E00 && r <= 0x9FFF
}

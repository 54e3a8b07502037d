package raster

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// winAnsiHigh covers the 0x80-0x9F block of WinAnsiEncoding. The rest of
// the table agrees with Latin-1.
var winAnsiHigh = [32]rune{
	0x20AC, 0, 0x201A, 0x0192, 0x201E, 0x2026, 0x2020, 0x2021,
	0x02C6, 0x2030, 0x0160, 0x2039, 0x0152, 0, 0x017D, 0,
	0, 0x2018, 0x2019, 0x201C, 0x201D, 0x2022, 0x2013, 0x2014,
	0x02DC, 0x2122, 0x0161, 0x203A, 0x0153, 0, 0x017E, 0x0178,
}

// standardDiffs lists where StandardEncoding departs from WinAnsi
var standardDiffs = map[int]rune{
	0x27: 0x2019, 0x60: 0x2018,
	0xA4: 0x2044, 0xA6: 0x0192, 0xA8: 0x00A4, 0xA9: 0x0027, 0xAA: 0x201C,
	0xAC: 0x2039, 0xAD: 0x203A, 0xAE: 0xFB01, 0xAF: 0xFB02, 0xB1: 0x2013,
	0xB2: 0x2020, 0xB3: 0x2021, 0xB4: 0x00B7, 0xB7: 0x2022, 0xB8: 0x201A,
	0xB9: 0x201E, 0xBA: 0x201D, 0xBC: 0x2026, 0xBD: 0x2030, 0xC1: 0x0060,
	0xC2: 0x00B4, 0xC3: 0x02C6, 0xC4: 0x02DC, 0xC5: 0x00AF, 0xC6: 0x02D8,
	0xC7: 0x02D9, 0xC8: 0x00A8, 0xCA: 0x02DA, 0xCB: 0x00B8, 0xCD: 0x02DD,
	0xCE: 0x02DB, 0xCF: 0x02C7, 0xD0: 0x2014, 0xE1: 0x00C6, 0xE3: 0x00AA,
	0xE8: 0x0141, 0xE9: 0x00D8, 0xEA: 0x0152, 0xEB: 0x00BA, 0xF1: 0x00E6,
	0xF5: 0x0131, 0xF8: 0x0142, 0xF9: 0x00F8, 0xFA: 0x0153, 0xFB: 0x00DF,
}

// macRomanHigh covers 0x80-0xFF of MacRomanEncoding
var macRomanHigh = [128]rune{
	0xC4, 0xC5, 0xC7, 0xC9, 0xD1, 0xD6, 0xDC, 0xE1, 0xE0, 0xE2, 0xE4, 0xE3, 0xE5, 0xE7, 0xE9, 0xE8,
	0xEA, 0xEB, 0xED, 0xEC, 0xEE, 0xEF, 0xF1, 0xF3, 0xF2, 0xF4, 0xF6, 0xF5, 0xFA, 0xF9, 0xFB, 0xFC,
	0x2020, 0xB0, 0xA2, 0xA3, 0xA7, 0x2022, 0xB6, 0xDF, 0xAE, 0xA9, 0x2122, 0xB4, 0xA8, 0x2260, 0xC6, 0xD8,
	0x221E, 0xB1, 0x2264, 0x2265, 0xA5, 0xB5, 0x2202, 0x2211, 0x220F, 0x3C0, 0x222B, 0xAA, 0xBA, 0x3A9, 0xE6, 0xF8,
	0xBF, 0xA1, 0xAC, 0x221A, 0x192, 0x2248, 0x2206, 0xAB, 0xBB, 0x2026, 0xA0, 0xC0, 0xC3, 0xD5, 0x152, 0x153,
	0x2013, 0x2014, 0x201C, 0x201D, 0x2018, 0x2019, 0xF7, 0x25CA, 0xFF, 0x178, 0x2044, 0x20AC, 0x2039, 0x203A, 0xFB01, 0xFB02,
	0x2021, 0xB7, 0x201A, 0x201E, 0x2030, 0xC2, 0xCA, 0xC1, 0xCB, 0xC8, 0xCD, 0xCE, 0xCF, 0xCC, 0xD3, 0xD4,
	0xF8FF, 0xD2, 0xDA, 0xDB, 0xD9, 0x131, 0x2C6, 0x2DC, 0xAF, 0x2D8, 0x2D9, 0x2DA, 0xB8, 0x2DD, 0x2DB, 0x2C7,
}

// baseEncoding returns the code to rune table for a named encoding
func baseEncoding(name string) [256]rune {
	var enc [256]rune
	for i := range enc {
		enc[i] = rune(i)
	}
	switch name {
	case "MacRomanEncoding":
		for i, r := range macRomanHigh {
			enc[0x80+i] = r
		}
	case "StandardEncoding":
		for i := 0x80; i < 0xA0; i++ {
			enc[i] = 0
		}
		for code, r := range standardDiffs {
			enc[code] = r
		}
	default:
		for i, r := range winAnsiHigh {
			enc[0x80+i] = r
		}
	}
	return enc
}

var glyphNames = map[string]rune{
	"space": ' ', "exclam": '!', "quotedbl": '"', "numbersign": '#', "dollar": '$',
	"percent": '%', "ampersand": '&', "quotesingle": '\'', "quoteright": 0x2019,
	"parenleft": '(', "parenright": ')', "asterisk": '*', "plus": '+', "comma": ',',
	"hyphen": '-', "minus": 0x2212, "period": '.', "slash": '/', "zero": '0', "one": '1',
	"two": '2', "three": '3', "four": '4', "five": '5', "six": '6', "seven": '7',
	"eight": '8', "nine": '9', "colon": ':', "semicolon": ';', "less": '<', "equal": '=',
	"greater": '>', "question": '?', "at": '@', "bracketleft": '[', "backslash": '\\',
	"bracketright": ']', "asciicircum": '^', "underscore": '_', "grave": '`',
	"quoteleft": 0x2018, "braceleft": '{', "bar": '|', "braceright": '}',
	"asciitilde": '~', "bullet": 0x2022, "endash": 0x2013, "emdash": 0x2014,
	"quotedblleft": 0x201C, "quotedblright": 0x201D, "quotesinglbase": 0x201A,
	"quotedblbase": 0x201E, "ellipsis": 0x2026, "dagger": 0x2020, "daggerdbl": 0x2021,
	"fi": 0xFB01, "fl": 0xFB02, "ff": 0xFB00, "ffi": 0xFB03, "ffl": 0xFB04,
	"copyright": 0xA9, "registered": 0xAE, "trademark": 0x2122, "degree": 0xB0,
	"section": 0xA7, "paragraph": 0xB6, "periodcentered": 0xB7, "multiply": 0xD7,
	"divide": 0xF7, "plusminus": 0xB1, "euro": 0x20AC, "Euro": 0x20AC, "sterling": 0xA3,
	"yen": 0xA5, "cent": 0xA2, "nbspace": 0xA0, "sfthyphen": 0xAD, "germandbls": 0xDF,
	"dotlessi": 0x131, "guillemotleft": 0xAB, "guillemotright": 0xBB,
	"guilsinglleft": 0x2039, "guilsinglright": 0x203A, "florin": 0x192,
	"perthousand": 0x2030, "exclamdown": 0xA1, "questiondown": 0xBF,
}

// accented Latin-1 capitals; lowercase names map 0x20 higher
var accented = map[string]rune{
	"Agrave": 0xC0, "Aacute": 0xC1, "Acircumflex": 0xC2, "Atilde": 0xC3, "Adieresis": 0xC4,
	"Aring": 0xC5, "AE": 0xC6, "Ccedilla": 0xC7, "Egrave": 0xC8, "Eacute": 0xC9,
	"Ecircumflex": 0xCA, "Edieresis": 0xCB, "Igrave": 0xCC, "Iacute": 0xCD,
	"Icircumflex": 0xCE, "Idieresis": 0xCF, "Ntilde": 0xD1, "Ograve": 0xD2,
	"Oacute": 0xD3, "Ocircumflex": 0xD4, "Otilde": 0xD5, "Odieresis": 0xD6,
	"Oslash": 0xD8, "Ugrave": 0xD9, "Uacute": 0xDA, "Ucircumflex": 0xDB,
	"Udieresis": 0xDC, "Yacute": 0xDD,
}

// runeForGlyph maps a glyph name to a rune, or 0 when it is unknown
func runeForGlyph(name string) rune {
	if name == "" {
		return 0
	}
	if r, ok := glyphNames[name]; ok {
		return r
	}
	if utf8.RuneCountInString(name) == 1 {
		r, _ := utf8.DecodeRuneInString(name)
		return r
	}
	if r, ok := accented[name]; ok {
		return r
	}
	if r, ok := accented[strings.ToUpper(name[:1])+name[1:]]; ok && name[0] >= 'a' && name[0] <= 'z' {
		return r + 0x20
	}
	if strings.HasPrefix(name, "uni") && len(name) >= 7 {
		if v, err := strconv.ParseUint(name[3:7], 16, 32); err == nil {
			return rune(v)
		}
	}
	if strings.HasPrefix(name, "u") && len(name) >= 5 && len(name) <= 7 {
		if v, err := strconv.ParseUint(name[1:], 16, 32); err == nil {
			return rune(v)
		}
	}
	if i := strings.IndexByte(name, '.'); i > 0 {
		return runeForGlyph(name[:i])
	}
	return 0
}

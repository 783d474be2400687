package publisher

import (
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// PlainText извлекает текст из HTML-разметки. Переносы <br> и границы
// блочных элементов сохраняются как переводы строк. Строка без разметки
// возвращается без изменений (кроме trim).
func PlainText(s string) string {
	s = strings.TrimSpace(s)
	if !strings.ContainsAny(s, "<&") {
		return s
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}

	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, li, h1, h2, h3, h4, h5, h6").Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml("\n")
	})
	doc.Find("script, style").Remove()

	lines := strings.Split(doc.Text(), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// TruncateRunes обрезает строку до max символов (рун).
func TruncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// maxSlugRunes — предельная длина slug.
const maxSlugRunes = 60

// cyrillicLatin — транслитерация строчной кириллицы. Твёрдый и мягкий
// знаки опускаются.
var cyrillicLatin = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "e",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "kh", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "shch",
	'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "yu", 'я': "ya",
	'є': "ye", 'і': "i", 'ї': "yi", 'ґ': "g",
}

// stripMarks убирает диакритику латиницы (é → e).
var stripMarks = runes.Remove(runes.In(unicode.Mn))

// Slugify строит ASCII-slug для URL: кириллица транслитерируется,
// у латиницы убирается диакритика, прочие символы заменяются дефисом.
// Пустой результат — "post".
func Slugify(s string) string {
	var latin strings.Builder
	for _, r := range strings.ToLower(s) {
		if tr, ok := cyrillicLatin[r]; ok {
			latin.WriteString(tr)
			continue
		}
		latin.WriteRune(r)
	}

	plain, _, err := transform.String(transform.Chain(norm.NFD, stripMarks, norm.NFC), latin.String())
	if err != nil {
		plain = latin.String()
	}

	var b strings.Builder
	dash := false
	for _, r := range plain {
		if b.Len() >= maxSlugRunes {
			break
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "post"
	}
	return slug
}

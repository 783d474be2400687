package publisher

import (
	"strings"
	"testing"
	"unicode"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"  простой текст  ", "простой текст"},
		{"<p>Первый</p><p>Второй</p>", "Первый\nВторой"},
		{"строка<br>вторая", "строка\nвторая"},
		{"<b>жирный</b>   и  <i>курсив</i>", "жирный и курсив"},
		{"a &amp; b", "a & b"},
		{"<script>alert(1)</script>текст", "текст"},
	}

	for _, tt := range tests {
		if got := PlainText(tt.input); got != tt.expected {
			t.Errorf("PlainText(%q): ожидалось %q, получено %q", tt.input, tt.expected, got)
		}
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := TruncateRunes("привет", 3); got != "при" {
		t.Errorf("ожидалось при, получено %q", got)
	}
	if got := TruncateRunes("abc", 10); got != "abc" {
		t.Errorf("короткая строка не должна меняться: %q", got)
	}
	if got := TruncateRunes("abc", 0); got != "" {
		t.Errorf("ожидалась пустая строка: %q", got)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "hello-world"},
		{"  Весенняя   распродажа!  ", "vesennyaya-rasprodazha"},
		{"Съёмка в Щёлково", "semka-v-shchelkovo"},
		{"Café Ñandú", "cafe-nandu"},
		{"Мой край", "moy-kray"},
		{"東京 2026", "2026"},
		{"C++ & Go", "c-go"},
		{"!!!", "post"},
		{"", "post"},
	}

	for _, tt := range tests {
		got := Slugify(tt.input)
		if got != tt.expected {
			t.Errorf("Slugify(%q): ожидалось %q, получено %q", tt.input, tt.expected, got)
		}
		for _, r := range got {
			if r > unicode.MaxASCII {
				t.Errorf("Slugify(%q) содержит не-ASCII символ %q", tt.input, r)
			}
		}
	}

	long := Slugify(strings.Repeat("щ", 100))
	if len(long) > maxSlugRunes {
		t.Errorf("длина slug %d превышает %d", len(long), maxSlugRunes)
	}
}

package book

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestParagraphsRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		paras []string
		want  []string
	}{
		{"single", []string{"Bye"}, []string{"Bye"}},
		{"two", []string{"Hello", "World"}, []string{"Hello", "World"}},
		{"line breaks inside paragraph", []string{"Hello\nWorld", "Bye"}, []string{"Hello", "World", "Bye"}},
		{"unicode", []string{"Точка зрения", "Всеведущего читателя"}, []string{"Точка зрения", "Всеведущего читателя"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := Chapter{Content: strings.Join(tt.paras, "\n\n")}
			got := ch.Paragraphs()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Paragraphs() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParagraphsDropsBlankLines(t *testing.T) {
	ch := Chapter{Content: "\n\nfirst\r\n   \n\nsecond\n"}
	got := ch.Paragraphs()
	want := []string{"first", "second"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Paragraphs() = %q, want %q", got, want)
	}

	if n := len(Chapter{}.Paragraphs()); n != 0 {
		t.Errorf("empty chapter produced %d paragraphs", n)
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Точка зрения Всеведущего читателя", "Точка_зрения_Всеведущего_читателя.fb2"},
		{"Plain", "Plain.fb2"},
		{"a/b\\c d", "a_b_c_d.fb2"},
		{"  ", "book.fb2"},
	}

	for _, tt := range tests {
		if got := (Metadata{Title: tt.title}).FileName(); got != tt.want {
			t.Errorf("FileName(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestErrorKindAndUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("run: %w", &Error{Kind: KindNavigation, Chapter: 3, URL: "https://x/3", Err: cause})

	if KindOf(err) != KindNavigation {
		t.Errorf("KindOf() = %v, want %v", KindOf(err), KindNavigation)
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable through errors.Is")
	}
	if !strings.Contains(err.Error(), "chapter 3: navigation failure (https://x/3): boom") {
		t.Errorf("unexpected message: %s", err.Error())
	}
	if KindOf(cause) != KindUnknown {
		t.Error("plain error should have unknown kind")
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want bool
	}{
		{KindElementNotFound, true},
		{KindNavigation, true},
		{KindSerialization, false},
		{KindUnknown, false},
	}

	for _, tt := range tests {
		if got := (&Error{Kind: tt.kind}).Retryable(); got != tt.want {
			t.Errorf("Retryable(%v) = %t, want %t", tt.kind, got, tt.want)
		}
	}
}

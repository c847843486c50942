// Package fb2 serializes chapters into a FictionBook 2 document.
package fb2

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/brogergvhs/noveld/internal/book"
)

const Namespace = "http://www.gribuser.ru/xml/fictionbook/2.0"

type fictionBook struct {
	XMLName     xml.Name    `xml:"FictionBook"`
	Xmlns       string      `xml:"xmlns,attr"`
	Description description `xml:"description"`
	Body        body        `xml:"body"`
}

type description struct {
	TitleInfo titleInfo `xml:"title-info"`
}

type titleInfo struct {
	BookTitle string `xml:"book-title"`
	Author    author `xml:"author"`
	Date      date   `xml:"date"`
	Lang      string `xml:"lang"`
}

type author struct {
	FirstName string `xml:"first-name"`
}

type date struct {
	Value string `xml:"value,attr"`
	Text  string `xml:",chardata"`
}

type body struct {
	Sections []section `xml:"section"`
}

type section struct {
	Title      title    `xml:"title"`
	Paragraphs []string `xml:"p"`
}

type title struct {
	P string `xml:"p"`
}

// Build renders the book. Each chapter becomes a section whose paragraphs
// are the non-blank lines of its content.
func Build(meta book.Metadata, chapters []book.Chapter) ([]byte, error) {
	lang := meta.Lang
	if lang == "" {
		lang = book.DefaultLang
	}

	doc := fictionBook{
		Xmlns: Namespace,
		Description: description{
			TitleInfo: titleInfo{
				BookTitle: meta.Title,
				Author:    author{FirstName: meta.Author},
				Date: date{
					Value: meta.Date.Format("2006-01-02"),
					Text:  meta.Date.Format("02.01.2006"),
				},
				Lang: lang,
			},
		},
		Body: body{Sections: make([]section, 0, len(chapters))},
	}

	for _, ch := range chapters {
		doc.Body.Sections = append(doc.Body.Sections, section{
			Title:      title{P: ch.Title},
			Paragraphs: ch.Paragraphs(),
		})
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, &book.Error{Kind: book.KindSerialization, Err: fmt.Errorf("marshal fb2: %w", err)}
	}

	var buf bytes.Buffer
	buf.Grow(len(xml.Header) + len(out) + 1)
	buf.WriteString(xml.Header)
	buf.Write(out)
	buf.WriteByte('\n')

	return buf.Bytes(), nil
}

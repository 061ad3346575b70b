package pptdeck

import (
	"bytes"
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/connctd/pptdeck/pptx"
)

var Version = "undefined"

// Builder renders decks into presentations. A Builder holds no state
// between builds and may be shared by concurrent callers.
type Builder struct {
	Layout  Layout
	Fetcher ImageFetcher
	Log     logrus.FieldLogger
}

func NewBuilder(cfg Config, log logrus.FieldLogger) *Builder {
	return &Builder{
		Layout:  cfg.Layout,
		Fetcher: NewHTTPImageFetcher(cfg.FetchTimeout),
		Log:     log,
	}
}

func (b *Builder) logger() logrus.FieldLogger {
	if b.Log == nil {
		return logrus.StandardLogger()
	}
	return b.Log
}

// Build creates one slide per entry of deck.Slides, in order. A nil entry
// yields an empty slide. The context is checked between slides.
func (b *Builder) Build(ctx context.Context, deck *Deck) (*pptx.Presentation, error) {
	pres := pptx.New()
	pres.Title = deck.Title
	for _, spec := range deck.Slides {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		slide := pres.AddSlide()
		if spec != nil {
			b.RenderSlide(ctx, slide, spec)
		}
	}
	return pres, nil
}

// RenderSlide draws title, content, code, notes and image of spec onto
// slide, skipping absent fields. A failing image is logged and left out.
func (b *Builder) RenderSlide(ctx context.Context, slide *pptx.Slide, spec *SlideSpec) {
	l := b.Layout

	if spec.Title != "" {
		slide.AddTextBox(pptx.TextBox{
			Frame:      l.Title.frame(),
			Font:       l.TitleStyle.font(),
			Fill:       l.TitleStyle.Fill,
			Paragraphs: []pptx.Paragraph{{Runs: []pptx.Run{{Text: spec.Title}}}},
		})
	}

	for i, item := range spec.Content {
		box := l.Content
		box.Y += float64(i) * l.ContentStep
		paragraphs := []pptx.Paragraph{{
			Runs:   itemRuns(item.Text, item.Literal),
			Bullet: true,
		}}
		for _, sub := range item.Subpoints {
			paragraphs = append(paragraphs, pptx.Paragraph{
				Runs:   itemRuns(sub, item.Literal),
				Bullet: true,
				Level:  1,
			})
		}
		slide.AddTextBox(pptx.TextBox{
			Frame:      box.frame(),
			Font:       l.ContentStyle.font(),
			Fill:       l.ContentStyle.Fill,
			Paragraphs: paragraphs,
		})
	}

	if !spec.Code.empty() {
		slide.AddTextBox(pptx.TextBox{
			Frame:      l.Code.frame(),
			Font:       l.CodeStyle.font(),
			Fill:       l.CodeStyle.Fill,
			Paragraphs: codeParagraphs(spec.Code),
		})
	}

	if spec.Notes != "" {
		slide.SetNotes(spec.Notes)
	}

	if spec.ImageURL != "" {
		b.addImage(ctx, slide, spec.ImageURL)
	}
}

func (b *Builder) addImage(ctx context.Context, slide *pptx.Slide, ref string) {
	fetcher := b.Fetcher
	if fetcher == nil {
		fetcher = NewHTTPImageFetcher(0)
	}
	img, err := fetcher.Fetch(ctx, ref)
	if err != nil {
		b.logger().WithError(err).WithField("image_url", ref).Warn("Could not add image")
		return
	}
	slide.AddImage(img, b.Layout.Image.frame())
}

// codeParagraphs lays out a snippet one line per paragraph, preceded by
// the bold caption when there is one.
func codeParagraphs(code *CodeBlock) []pptx.Paragraph {
	var paragraphs []pptx.Paragraph
	if code.Title != "" {
		paragraphs = append(paragraphs, pptx.Paragraph{Runs: []pptx.Run{{Text: code.Title, Bold: true}}})
	}
	if code.Snippet == "" {
		return paragraphs
	}
	for _, line := range strings.Split(strings.ReplaceAll(code.Snippet, "\r\n", "\n"), "\n") {
		var runs []pptx.Run
		if line != "" {
			runs = []pptx.Run{{Text: line}}
		}
		paragraphs = append(paragraphs, pptx.Paragraph{Runs: runs})
	}
	return paragraphs
}

// BuildBytes builds deck and returns the encoded PPTX.
func (b *Builder) BuildBytes(ctx context.Context, deck *Deck) ([]byte, error) {
	pres, err := b.Build(ctx, deck)
	if err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	if err := pres.Write(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildFile reads the deck at in and writes the presentation to out,
// replacing any existing file.
func (b *Builder) BuildFile(ctx context.Context, in, out string) error {
	deck, err := LoadDeck(in)
	if err != nil {
		return err
	}
	pres, err := b.Build(ctx, deck)
	if err != nil {
		return err
	}
	if err := pres.WriteFile(out); err != nil {
		return err
	}
	b.logger().WithFields(logrus.Fields{
		"output": out,
		"slides": len(pres.Slides()),
	}).Info("Final PPT created")
	return nil
}

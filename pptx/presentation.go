// Package pptx holds an in-memory presentation model and writes it as an
// Office Open XML (PPTX) package.
package pptx

import (
	"math"
	"time"
)

// Length is a distance in English Metric Units.
type Length int64

const (
	EMUPerInch  = 914400
	EMUPerPoint = 12700
)

// Inch converts inches to EMU.
func Inch(v float64) Length {
	return Length(math.Round(v * EMUPerInch))
}

// Point converts points to EMU.
func Point(v float64) Length {
	return Length(math.Round(v * EMUPerPoint))
}

// Inches reports the length in inches.
func (l Length) Inches() float64 {
	return float64(l) / EMUPerInch
}

// Frame positions a shape on the slide.
type Frame struct {
	X, Y, W, H Length
}

// Run is a span of text with uniform emphasis.
type Run struct {
	Text   string
	Bold   bool
	Italic bool
}

type Paragraph struct {
	Runs   []Run
	Bullet bool
	// Level is the outline level, 0 for top level bullets.
	Level int
}

// Font applies to every run of a text box. Color is a six digit RGB hex
// value; an empty Color leaves the theme color in place.
type Font struct {
	Face  string
	Size  float64
	Bold  bool
	Color string
}

type TextBox struct {
	Frame      Frame
	Paragraphs []Paragraph
	Font       Font
	// Fill is a six digit RGB hex value, empty for no fill.
	Fill string
}

// Text returns the concatenated run text, one line per paragraph.
func (t TextBox) Text() string {
	var out []byte
	for i, p := range t.Paragraphs {
		if i > 0 {
			out = append(out, '\n')
		}
		for _, r := range p.Runs {
			out = append(out, r.Text...)
		}
	}
	return string(out)
}

// Image is an encoded PNG or JPEG picture.
type Image struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

func (i *Image) extension() string {
	if i.Format == "jpeg" {
		return "jpeg"
	}
	return "png"
}

type Picture struct {
	Frame Frame
	Image *Image
}

type Slide struct {
	shapes []interface{}
	notes  string
}

func (s *Slide) AddTextBox(tb TextBox) {
	s.shapes = append(s.shapes, tb)
}

func (s *Slide) AddImage(img *Image, frame Frame) {
	s.shapes = append(s.shapes, Picture{Frame: frame, Image: img})
}

func (s *Slide) SetNotes(notes string) {
	s.notes = notes
}

func (s *Slide) Notes() string {
	return s.notes
}

func (s *Slide) HasNotes() bool {
	return len(s.notes) > 0
}

// TextBoxes returns the text boxes of the slide in insertion order.
func (s *Slide) TextBoxes() []TextBox {
	var boxes []TextBox
	for _, sh := range s.shapes {
		if tb, ok := sh.(TextBox); ok {
			boxes = append(boxes, tb)
		}
	}
	return boxes
}

// Pictures returns the pictures of the slide in insertion order.
func (s *Slide) Pictures() []Picture {
	var pics []Picture
	for _, sh := range s.shapes {
		if p, ok := sh.(Picture); ok {
			pics = append(pics, p)
		}
	}
	return pics
}

type Presentation struct {
	Title   string
	Creator string
	Width   Length
	Height  Length
	Created time.Time

	slides []*Slide
}

// New returns an empty 16:9 presentation.
func New() *Presentation {
	return &Presentation{
		Creator: "pptdeck",
		Width:   Inch(10),
		Height:  Inch(5.625),
		Created: time.Now().UTC(),
	}
}

func (p *Presentation) AddSlide() *Slide {
	s := &Slide{}
	p.slides = append(p.slides, s)
	return s
}

func (p *Presentation) Slides() []*Slide {
	return p.slides
}

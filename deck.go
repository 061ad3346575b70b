package pptdeck

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"
)

var (
	ErrNoDocuments   = errors.New("deck contains no documents")
	ErrMissingSlides = errors.New("first document has no slides")
	ErrUnknownFormat = errors.New("no matching deck parser for file type")
)

// ContentItem is one bullet of a slide. A bare JSON or YAML string is
// accepted as an item without subpoints. The text of a Literal item and its
// subpoints is rendered as is, without ** and * formatting.
type ContentItem struct {
	Text      string   `json:"text" yaml:"text"`
	Subpoints []string `json:"subpoints,omitempty" yaml:"subpoints,omitempty"`
	Literal   bool     `json:"literal,omitempty" yaml:"literal,omitempty"`
}

func (c *ContentItem) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = ContentItem{Text: s}
		return nil
	}
	type plain ContentItem
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = ContentItem(p)
	return nil
}

func (c *ContentItem) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		*c = ContentItem{Text: s}
		return nil
	}
	type plain ContentItem
	var p plain
	if err := unmarshal(&p); err != nil {
		return err
	}
	*c = ContentItem(p)
	return nil
}

// CodeBlock is either a plain snippet or a snippet with a caption.
type CodeBlock struct {
	Title   string `json:"title,omitempty" yaml:"title,omitempty"`
	Snippet string `json:"snippet" yaml:"snippet"`
}

func (c *CodeBlock) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = CodeBlock{Snippet: s}
		return nil
	}
	type plain CodeBlock
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = CodeBlock(p)
	return nil
}

func (c *CodeBlock) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		*c = CodeBlock{Snippet: s}
		return nil
	}
	type plain CodeBlock
	var p plain
	if err := unmarshal(&p); err != nil {
		return err
	}
	*c = CodeBlock(p)
	return nil
}

func (c *CodeBlock) empty() bool {
	return c == nil || (c.Title == "" && c.Snippet == "")
}

// SlideSpec describes one slide. Empty strings and nil values mean the
// field is absent.
type SlideSpec struct {
	Title    string        `json:"title,omitempty" yaml:"title,omitempty"`
	Content  []ContentItem `json:"content,omitempty" yaml:"content,omitempty"`
	Code     *CodeBlock    `json:"code,omitempty" yaml:"code,omitempty"`
	Notes    string        `json:"notes,omitempty" yaml:"notes,omitempty"`
	ImageURL string        `json:"image_url,omitempty" yaml:"image_url,omitempty"`
}

type Deck struct {
	Title  string
	Slides []*SlideSpec
}

// FileName derives an output file name from the deck title.
func (d *Deck) FileName() string {
	name := strings.TrimSpace(d.Title)
	if name == "" {
		name = "Generated_Presentation"
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/', '\\', ':', '"', '*', '?', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	return name + ".pptx"
}

// document is one top-level element of a deck file. Only the first one is
// read.
type document struct {
	Title  string        `json:"title" yaml:"title"`
	Slides *[]*SlideSpec `json:"slides" yaml:"slides"`
}

func deckFromDocuments(docs []document) (*Deck, error) {
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	first := docs[0]
	if first.Slides == nil {
		return nil, ErrMissingSlides
	}
	d := &Deck{Title: first.Title, Slides: *first.Slides}
	if d.Title == "" && len(d.Slides) > 0 && d.Slides[0] != nil {
		d.Title = d.Slides[0].Title
	}
	return d, nil
}

type DeckParser interface {
	ParseDeck(input []byte) (*Deck, error)
}

var deckParsers = map[string]DeckParser{}

func RegisterDeckFormat(ext string, parser DeckParser) {
	deckParsers[ext] = parser
}

func init() {
	RegisterDeckFormat("json", &JSONDeckParser{})
}

// ParseDeck parses input with the parser registered for format.
func ParseDeck(format string, input []byte) (*Deck, error) {
	parser, exists := deckParsers[strings.ToLower(format)]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
	return parser.ParseDeck(input)
}

// LoadDeck reads and parses the deck file at path. The format follows the
// file extension; files whose extension has no registered parser are read
// as JSON.
func LoadDeck(path string) (*Deck, error) {
	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if _, exists := deckParsers[format]; !exists {
		format = "json"
	}
	buf, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	deck, err := ParseDeck(format, buf)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return deck, nil
}

// JSONDeckParser reads a top-level array whose first object carries the
// slides array.
type JSONDeckParser struct{}

func (j *JSONDeckParser) ParseDeck(input []byte) (*Deck, error) {
	var docs []document
	if err := json.Unmarshal(input, &docs); err != nil {
		return nil, err
	}
	return deckFromDocuments(docs)
}

// DecodeSlides decodes an API request body. It accepts the deck document
// form as well as a bare array of slide objects, in which case the first
// slide title names the deck.
func DecodeSlides(input []byte) (*Deck, error) {
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(input, &items); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNoDocuments
	}
	if _, ok := items[0]["slides"]; ok {
		return (&JSONDeckParser{}).ParseDeck(input)
	}
	var slides []*SlideSpec
	if err := json.Unmarshal(input, &slides); err != nil {
		return nil, err
	}
	d := &Deck{Slides: slides}
	if slides[0] != nil {
		d.Title = slides[0].Title
	}
	return d, nil
}

package pptdeck

import (
	"strings"

	"github.com/russross/blackfriday/v2"
)

func init() {
	RegisterDeckFormat("md", &MarkdownDeckParser{})
}

const markdownExtensions = blackfriday.NoIntraEmphasis | blackfriday.Tables | blackfriday.FencedCode |
	blackfriday.Strikethrough | blackfriday.SpaceHeadings | blackfriday.BackslashLineBreak |
	blackfriday.DefinitionLists

// MarkdownDeckParser turns a Markdown document into a deck.
//
// Level one and two headings and horizontal rules start a new slide, list
// items become bullets with nested items as subpoints, a code block becomes
// the code box (its info string the caption), the first image is the slide
// image and block quotes are speaker notes. Remaining paragraphs are added
// as bullets. Strong and emphasis in bullets are written back as ** and *
// markers; titles and notes keep the plain text. Bullets whose text holds a
// literal "*", such as inline code, are marked Literal and lose their
// emphasis.
type MarkdownDeckParser struct{}

func (m *MarkdownDeckParser) ParseDeck(input []byte) (*Deck, error) {
	md := blackfriday.New(blackfriday.WithExtensions(markdownExtensions))
	root := md.Parse(input)

	b := &markdownDeck{}
	for n := root.FirstChild; n != nil; n = n.Next {
		b.block(n)
	}

	d := &Deck{Slides: b.slides}
	if len(d.Slides) > 0 {
		d.Title = d.Slides[0].Title
	}
	return d, nil
}

type markdownDeck struct {
	slides []*SlideSpec
	cur    *SlideSpec
}

func (b *markdownDeck) slide() *SlideSpec {
	if b.cur == nil {
		b.newSlide()
	}
	return b.cur
}

func (b *markdownDeck) newSlide() {
	b.cur = &SlideSpec{}
	b.slides = append(b.slides, b.cur)
}

func (b *markdownDeck) block(n *blackfriday.Node) {
	switch n.Type {
	case blackfriday.Heading:
		title, _ := inlineMarkdown(n)
		if n.Level > 2 {
			if title.literal {
				b.addItem(title.item())
			} else {
				b.addItem(ContentItem{Text: "**" + title.plain + "**"})
			}
			return
		}
		if b.cur == nil || !isBlankSlide(b.cur) {
			b.newSlide()
		}
		b.cur.Title = title.plain
	case blackfriday.HorizontalRule:
		b.newSlide()
	case blackfriday.HTMLBlock:
		return
	case blackfriday.List:
		for item := n.FirstChild; item != nil; item = item.Next {
			b.addItem(b.listItem(item))
		}
	case blackfriday.CodeBlock:
		b.slide().Code = &CodeBlock{
			Title:   strings.TrimSpace(string(n.Info)),
			Snippet: strings.TrimRight(string(n.Literal), "\n"),
		}
	case blackfriday.BlockQuote:
		var lines []string
		for p := n.FirstChild; p != nil; p = p.Next {
			text, _ := inlineMarkdown(p)
			lines = append(lines, text.plain)
		}
		s := b.slide()
		if s.Notes != "" {
			lines = append([]string{s.Notes}, lines...)
		}
		s.Notes = strings.Join(lines, "\n")
	default:
		text, images := inlineMarkdown(n)
		b.image(images)
		if text.plain != "" {
			b.addItem(text.item())
		}
	}
}

// listItem turns a list item into a bullet, the items of a nested list
// into its subpoints. When any part has to stay literal the whole item
// does, so its emphasis is dropped.
func (b *markdownDeck) listItem(item *blackfriday.Node) ContentItem {
	text := b.listText(item)
	var subs []flatText
	for c := item.FirstChild; c != nil; c = c.Next {
		if c.Type != blackfriday.List {
			continue
		}
		for sub := c.FirstChild; sub != nil; sub = sub.Next {
			if s := b.listText(sub); s.plain != "" {
				subs = append(subs, s)
			}
		}
	}

	literal := text.literal
	for _, s := range subs {
		literal = literal || s.literal
	}
	ci := ContentItem{Text: text.pick(literal), Literal: literal}
	for _, s := range subs {
		ci.Subpoints = append(ci.Subpoints, s.pick(literal))
	}
	return ci
}

// listText flattens the blocks of a list item, leaving out nested lists.
func (b *markdownDeck) listText(item *blackfriday.Node) flatText {
	var out flatText
	for c := item.FirstChild; c != nil; c = c.Next {
		if c.Type == blackfriday.List {
			continue
		}
		text, images := inlineMarkdown(c)
		b.image(images)
		if text.plain == "" {
			continue
		}
		if out.plain != "" {
			out.marked += " "
			out.plain += " "
		}
		out.marked += text.marked
		out.plain += text.plain
		out.literal = out.literal || text.literal
	}
	return out
}

func (b *markdownDeck) addItem(ci ContentItem) {
	if ci.Text == "" && len(ci.Subpoints) == 0 {
		return
	}
	s := b.slide()
	s.Content = append(s.Content, ci)
}

func (b *markdownDeck) image(urls []string) {
	if len(urls) == 0 {
		return
	}
	if s := b.slide(); s.ImageURL == "" {
		s.ImageURL = urls[0]
	}
}

func isBlankSlide(s *SlideSpec) bool {
	return s.Title == "" && len(s.Content) == 0 && s.Code.empty() && s.Notes == "" && s.ImageURL == ""
}

// flatText is inline Markdown flattened twice: marked writes strong and
// emphasis back as ** and * for the formatter, plain drops them. literal is
// set when the text itself contains a "*", which the formatter would take
// for a marker.
type flatText struct {
	marked  string
	plain   string
	literal bool
}

func (f flatText) pick(literal bool) string {
	if literal {
		return f.plain
	}
	return f.marked
}

func (f flatText) item() ContentItem {
	return ContentItem{Text: f.pick(f.literal), Literal: f.literal}
}

// inlineMarkdown flattens the inline children of n and collects image
// destinations on the way.
func inlineMarkdown(n *blackfriday.Node) (flatText, []string) {
	var (
		marked, plain strings.Builder
		literal       bool
		images        []string
	)
	both := func(s string) {
		marked.WriteString(s)
		plain.WriteString(s)
	}
	var walk func(n *blackfriday.Node)
	walk = func(n *blackfriday.Node) {
		for c := n.FirstChild; c != nil; c = c.Next {
			switch c.Type {
			case blackfriday.Text, blackfriday.Code, blackfriday.HTMLSpan:
				text := strings.ReplaceAll(string(c.Literal), "\n", " ")
				literal = literal || strings.Contains(text, "*")
				both(text)
			case blackfriday.Strong:
				marked.WriteString("**")
				walk(c)
				marked.WriteString("**")
			case blackfriday.Emph:
				marked.WriteString("*")
				walk(c)
				marked.WriteString("*")
			case blackfriday.Softbreak, blackfriday.Hardbreak:
				both(" ")
			case blackfriday.Image:
				images = append(images, string(c.LinkData.Destination))
			default:
				walk(c)
			}
		}
	}
	if n.IsLeaf() {
		literal = strings.Contains(string(n.Literal), "*")
		both(string(n.Literal))
	} else {
		walk(n)
	}
	return flatText{
		marked:  strings.TrimSpace(marked.String()),
		plain:   strings.TrimSpace(plain.String()),
		literal: literal,
	}, images
}

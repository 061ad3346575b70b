package pptx

import (
	"archive/zip"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

const (
	relBase          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/"
	relOfficeDoc     = relBase + "officeDocument"
	relExtendedProps = relBase + "extended-properties"
	relCoreProps     = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties"
	relSlideMaster   = relBase + "slideMaster"
	relSlideLayout   = relBase + "slideLayout"
	relSlide         = relBase + "slide"
	relNotesMaster   = relBase + "notesMaster"
	relNotesSlide    = relBase + "notesSlide"
	relTheme         = relBase + "theme"
	relPresProps     = relBase + "presProps"
	relViewProps     = relBase + "viewProps"
	relTableStyles   = relBase + "tableStyles"
	relImage         = relBase + "image"

	ctPML          = "application/vnd.openxmlformats-officedocument.presentationml."
	ctPresentation = ctPML + "presentation.main+xml"
	ctSlide        = ctPML + "slide+xml"
	ctNotesSlide   = ctPML + "notesSlide+xml"
)

// ContentType is the MIME type of a PPTX file.
const ContentType = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

var fixedOverrides = []override{
	{"/ppt/presentation.xml", ctPresentation},
	{"/ppt/slideMasters/slideMaster1.xml", ctPML + "slideMaster+xml"},
	{"/ppt/slideLayouts/slideLayout1.xml", ctPML + "slideLayout+xml"},
	{"/ppt/notesMasters/notesMaster1.xml", ctPML + "notesMaster+xml"},
	{"/ppt/theme/theme1.xml", "application/vnd.openxmlformats-officedocument.theme+xml"},
	{"/ppt/theme/theme2.xml", "application/vnd.openxmlformats-officedocument.theme+xml"},
	{"/ppt/presProps.xml", ctPML + "presProps+xml"},
	{"/ppt/viewProps.xml", ctPML + "viewProps+xml"},
	{"/ppt/tableStyles.xml", ctPML + "tableStyles+xml"},
	{"/docProps/core.xml", "application/vnd.openxmlformats-package.core-properties+xml"},
	{"/docProps/app.xml", "application/vnd.openxmlformats-officedocument.extended-properties+xml"},
}

type override struct {
	PartName    string
	ContentType string
}

type relationship struct {
	ID     string
	Type   string
	Target string
}

type slideRef struct {
	ID    int
	RelID string
}

type runView struct {
	Text   string
	Break  bool
	Size   int
	Bold   bool
	Italic bool
	Color  string
	Face   string
}

type paragraphView struct {
	Bullet bool
	Level  int
	MarL   int64
	Size   int
	Runs   []runView
}

type textView struct {
	Fill       string
	Paragraphs []paragraphView
}

type shapeView struct {
	ID    int
	Name  string
	Frame Frame
	Text  *textView
	RelID string
}

type part struct {
	name string
	data []byte
}

// WriteFile writes the presentation to path, replacing any existing file.
func (p *Presentation) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := p.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write encodes the presentation as a PPTX archive.
func (p *Presentation) Write(w io.Writer) error {
	parts, err := p.parts()
	if err != nil {
		return err
	}
	zw := zip.NewWriter(w)
	for _, pt := range parts {
		if err := writePart(zw, pt.name, pt.data); err != nil {
			zw.Close()
			return err
		}
	}
	if err := writeStaticParts(zw); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

func (p *Presentation) parts() ([]part, error) {
	var (
		parts     []part
		overrides = append([]override(nil), fixedOverrides...)
		slideRefs []slideRef
		media     int
		notes     int
	)
	presRels := []relationship{
		{"rId1", relSlideMaster, "slideMasters/slideMaster1.xml"},
		{"rId2", relNotesMaster, "notesMasters/notesMaster1.xml"},
		{"rId3", relTheme, "theme/theme1.xml"},
		{"rId4", relPresProps, "presProps.xml"},
		{"rId5", relViewProps, "viewProps.xml"},
		{"rId6", relTableStyles, "tableStyles.xml"},
	}

	add := func(name, tmpl string, data interface{}) error {
		b, err := renderPart(tmpl, data)
		if err != nil {
			return fmt.Errorf("render %s: %w", name, err)
		}
		parts = append(parts, part{name, b})
		return nil
	}

	for i, s := range p.slides {
		n := i + 1
		slideName := fmt.Sprintf("slide%d.xml", n)
		relID := fmt.Sprintf("rId%d", len(presRels)+1)
		presRels = append(presRels, relationship{relID, relSlide, "slides/" + slideName})
		slideRefs = append(slideRefs, slideRef{ID: 256 + i, RelID: relID})
		overrides = append(overrides, override{"/ppt/slides/" + slideName, ctSlide})

		rels := []relationship{{"rId1", relSlideLayout, "../slideLayouts/slideLayout1.xml"}}
		var shapes []shapeView
		for _, sh := range s.shapes {
			id := len(shapes) + 2
			switch v := sh.(type) {
			case TextBox:
				shapes = append(shapes, shapeView{
					ID:    id,
					Name:  fmt.Sprintf("TextBox %d", id-1),
					Frame: v.Frame,
					Text:  newTextView(v),
				})
			case Picture:
				if v.Image == nil || len(v.Image.Data) == 0 {
					continue
				}
				media++
				target := fmt.Sprintf("media/image%d.%s", media, v.Image.extension())
				picRel := fmt.Sprintf("rId%d", len(rels)+1)
				rels = append(rels, relationship{picRel, relImage, "../" + target})
				parts = append(parts, part{"ppt/" + target, v.Image.Data})
				shapes = append(shapes, shapeView{
					ID:    id,
					Name:  fmt.Sprintf("Picture %d", id-1),
					Frame: v.Frame,
					RelID: picRel,
				})
			}
		}

		if s.HasNotes() {
			notes++
			notesName := fmt.Sprintf("notesSlide%d.xml", n)
			rels = append(rels, relationship{fmt.Sprintf("rId%d", len(rels)+1), relNotesSlide, "../notesSlides/" + notesName})
			overrides = append(overrides, override{"/ppt/notesSlides/" + notesName, ctNotesSlide})
			lines := strings.Split(strings.ReplaceAll(s.notes, "\r\n", "\n"), "\n")
			if err := add("ppt/notesSlides/"+notesName, "notesSlide", struct{ Lines []string }{lines}); err != nil {
				return nil, err
			}
			notesRels := []relationship{
				{"rId1", relNotesMaster, "../notesMasters/notesMaster1.xml"},
				{"rId2", relSlide, "../slides/" + slideName},
			}
			if err := add("ppt/notesSlides/_rels/"+notesName+".rels", "rels", notesRels); err != nil {
				return nil, err
			}
		}

		if err := add("ppt/slides/"+slideName, "slide", struct{ Shapes []shapeView }{shapes}); err != nil {
			return nil, err
		}
		if err := add("ppt/slides/_rels/"+slideName+".rels", "rels", rels); err != nil {
			return nil, err
		}
	}

	pkgRels := []relationship{
		{"rId1", relOfficeDoc, "ppt/presentation.xml"},
		{"rId2", relCoreProps, "docProps/core.xml"},
		{"rId3", relExtendedProps, "docProps/app.xml"},
	}
	presentation := struct {
		Slides        []slideRef
		Width, Height Length
	}{slideRefs, p.Width, p.Height}
	core := struct{ Title, Creator, Created string }{
		p.Title, p.Creator, p.Created.UTC().Format("2006-01-02T15:04:05Z"),
	}
	app := struct {
		Creator       string
		Slides, Notes int
	}{p.Creator, len(p.slides), notes}

	head := []struct {
		name, tmpl string
		data       interface{}
	}{
		{"[Content_Types].xml", "contentTypes", overrides},
		{"_rels/.rels", "rels", pkgRels},
		{"docProps/core.xml", "core", core},
		{"docProps/app.xml", "app", app},
		{"ppt/presentation.xml", "presentation", presentation},
		{"ppt/_rels/presentation.xml.rels", "rels", presRels},
	}
	rest := parts
	parts = nil
	for _, h := range head {
		if err := add(h.name, h.tmpl, h.data); err != nil {
			return nil, err
		}
	}
	return append(parts, rest...), nil
}

func newTextView(tb TextBox) *textView {
	size := hundredths(tb.Font.Size)
	color := normalizeColor(tb.Font.Color)
	v := &textView{Fill: normalizeColor(tb.Fill)}
	for _, para := range tb.Paragraphs {
		pv := paragraphView{
			Bullet: para.Bullet,
			Level:  para.Level,
			MarL:   int64(285750 + para.Level*457200),
			Size:   size,
		}
		for _, r := range para.Runs {
			rv := runView{
				Size:   size,
				Bold:   tb.Font.Bold || r.Bold,
				Italic: r.Italic,
				Color:  color,
				Face:   tb.Font.Face,
			}
			// a newline inside a run is a line break within the paragraph
			lines := strings.Split(strings.ReplaceAll(r.Text, "\r\n", "\n"), "\n")
			for i, line := range lines {
				if i > 0 {
					br := rv
					br.Break = true
					pv.Runs = append(pv.Runs, br)
				}
				if line != "" {
					tv := rv
					tv.Text = line
					pv.Runs = append(pv.Runs, tv)
				}
			}
		}
		v.Paragraphs = append(v.Paragraphs, pv)
	}
	if len(v.Paragraphs) == 0 {
		// a text body needs at least one paragraph
		v.Paragraphs = []paragraphView{{Size: size}}
	}
	return v
}

func hundredths(pt float64) int {
	if pt <= 0 {
		return 0
	}
	return int(math.Round(pt * 100))
}

func normalizeColor(c string) string {
	c = strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(c), "#"))
	if len(c) != 6 {
		return ""
	}
	for _, r := range c {
		if !strings.ContainsRune("0123456789ABCDEF", r) {
			return ""
		}
	}
	return c
}

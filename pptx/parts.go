package pptx

import (
	"archive/zip"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobuffalo/packr/v2"
)

// partsBox holds the package parts that do not depend on the deck: the slide
// master, the blank layout, both themes, the notes master and the
// presentation level property parts. Box paths equal the archive paths.
var partsBox = packr.New("ooxml", "./parts")

func staticPartNames() []string {
	names := make([]string, 0, 16)
	for _, f := range partsBox.List() {
		names = append(names, filepath.ToSlash(f))
	}
	sort.Strings(names)
	return names
}

func writeStaticParts(zw *zip.Writer) error {
	for _, name := range staticPartNames() {
		data, err := partsBox.Find(name)
		if err != nil {
			return fmt.Errorf("static part %s: %w", name, err)
		}
		if err := writePart(zw, name, data); err != nil {
			return err
		}
	}
	return nil
}

func writePart(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(strings.TrimPrefix(name, "/"))
	if err != nil {
		return fmt.Errorf("create part %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write part %s: %w", name, err)
	}
	return nil
}

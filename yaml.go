package pptdeck

import (
	"gopkg.in/yaml.v2"
)

func init() {
	parser := &YAMLDeckParser{}
	RegisterDeckFormat("yaml", parser)
	RegisterDeckFormat("yml", parser)
}

// YAMLDeckParser reads the same document shape as JSONDeckParser written
// as YAML.
type YAMLDeckParser struct{}

func (y *YAMLDeckParser) ParseDeck(input []byte) (*Deck, error) {
	var docs []document
	if err := yaml.Unmarshal(input, &docs); err != nil {
		return nil, err
	}
	return deckFromDocuments(docs)
}

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/lemmacat/pkg/lemmacat/internalerr"
	"github.com/cognicore/lemmacat/pkg/lemmacat/lemma"
	"github.com/cognicore/lemmacat/pkg/lemmacat/taxonomy"
)

// Taxonomy is the category -> keywords configuration in file order.
type Taxonomy struct {
	Categories []taxonomy.RawCategory
}

// LoadTaxonomy loads a taxonomy from a YAML file.
//
// Two shapes are accepted. A mapping, where key order is the tie-break order:
//
//	categories:
//	  upi_transaction_failed: [gpay, upi, transaction failed]
//	  atm_issues: [atm, withdraw]
//
// or a list:
//
//	categories:
//	  - name: upi_transaction_failed
//	    keywords: [gpay, upi]
//
// The "categories" key may be omitted, in which case the whole document is
// the category mapping.
func LoadTaxonomy(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tax, err := ParseTaxonomy(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tax, nil
}

// ParseTaxonomy parses the YAML accepted by LoadTaxonomy.
func ParseTaxonomy(data []byte) (*Taxonomy, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("%w: taxonomy document is empty", internalerr.ErrInvalidConfig)
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, invalid(root, "taxonomy must be a mapping")
	}
	if v := mappingValue(root, "categories"); v != nil {
		root = v
	}

	var cats []taxonomy.RawCategory
	var err error
	switch root.Kind {
	case yaml.MappingNode:
		cats, err = parseMapping(root)
	case yaml.SequenceNode:
		cats, err = parseList(root)
	default:
		err = invalid(root, "categories must be a mapping or a list")
	}
	if err != nil {
		return nil, err
	}
	return &Taxonomy{Categories: cats}, nil
}

func parseMapping(n *yaml.Node) ([]taxonomy.RawCategory, error) {
	cats := make([]taxonomy.RawCategory, 0, len(n.Content)/2)
	seen := make(map[string]int)

	for i := 0; i+1 < len(n.Content); i += 2 {
		key, value := n.Content[i], n.Content[i+1]
		if key.Kind != yaml.ScalarNode {
			return nil, invalid(key, "category name must be a string")
		}
		name := key.Value
		if line, dup := seen[name]; dup {
			return nil, invalid(key, fmt.Sprintf("category %q already defined on line %d", name, line))
		}
		seen[name] = key.Line

		keywords, err := parseKeywords(name, value)
		if err != nil {
			return nil, err
		}
		cats = append(cats, taxonomy.RawCategory{Name: name, Keywords: keywords})
	}
	return cats, nil
}

func parseList(n *yaml.Node) ([]taxonomy.RawCategory, error) {
	cats := make([]taxonomy.RawCategory, 0, len(n.Content))
	seen := make(map[string]int)

	for _, item := range n.Content {
		if item.Kind != yaml.MappingNode {
			return nil, invalid(item, "category entry must be a mapping with name and keywords")
		}
		var name string
		if v := mappingValue(item, "name"); v != nil {
			name = v.Value
		}
		if line, dup := seen[name]; dup {
			return nil, invalid(item, fmt.Sprintf("category %q already defined on line %d", name, line))
		}
		seen[name] = item.Line

		var keywords []string
		if v := mappingValue(item, "keywords"); v != nil {
			var err error
			if keywords, err = parseKeywords(name, v); err != nil {
				return nil, err
			}
		}
		cats = append(cats, taxonomy.RawCategory{Name: name, Keywords: keywords})
	}
	return cats, nil
}

// parseKeywords accepts a list of strings. A null list yields no keywords;
// taxonomy.Build rejects that with a better message.
func parseKeywords(category string, n *yaml.Node) ([]string, error) {
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, invalid(n, fmt.Sprintf("keywords of %q must be a list", category))
	}
	out := make([]string, 0, len(n.Content))
	for _, kw := range n.Content {
		if kw.Kind != yaml.ScalarNode {
			return nil, invalid(kw, fmt.Sprintf("keyword of %q must be a string", category))
		}
		out = append(out, kw.Value)
	}
	return out, nil
}

// LoadLexicon loads an exception lexicon from a YAML file.
func LoadLexicon(path string) (*lemma.Lexicon, error) {
	return lemma.LoadLexiconYAML(path)
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

func invalid(n *yaml.Node, msg string) error {
	return fmt.Errorf("%w: line %d: %s", internalerr.ErrInvalidConfig, n.Line, msg)
}

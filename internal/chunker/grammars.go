package chunker

import (
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// DefaultRegistry registers grammars for the languages where syntactic
// split boundaries are worth the parse.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register("go", &LanguageSpec{
		Language: golang.GetLanguage(),
		Query: `
			(function_declaration) @decl
			(method_declaration) @decl
			(type_declaration) @decl
		`,
	})

	r.Register("python", &LanguageSpec{
		Language: python.GetLanguage(),
		Query: `
			(function_definition) @decl
			(class_definition) @decl
			(decorated_definition) @decl
		`,
	})

	r.Register("javascript", &LanguageSpec{
		Language: javascript.GetLanguage(),
		Query: `
			(function_declaration) @decl
			(class_declaration) @decl
			(lexical_declaration) @decl
		`,
	})

	r.Register("typescript", &LanguageSpec{
		Language: typescript.GetLanguage(),
		Query: `
			(function_declaration) @decl
			(class_declaration) @decl
			(interface_declaration) @decl
			(lexical_declaration) @decl
		`,
	})

	return r
}

package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	c "github.com/tree-sitter/tree-sitter-c/bindings/go"
	java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	ruby "github.com/tree-sitter/tree-sitter-ruby/bindings/go"
	rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/codescope/codescope/internal/extract"
)

// Declaration rule tables per grammar. Node kinds follow each grammar's
// published node-types; everything not listed is treated as a container and
// recursed through.

var pythonSpec = langSpec{
	name:     "python",
	language: func() *sitter.Language { return sitter.NewLanguage(python.Language()) },
	decls: map[string]extract.DeclForm{
		"class_definition":    extract.FormClass,
		"function_definition": extract.FormFunction,
	},
	classForms:  map[extract.DeclForm]bool{extract.FormClass: true},
	callKinds:   map[string]bool{"call": true},
	importKinds: map[string]bool{"import_statement": true, "import_from_statement": true},
	ctorNames:   map[string]bool{"__init__": true},
	docKinds:    map[string]bool{"comment": true},
}

var typescriptSpec = langSpec{
	name:     "typescript",
	language: func() *sitter.Language { return sitter.NewLanguage(typescript.LanguageTypescript()) },
	decls: map[string]extract.DeclForm{
		"class_declaration":      extract.FormClass,
		"interface_declaration":  extract.FormInterface,
		"type_alias_declaration": extract.FormType,
		"function_declaration":   extract.FormFunction,
		"method_definition":      extract.FormMethod,
		"lexical_declaration":    extract.FormVariable,
		"variable_declaration":   extract.FormVariable,
	},
	classForms:  map[extract.DeclForm]bool{extract.FormClass: true},
	callKinds:   map[string]bool{"call_expression": true, "new_expression": true},
	importKinds: map[string]bool{"import_statement": true},
	ctorNames:   map[string]bool{"constructor": true},
	docKinds:    map[string]bool{"comment": true},
}

var tsxSpec = func() langSpec {
	spec := typescriptSpec
	spec.language = func() *sitter.Language { return sitter.NewLanguage(typescript.LanguageTSX()) }
	return spec
}()

var javaSpec = langSpec{
	name:     "java",
	language: func() *sitter.Language { return sitter.NewLanguage(java.Language()) },
	decls: map[string]extract.DeclForm{
		"class_declaration":       extract.FormClass,
		"interface_declaration":   extract.FormInterface,
		"enum_declaration":        extract.FormType,
		"method_declaration":      extract.FormMethod,
		"constructor_declaration": extract.FormConstructor,
		"field_declaration":       extract.FormVariable,
	},
	classForms:  map[extract.DeclForm]bool{extract.FormClass: true, extract.FormInterface: true},
	callKinds:   map[string]bool{"method_invocation": true, "object_creation_expression": true},
	importKinds: map[string]bool{"import_declaration": true},
	docKinds:    map[string]bool{"block_comment": true, "line_comment": true},
}

var rustSpec = langSpec{
	name:     "rust",
	language: func() *sitter.Language { return sitter.NewLanguage(rust.Language()) },
	decls: map[string]extract.DeclForm{
		"struct_item":   extract.FormClass,
		"enum_item":     extract.FormType,
		"trait_item":    extract.FormInterface,
		"function_item": extract.FormFunction,
		"const_item":    extract.FormVariable,
		"static_item":   extract.FormVariable,
		"type_item":     extract.FormType,
	},
	classForms:  map[extract.DeclForm]bool{extract.FormInterface: true},
	callKinds:   map[string]bool{"call_expression": true},
	importKinds: map[string]bool{"use_declaration": true},
	docKinds:    map[string]bool{"line_comment": true, "block_comment": true},
}

var rubySpec = langSpec{
	name:     "ruby",
	language: func() *sitter.Language { return sitter.NewLanguage(ruby.Language()) },
	decls: map[string]extract.DeclForm{
		"class":  extract.FormClass,
		"module": extract.FormClass,
		"method": extract.FormFunction,
	},
	classForms:  map[extract.DeclForm]bool{extract.FormClass: true},
	callKinds:   map[string]bool{"call": true},
	importKinds: map[string]bool{},
	ctorNames:   map[string]bool{"initialize": true},
	docKinds:    map[string]bool{"comment": true},
}

var phpSpec = langSpec{
	name:     "php",
	language: func() *sitter.Language { return sitter.NewLanguage(php.LanguagePHP()) },
	decls: map[string]extract.DeclForm{
		"class_declaration":     extract.FormClass,
		"interface_declaration": extract.FormInterface,
		"trait_declaration":     extract.FormInterface,
		"function_definition":   extract.FormFunction,
		"method_declaration":    extract.FormMethod,
	},
	classForms:  map[extract.DeclForm]bool{extract.FormClass: true, extract.FormInterface: true},
	callKinds:   map[string]bool{"function_call_expression": true, "member_call_expression": true, "object_creation_expression": true},
	importKinds: map[string]bool{"namespace_use_declaration": true},
	ctorNames:   map[string]bool{"__construct": true},
	docKinds:    map[string]bool{"comment": true},
}

var cSpec = langSpec{
	name:     "c",
	language: func() *sitter.Language { return sitter.NewLanguage(c.Language()) },
	decls: map[string]extract.DeclForm{
		"struct_specifier":    extract.FormClass,
		"enum_specifier":      extract.FormType,
		"union_specifier":     extract.FormType,
		"function_definition": extract.FormFunction,
		"type_definition":     extract.FormType,
	},
	classForms:  map[extract.DeclForm]bool{},
	callKinds:   map[string]bool{"call_expression": true},
	importKinds: map[string]bool{"preproc_include": true},
	docKinds:    map[string]bool{"comment": true},
}

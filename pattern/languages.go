package pattern

// Shared building blocks.
const (
	slashLineComment  = `//[^\n]*`
	slashBlockComment = `(?s:/\*.*?(?:\*/|\z))`
	hashLineComment   = `#[^\n]*`

	doubleQuoted = `"(?:[^"\\\n]|\\.)*"`
	singleQuoted = `'(?:[^'\\\n]|\\.)*'`
	backtickRaw  = "`[^`]*`"
	// backtickTemplate allows escapes and newlines, as in JavaScript.
	backtickTemplate = "(?s:`(?:[^`\\\\]|\\\\.)*`)"
	tripleDouble     = `(?s:""".*?(?:"""|\z))`
	tripleSingle     = `(?s:'''.*?(?:'''|\z))`

	cNumber = `\b(?:0[xX][0-9a-fA-F_]+|0[bB][01_]+|0[oO]?[0-7_]+|\d[\d_]*(?:\.\d[\d_]*)?(?:[eE][+-]?\d+)?)[uUlLfF]*\b`

	capitalizedType = `\b[A-Z][A-Za-z0-9_]*\b`
)

var javascript = definition{
	comments: []string{slashLineComment, slashBlockComment},
	strings:  []string{doubleQuoted, singleQuoted, backtickTemplate},
	numbers:  `\b(?:0[xX][0-9a-fA-F_]+|0[bB][01_]+|0[oO][0-7_]+|\d[\d_]*(?:\.\d[\d_]*)?(?:[eE][+-]?\d+)?n?)\b`,
	keywords: []string{
		"async", "await", "break", "case", "catch", "class", "const", "continue",
		"debugger", "default", "delete", "do", "else", "export", "extends",
		"finally", "for", "from", "function", "get", "if", "import", "in",
		"instanceof", "let", "new", "of", "return", "set", "static", "super",
		"switch", "this", "throw", "try", "typeof", "var", "void", "while",
		"with", "yield",
	},
	builtins: []string{"true", "false", "null", "undefined", "NaN", "Infinity"},
	types: []string{
		"Array", "Boolean", "Date", "Error", "Function", "Map", "Number",
		"Object", "Promise", "RegExp", "Set", "String", "Symbol", "WeakMap",
	},
}

// definitions is keyed by normalized language id.
var definitions = map[string]definition{
	// generic-c-like covers brace languages without a dedicated table.
	"generic-c-like": {
		comments: []string{slashLineComment, slashBlockComment},
		strings:  []string{doubleQuoted, singleQuoted, backtickRaw},
		numbers:  cNumber,
		keywords: []string{
			"break", "case", "catch", "class", "const", "continue", "default",
			"delete", "do", "else", "enum", "extends", "extern", "finally", "fn",
			"for", "func", "function", "goto", "if", "implements", "import",
			"interface", "let", "new", "package", "private", "protected",
			"public", "return", "sizeof", "static", "struct", "switch", "this",
			"throw", "try", "typedef", "union", "var", "while",
		},
		builtins: []string{"true", "false", "null", "nil", "NULL"},
		types: []string{
			"auto", "bool", "boolean", "byte", "char", "double", "float", "int",
			"long", "short", "signed", "string", "unsigned", "void",
		},
		typeRule: capitalizedType,
	},

	"go": {
		comments: []string{slashLineComment, slashBlockComment},
		strings:  []string{doubleQuoted, backtickRaw, `'(?:[^'\\\n]|\\.)+'`},
		numbers:  `\b(?:0[xX][0-9a-fA-F_]+(?:\.[0-9a-fA-F_]*)?(?:[pP][+-]?\d+)?|0[bB][01_]+|0[oO][0-7_]+|\d[\d_]*(?:\.\d[\d_]*)?(?:[eE][+-]?\d+)?)i?\b`,
		keywords: []string{
			"break", "case", "chan", "const", "continue", "default", "defer",
			"else", "fallthrough", "for", "func", "go", "goto", "if", "import",
			"interface", "map", "package", "range", "return", "select", "struct",
			"switch", "type", "var",
		},
		builtins: []string{
			"true", "false", "nil", "iota", "append", "cap", "clear", "close",
			"copy", "delete", "len", "make", "max", "min", "new", "panic",
			"print", "println", "recover",
		},
		types: []string{
			"any", "bool", "byte", "comparable", "complex64", "complex128",
			"error", "float32", "float64", "int", "int8", "int16", "int32",
			"int64", "rune", "string", "uint", "uint8", "uint16", "uint32",
			"uint64", "uintptr",
		},
	},

	"swift": {
		comments: []string{slashLineComment, slashBlockComment},
		strings:  []string{tripleDouble, doubleQuoted},
		numbers:  `\b(?:0[xX][0-9a-fA-F_]+|0[bB][01_]+|0[oO][0-7_]+|\d[\d_]*(?:\.\d[\d_]*)?(?:[eE][+-]?\d+)?)\b`,
		keywords: []string{
			"actor", "as", "associatedtype", "async", "await", "break", "case",
			"catch", "class", "continue", "convenience", "default", "defer",
			"deinit", "do", "else", "enum", "extension", "fallthrough",
			"fileprivate", "final", "for", "func", "guard", "if", "import", "in",
			"init", "inout", "internal", "is", "lazy", "let", "mutating", "open",
			"operator", "override", "private", "protocol", "public", "repeat",
			"required", "rethrows", "return", "some", "static", "struct",
			"subscript", "super", "switch", "throw", "throws", "try",
			"typealias", "unowned", "var", "weak", "where", "while",
		},
		builtins: []string{"true", "false", "nil", "self", "Self"},
		types: []string{
			"Any", "AnyObject", "Array", "Bool", "Character", "Dictionary",
			"Double", "Float", "Int", "Int8", "Int16", "Int32", "Int64",
			"Optional", "Result", "Set", "String", "UInt", "UInt8", "UInt16",
			"UInt32", "UInt64", "Void",
		},
		typeRule: capitalizedType,
	},

	"python": {
		comments: []string{hashLineComment},
		strings: []string{
			`(?:\b[rRbBuUfF]{1,2})?` + tripleDouble,
			`(?:\b[rRbBuUfF]{1,2})?` + tripleSingle,
			`(?:\b[rRbBuUfF]{1,2})?` + doubleQuoted,
			`(?:\b[rRbBuUfF]{1,2})?` + singleQuoted,
		},
		numbers: `\b(?:0[xX][0-9a-fA-F_]+|0[oO][0-7_]+|0[bB][01_]+|\d[\d_]*(?:\.\d[\d_]*)?(?:[eE][+-]?\d+)?[jJ]?)\b`,
		keywords: []string{
			"and", "as", "assert", "async", "await", "break", "class",
			"continue", "def", "del", "elif", "else", "except", "finally", "for",
			"from", "global", "if", "import", "in", "is", "lambda", "match",
			"nonlocal", "not", "or", "pass", "raise", "return", "try", "while",
			"with", "yield",
		},
		builtins: []string{"True", "False", "None", "self", "cls"},
		types: []string{
			"bool", "bytearray", "bytes", "complex", "dict", "float",
			"frozenset", "int", "list", "object", "set", "str", "tuple", "type",
		},
	},

	"javascript": javascript,

	"typescript": extend(javascript, definition{
		keywords: []string{
			"abstract", "declare", "enum", "implements", "interface", "keyof",
			"namespace", "private", "protected", "public", "readonly", "type",
		},
		types: []string{
			"any", "bigint", "boolean", "never", "number", "object", "string",
			"symbol", "unknown", "void",
		},
		typeRule: capitalizedType,
	}),

	"json": {
		strings:  []string{doubleQuoted},
		numbers:  `-?\b\d+(?:\.\d+)?(?:[eE][+-]?\d+)?\b`,
		keywords: []string{"true", "false", "null"},
	},
}

// extend returns base with the word lists of more appended and any
// non-empty pattern fields of more replacing base's.
func extend(base, more definition) definition {
	d := definition{
		comments: append([]string(nil), base.comments...),
		strings:  append([]string(nil), base.strings...),
		numbers:  base.numbers,
		keywords: append(append([]string(nil), base.keywords...), more.keywords...),
		builtins: append(append([]string(nil), base.builtins...), more.builtins...),
		types:    append(append([]string(nil), base.types...), more.types...),
		typeRule: base.typeRule,
	}
	if more.numbers != "" {
		d.numbers = more.numbers
	}
	if more.typeRule != "" {
		d.typeRule = more.typeRule
	}
	if len(more.comments) > 0 {
		d.comments = more.comments
	}
	if len(more.strings) > 0 {
		d.strings = more.strings
	}
	return d
}

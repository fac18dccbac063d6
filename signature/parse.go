package signature

import (
	"strings"
	"unicode"

	"github.com/wippyai/strffi/errors"
	"go.bytecodealliance.org/wit"
)

// ParseWIT extracts function signatures from WIT text.
//
// The accepted subset covers what a text boundary can carry: record, enum,
// flags, variant and type alias declarations plus `name: func(...) -> T;`
// items, optionally wrapped in interface or world blocks. In a world only
// exports are collected. A top-level option<T> parameter becomes an optional
// parameter of type T; a top-level result<T, E> return marks the function
// fallible with result type T.
func ParseWIT(text string) ([]Signature, error) {
	toks, err := lex(text)
	if err != nil {
		return nil, err
	}

	p := &parser{toks: toks, types: make(map[string]*wit.TypeDef)}
	if err := p.parseItems(false, false); err != nil {
		return nil, err
	}
	if !p.at(tokEOF) {
		return nil, p.unexpected()
	}
	if err := p.checkDefined(); err != nil {
		return nil, err
	}
	if len(p.sigs) == 0 {
		return nil, errors.InvalidInput(errors.PhaseParse, "no functions found in WIT text")
	}
	return p.sigs, nil
}

type tokKind uint8

const (
	tokEOF tokKind = iota
	tokIdent
	tokPunct
	tokArrow
)

type token struct {
	text string
	doc  string
	line int
	kind tokKind
}

func lex(src string) ([]token, error) {
	var toks []token
	var doc strings.Builder
	line := 1
	i := 0

	for i < len(src) {
		c := src[i]
		switch {
		case c == '\n':
			line++
			i++
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case strings.HasPrefix(src[i:], "///"):
			end := strings.IndexByte(src[i:], '\n')
			if end < 0 {
				end = len(src) - i
			}
			if doc.Len() > 0 {
				doc.WriteByte('\n')
			}
			doc.WriteString(strings.TrimSpace(src[i+3 : i+end]))
			i += end
		case strings.HasPrefix(src[i:], "//"):
			end := strings.IndexByte(src[i:], '\n')
			if end < 0 {
				end = len(src) - i
			}
			i += end
		case strings.HasPrefix(src[i:], "/*"):
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return nil, errors.Syntax(line, "unterminated block comment")
			}
			line += strings.Count(src[i:i+2+end], "\n")
			i += end + 4
		case strings.HasPrefix(src[i:], "->"):
			toks = append(toks, token{kind: tokArrow, text: "->", line: line})
			i += 2
		case strings.IndexByte("{}()<>,:;=@./", c) >= 0:
			toks = append(toks, token{kind: tokPunct, text: string(c), line: line})
			i++
		case c == '%' || c == '_' || isIdentStart(rune(c)):
			start := i
			if c == '%' {
				i++
			}
			for i < len(src) && isIdentPart(rune(src[i])) {
				i++
			}
			word := strings.TrimPrefix(src[start:i], "%")
			if word == "" {
				return nil, errors.Syntax(line, "empty identifier")
			}
			toks = append(toks, token{kind: tokIdent, text: word, line: line, doc: doc.String()})
			doc.Reset()
		case c >= '0' && c <= '9':
			start := i
			for i < len(src) && (isIdentPart(rune(src[i]))) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: src[start:i], line: line})
		default:
			return nil, errors.Syntax(line, "unexpected character %q", c)
		}
	}
	toks = append(toks, token{kind: tokEOF, line: line})
	return toks, nil
}

func isIdentStart(r rune) bool {
	return r < unicode.MaxASCII && unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) || r == '-' || r == '_'
}

type parser struct {
	types    map[string]*wit.TypeDef
	firstUse map[string]int
	doc      string
	toks     []token
	sigs     []Signature
	pos      int
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) at(kind tokKind) bool {
	return p.peek().kind == kind
}

func (p *parser) atPunct(s string) bool {
	t := p.peek()
	return t.kind == tokPunct && t.text == s
}

func (p *parser) atWord(s string) bool {
	t := p.peek()
	return t.kind == tokIdent && t.text == s
}

func (p *parser) expectPunct(s string) error {
	if !p.atPunct(s) {
		return p.unexpected(s)
	}
	p.next()
	return nil
}

func (p *parser) expectIdent() (token, error) {
	if !p.at(tokIdent) {
		return token{}, p.unexpected("identifier")
	}
	return p.next(), nil
}

func (p *parser) unexpected(want ...string) error {
	t := p.peek()
	got := t.text
	if t.kind == tokEOF {
		got = "end of input"
	}
	if len(want) == 0 {
		return errors.Syntax(t.line, "unexpected %q", got)
	}
	return errors.Syntax(t.line, "expected %s, got %q", strings.Join(want, " or "), got)
}

// parseItems parses declarations until EOF or a closing brace. Inside a world
// only exported functions are kept.
func (p *parser) parseItems(nested, world bool) error {
	for !p.at(tokEOF) && !p.atPunct("}") {
		if err := p.parseItem(world); err != nil {
			return err
		}
	}
	if nested {
		return p.expectPunct("}")
	}
	return nil
}

func (p *parser) parseItem(world bool) error {
	t := p.peek()
	if t.kind != tokIdent {
		return p.unexpected("declaration")
	}
	p.doc = t.doc

	switch t.text {
	case "package", "use", "include":
		return p.skipStatement()
	case "interface", "world":
		p.next()
		if _, err := p.expectIdent(); err != nil {
			return err
		}
		if err := p.expectPunct("{"); err != nil {
			return err
		}
		return p.parseItems(true, t.text == "world")
	case "record":
		return p.parseRecord()
	case "enum":
		return p.parseNameList(func() wit.TypeDefKind {
			return &wit.Enum{}
		}, func(kind wit.TypeDefKind, name string) {
			e := kind.(*wit.Enum)
			e.Cases = append(e.Cases, wit.EnumCase{Name: name})
		})
	case "flags":
		return p.parseNameList(func() wit.TypeDefKind {
			return &wit.Flags{}
		}, func(kind wit.TypeDefKind, name string) {
			f := kind.(*wit.Flags)
			f.Flags = append(f.Flags, wit.Flag{Name: name})
		})
	case "variant":
		return p.parseVariant()
	case "type":
		return p.parseAlias()
	case "export":
		p.next()
		return p.parseExternItem(true)
	case "import":
		p.next()
		return p.parseExternItem(false)
	}

	if world {
		// bare items in a world are not exports
		return p.parseExternItem(false)
	}
	return p.parseFunc()
}

// parseExternItem handles `export`/`import` items. Interface references
// (`export foo;`) are skipped.
func (p *parser) parseExternItem(keep bool) error {
	if p.atWord("interface") {
		p.next()
		return p.skipStatement()
	}
	if _, err := p.expectIdent(); err != nil {
		return err
	}
	if !p.atPunct(":") {
		return p.skipStatement()
	}
	p.pos--
	if !keep {
		return p.skipStatement()
	}
	return p.parseFunc()
}

func (p *parser) skipStatement() error {
	depth := 0
	for !p.at(tokEOF) {
		t := p.next()
		if t.kind != tokPunct {
			continue
		}
		switch t.text {
		case "{":
			depth++
		case "}":
			depth--
			if depth == 0 {
				return nil
			}
		case ";":
			if depth == 0 {
				return nil
			}
		}
	}
	return p.unexpected(";")
}

func (p *parser) parseFunc() error {
	nameTok, err := p.expectIdent()
	if err != nil {
		return err
	}
	if err := p.expectPunct(":"); err != nil {
		return err
	}
	if !p.atWord("func") {
		return p.unexpected("func")
	}
	p.next()
	if err := p.expectPunct("("); err != nil {
		return err
	}

	for _, s := range p.sigs {
		if s.Name == nameTok.text {
			return errors.Syntax(nameTok.line, "duplicate function %q", nameTok.text)
		}
	}

	sig := Signature{Name: nameTok.text, Doc: p.doc}
	for !p.atPunct(")") {
		pname, err := p.expectIdent()
		if err != nil {
			return err
		}
		if err := p.expectPunct(":"); err != nil {
			return err
		}
		typ, err := p.parseType()
		if err != nil {
			return err
		}
		param := Param{Name: pname.text, Type: typ}
		if inner, ok := anonymousOption(typ); ok {
			param.Type = inner
			param.Optional = true
		}
		sig.Params = append(sig.Params, param)
		if !p.atPunct(",") {
			break
		}
		p.next()
	}
	if err := p.expectPunct(")"); err != nil {
		return err
	}

	if p.at(tokArrow) {
		p.next()
		typ, err := p.parseType()
		if err != nil {
			return err
		}
		if r, ok := anonymousResult(typ); ok {
			sig.Fallible = true
			sig.Result = r.OK
		} else {
			sig.Result = typ
		}
	}
	if err := p.expectPunct(";"); err != nil {
		return err
	}

	p.sigs = append(p.sigs, sig)
	return nil
}

func anonymousOption(t wit.Type) (wit.Type, bool) {
	td, ok := t.(*wit.TypeDef)
	if !ok || td.Name != nil {
		return nil, false
	}
	o, ok := td.Kind.(*wit.Option)
	if !ok {
		return nil, false
	}
	return o.Type, true
}

func anonymousResult(t wit.Type) (*wit.Result, bool) {
	td, ok := t.(*wit.TypeDef)
	if !ok || td.Name != nil {
		return nil, false
	}
	r, ok := td.Kind.(*wit.Result)
	return r, ok
}

func (p *parser) parseType() (wit.Type, error) {
	t, err := p.expectIdent()
	if err != nil {
		return nil, err
	}

	switch t.text {
	case "bool":
		return wit.Bool{}, nil
	case "u8":
		return wit.U8{}, nil
	case "s8":
		return wit.S8{}, nil
	case "u16":
		return wit.U16{}, nil
	case "s16":
		return wit.S16{}, nil
	case "u32":
		return wit.U32{}, nil
	case "s32":
		return wit.S32{}, nil
	case "u64":
		return wit.U64{}, nil
	case "s64":
		return wit.S64{}, nil
	case "f32", "float32":
		return wit.F32{}, nil
	case "f64", "float64":
		return wit.F64{}, nil
	case "char":
		return wit.Char{}, nil
	case "string":
		return wit.String{}, nil
	case "list":
		elem, err := p.parseTypeArg()
		if err != nil {
			return nil, err
		}
		return &wit.TypeDef{Kind: &wit.List{Type: elem}}, p.expectPunct(">")
	case "option":
		elem, err := p.parseTypeArg()
		if err != nil {
			return nil, err
		}
		return &wit.TypeDef{Kind: &wit.Option{Type: elem}}, p.expectPunct(">")
	case "tuple":
		if err := p.expectPunct("<"); err != nil {
			return nil, err
		}
		tup := &wit.Tuple{}
		for {
			elem, err := p.parseType()
			if err != nil {
				return nil, err
			}
			tup.Types = append(tup.Types, elem)
			if !p.atPunct(",") {
				break
			}
			p.next()
		}
		return &wit.TypeDef{Kind: tup}, p.expectPunct(">")
	case "result":
		return p.parseResult()
	case "own", "borrow":
		return nil, errors.Syntax(t.line, "resource handles are not supported")
	}
	return p.reference(t), nil
}

func (p *parser) parseTypeArg() (wit.Type, error) {
	if err := p.expectPunct("<"); err != nil {
		return nil, err
	}
	return p.parseType()
}

func (p *parser) parseResult() (wit.Type, error) {
	r := &wit.Result{}
	if !p.atPunct("<") {
		return &wit.TypeDef{Kind: r}, nil
	}
	p.next()

	if p.atWord("_") {
		p.next()
	} else {
		ok, err := p.parseType()
		if err != nil {
			return nil, err
		}
		r.OK = ok
	}
	if p.atPunct(",") {
		p.next()
		e, err := p.parseType()
		if err != nil {
			return nil, err
		}
		r.Err = e
	}
	return &wit.TypeDef{Kind: r}, p.expectPunct(">")
}

// reference returns the TypeDef for a named type, creating a placeholder
// when it is used before its declaration.
func (p *parser) reference(t token) *wit.TypeDef {
	if td, ok := p.types[t.text]; ok {
		return td
	}
	name := t.text
	td := &wit.TypeDef{Name: &name}
	p.types[name] = td
	if p.firstUse == nil {
		p.firstUse = make(map[string]int)
	}
	p.firstUse[name] = t.line
	return td
}

// declare binds kind to name, filling a placeholder created by reference.
func (p *parser) declare(t token, kind wit.TypeDefKind) (*wit.TypeDef, error) {
	td := p.reference(t)
	if td.Kind != nil {
		return nil, errors.Syntax(t.line, "duplicate type %q", t.text)
	}
	td.Kind = kind
	delete(p.firstUse, t.text)
	return td, nil
}

func (p *parser) checkDefined() error {
	for name, line := range p.firstUse {
		return errors.Syntax(line, "undefined type %q", name)
	}

	state := make(map[*wit.TypeDef]uint8, len(p.types))
	for name, td := range p.types {
		if cyclic(td, state) {
			return errors.InvalidInput(errors.PhaseParse, "type "+name+" is recursive")
		}
	}
	return nil
}

// cyclic walks the types reachable from t. state is 1 while a type is on the
// current path and 2 once it is known to be acyclic.
func cyclic(t wit.Type, state map[*wit.TypeDef]uint8) bool {
	td, ok := t.(*wit.TypeDef)
	if !ok || td == nil {
		return false
	}
	switch state[td] {
	case 1:
		return true
	case 2:
		return false
	}
	state[td] = 1
	for _, child := range childTypes(td.Kind) {
		if cyclic(child, state) {
			return true
		}
	}
	state[td] = 2
	return false
}

func childTypes(kind any) []wit.Type {
	switch k := kind.(type) {
	case *wit.Record:
		out := make([]wit.Type, len(k.Fields))
		for i, f := range k.Fields {
			out[i] = f.Type
		}
		return out
	case *wit.Variant:
		var out []wit.Type
		for _, c := range k.Cases {
			if c.Type != nil {
				out = append(out, c.Type)
			}
		}
		return out
	case *wit.List:
		return []wit.Type{k.Type}
	case *wit.Option:
		return []wit.Type{k.Type}
	case *wit.Tuple:
		return k.Types
	case *wit.Result:
		var out []wit.Type
		if k.OK != nil {
			out = append(out, k.OK)
		}
		if k.Err != nil {
			out = append(out, k.Err)
		}
		return out
	case wit.Type:
		return []wit.Type{k}
	}
	return nil
}

func (p *parser) parseRecord() error {
	p.next()
	nameTok, err := p.expectIdent()
	if err != nil {
		return err
	}
	if err := p.expectPunct("{"); err != nil {
		return err
	}
	rec := &wit.Record{}
	for !p.atPunct("}") {
		field, err := p.expectIdent()
		if err != nil {
			return err
		}
		if err := p.expectPunct(":"); err != nil {
			return err
		}
		typ, err := p.parseType()
		if err != nil {
			return err
		}
		rec.Fields = append(rec.Fields, wit.Field{Name: field.text, Type: typ})
		if !p.atPunct(",") {
			break
		}
		p.next()
	}
	if err := p.expectPunct("}"); err != nil {
		return err
	}
	_, err = p.declare(nameTok, rec)
	return err
}

func (p *parser) parseNameList(newKind func() wit.TypeDefKind, add func(wit.TypeDefKind, string)) error {
	p.next()
	nameTok, err := p.expectIdent()
	if err != nil {
		return err
	}
	if err := p.expectPunct("{"); err != nil {
		return err
	}
	kind := newKind()
	for !p.atPunct("}") {
		item, err := p.expectIdent()
		if err != nil {
			return err
		}
		add(kind, item.text)
		if !p.atPunct(",") {
			break
		}
		p.next()
	}
	if err := p.expectPunct("}"); err != nil {
		return err
	}
	_, err = p.declare(nameTok, kind)
	return err
}

func (p *parser) parseVariant() error {
	p.next()
	nameTok, err := p.expectIdent()
	if err != nil {
		return err
	}
	if err := p.expectPunct("{"); err != nil {
		return err
	}
	v := &wit.Variant{}
	for !p.atPunct("}") {
		caseTok, err := p.expectIdent()
		if err != nil {
			return err
		}
		c := wit.Case{Name: caseTok.text}
		if p.atPunct("(") {
			p.next()
			typ, err := p.parseType()
			if err != nil {
				return err
			}
			c.Type = typ
			if err := p.expectPunct(")"); err != nil {
				return err
			}
		}
		v.Cases = append(v.Cases, c)
		if !p.atPunct(",") {
			break
		}
		p.next()
	}
	if err := p.expectPunct("}"); err != nil {
		return err
	}
	_, err = p.declare(nameTok, v)
	return err
}

func (p *parser) parseAlias() error {
	p.next()
	nameTok, err := p.expectIdent()
	if err != nil {
		return err
	}
	if err := p.expectPunct("="); err != nil {
		return err
	}
	typ, err := p.parseType()
	if err != nil {
		return err
	}
	if err := p.expectPunct(";"); err != nil {
		return err
	}
	kind, ok := typ.(wit.TypeDefKind)
	if !ok {
		return errors.Syntax(nameTok.line, "type %q has an invalid target", nameTok.text)
	}
	_, err = p.declare(nameTok, kind)
	return err
}

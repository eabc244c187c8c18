package sparql

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIRI
	tokPName
	tokVar
	tokString
	tokNumber
	tokIdent
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	pos  int

	// literal suffixes
	lang     string
	datatype string
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of query"
	case tokIRI:
		return "<" + t.text + ">"
	case tokVar:
		return "?" + t.text
	case tokString:
		return fmt.Sprintf("%q", t.text)
	default:
		return t.text
	}
}

type lexer struct {
	src string
	pos int
}

func tokenize(src string) ([]token, error) {
	l := &lexer{src: src}
	var out []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
		if tok.kind == tokEOF {
			return out, nil
		}
	}
}

func (l *lexer) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w at offset %d: %s", ErrSyntax, l.pos, fmt.Sprintf(format, args...))
}

func (l *lexer) peekRune(offset int) rune {
	if l.pos+offset >= len(l.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.pos+offset:])
	return r
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		switch {
		case unicode.IsSpace(r):
			l.pos += size
		case r == '#':
			end := strings.IndexByte(l.src[l.pos:], '\n')
			if end < 0 {
				l.pos = len(l.src)
			} else {
				l.pos += end + 1
			}
		default:
			return
		}
	}
}

func (l *lexer) next() (token, error) {
	l.skipSpace()
	start := l.pos
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: start}, nil
	}

	r, size := utf8.DecodeRuneInString(l.src[l.pos:])
	switch {
	case r == '<':
		if iri, ok := l.scanIRI(); ok {
			return token{kind: tokIRI, text: iri, pos: start}, nil
		}
		if l.peekRune(1) == '=' {
			l.pos += 2
			return token{kind: tokPunct, text: "<=", pos: start}, nil
		}
		l.pos++
		return token{kind: tokPunct, text: "<", pos: start}, nil

	case r == '?' || r == '$':
		if isNameStart(l.peekRune(1)) || unicode.IsDigit(l.peekRune(1)) {
			l.pos++
			name := l.scanName(false)
			return token{kind: tokVar, text: name, pos: start}, nil
		}
		l.pos++
		return token{kind: tokPunct, text: "?", pos: start}, nil

	case r == '"' || r == '\'':
		return l.scanString(start)

	case unicode.IsDigit(r) || (r == '.' && unicode.IsDigit(l.peekRune(1))):
		return l.scanNumber(start), nil

	case isNameStart(r) || r == ':':
		return l.scanWord(start)
	}

	for _, op := range []string{"&&", "||", "!=", ">=", "^^"} {
		if strings.HasPrefix(l.src[l.pos:], op) {
			l.pos += len(op)
			return token{kind: tokPunct, text: op, pos: start}, nil
		}
	}
	if strings.ContainsRune("{}().;,*/+!=>|^-", r) {
		l.pos += size
		return token{kind: tokPunct, text: string(r), pos: start}, nil
	}
	return token{}, l.errorf("unexpected character %q", r)
}

// scanIRI consumes <...> when the bracket encloses an IRI reference rather
// than starting a comparison.
func (l *lexer) scanIRI() (string, bool) {
	for i := l.pos + 1; i < len(l.src); {
		r, size := utf8.DecodeRuneInString(l.src[i:])
		switch {
		case r == '>':
			iri := l.src[l.pos+1 : i]
			l.pos = i + 1
			return iri, true
		case unicode.IsSpace(r) || strings.ContainsRune("<\"{}|^`\\", r):
			return "", false
		}
		i += size
	}
	return "", false
}

func isNameStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isNameChar(r rune) bool {
	return isNameStart(r) || unicode.IsDigit(r) || r == '-'
}

// scanName reads a name. Local names of prefixed names may also contain
// dots, but never end with one.
func (l *lexer) scanName(local bool) string {
	start := l.pos
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if isNameChar(r) || (local && (r == '.' || r == '%') && l.pos > start) {
			l.pos += size
			continue
		}
		break
	}
	for local && l.pos > start && l.src[l.pos-1] == '.' {
		l.pos--
	}
	return l.src[start:l.pos]
}

func (l *lexer) scanWord(start int) (token, error) {
	prefix := ""
	if l.src[l.pos] != ':' {
		prefix = l.scanName(false)
	}
	if l.pos < len(l.src) && l.src[l.pos] == ':' {
		l.pos++
		local := l.scanName(true)
		return token{kind: tokPName, text: prefix + ":" + local, pos: start}, nil
	}
	return token{kind: tokIdent, text: prefix, pos: start}, nil
}

func (l *lexer) scanNumber(start int) token {
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	if l.pos+1 < len(l.src) && l.src[l.pos] == '.' && isDigit(l.src[l.pos+1]) {
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	if l.pos < len(l.src) && (l.src[l.pos] == 'e' || l.src[l.pos] == 'E') {
		save := l.pos
		l.pos++
		if l.pos < len(l.src) && (l.src[l.pos] == '+' || l.src[l.pos] == '-') {
			l.pos++
		}
		if l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
				l.pos++
			}
		} else {
			l.pos = save
		}
	}
	return token{kind: tokNumber, text: l.src[start:l.pos], pos: start}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func (l *lexer) scanString(start int) (token, error) {
	quote := l.src[l.pos]
	long := strings.HasPrefix(l.src[l.pos:], strings.Repeat(string(quote), 3))
	if long {
		l.pos += 3
	} else {
		l.pos++
	}

	var sb strings.Builder
	for {
		if l.pos >= len(l.src) {
			return token{}, l.errorf("unterminated string")
		}
		c := l.src[l.pos]
		if long && strings.HasPrefix(l.src[l.pos:], strings.Repeat(string(quote), 3)) {
			l.pos += 3
			break
		}
		if !long && c == quote {
			l.pos++
			break
		}
		if !long && (c == '\n' || c == '\r') {
			return token{}, l.errorf("newline in string")
		}
		if c == '\\' && l.pos+1 < len(l.src) {
			l.pos++
			switch l.src[l.pos] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case 'b':
				sb.WriteByte('\b')
			case 'f':
				sb.WriteByte('\f')
			default:
				sb.WriteByte(l.src[l.pos])
			}
			l.pos++
			continue
		}
		sb.WriteByte(c)
		l.pos++
	}

	tok := token{kind: tokString, text: sb.String(), pos: start}
	switch {
	case l.pos < len(l.src) && l.src[l.pos] == '@':
		l.pos++
		s := l.pos
		for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '-' ||
			(l.src[l.pos]|0x20 >= 'a' && l.src[l.pos]|0x20 <= 'z')) {
			l.pos++
		}
		tok.lang = l.src[s:l.pos]
	case strings.HasPrefix(l.src[l.pos:], "^^"):
		l.pos += 2
		dt, err := l.next()
		if err != nil {
			return token{}, err
		}
		switch dt.kind {
		case tokIRI:
			tok.datatype = "<" + dt.text + ">"
		case tokPName:
			tok.datatype = dt.text
		default:
			return token{}, l.errorf("expected datatype after ^^")
		}
	}
	return tok, nil
}

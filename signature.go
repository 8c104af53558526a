package dbus

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// signatureCacheSize bounds the number of distinct signature strings
// whose parse result is memoized. A live connection sees a small,
// repeating set of signatures (method argument lists, property variants),
// so a modest cache eliminates nearly all re-parsing without growing
// unbounded on a long-lived process talking to many interfaces.
const signatureCacheSize = 512

var (
	sigCache     *lru.Cache
	sigCacheOnce sync.Once
)

func signatureCache() *lru.Cache {
	sigCacheOnce.Do(func() {
		c, err := lru.New(signatureCacheSize)
		if err != nil {
			// lru.New only errors on size <= 0, which is a constant above.
			panic(err)
		}
		sigCache = c
	})
	return sigCache
}

type cachedSig struct {
	types []Type
	err   error
}

// Parse parses a whole D-Bus signature string into an ordered sequence of
// Types. It fails with an *InvalidSignatureError on an unknown type code,
// unmatched '(' / ')' or '{' / '}', a premature end of string, or trailing
// characters left over from a malformed composite.
func (s Signature) Parse() ([]Type, error) {
	if len(s) > maxSignatureLen {
		return nil, &InvalidSignatureError{Signature: string(s), Reason: "signature longer than 255 bytes"}
	}
	if v, ok := signatureCache().Get(s); ok {
		c := v.(cachedSig)
		return c.types, c.err
	}

	p := sigParser{s: string(s)}
	types, err := p.parseAll()
	signatureCache().Add(s, cachedSig{types: types, err: err})
	return types, err
}

// InvalidSignatureError reports a malformed signature string.
type InvalidSignatureError struct {
	Signature string
	Reason    string
}

func (e *InvalidSignatureError) Error() string {
	return fmt.Sprintf("dbus: invalid signature %q: %s", e.Signature, e.Reason)
}

type sigParser struct {
	s   string
	pos int
}

func (p *sigParser) parseAll() ([]Type, error) {
	var types []Type
	for p.pos < len(p.s) {
		t, err := p.parseOne(false)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

// parseOne parses a single complete type starting at p.pos. insideArray is
// true only when parsing the element type directly following an 'a', since
// a DICT_ENTRY is only a legal type in that position.
func (p *sigParser) parseOne(insideArray bool) (Type, error) {
	if p.pos >= len(p.s) {
		return Type{}, &InvalidSignatureError{Signature: p.s, Reason: "unexpected end of signature"}
	}
	c := p.s[p.pos]
	p.pos++

	switch Kind(c) {
	case KindByte, KindBoolean, KindInt16, KindUint16, KindInt32, KindUint32,
		KindInt64, KindUint64, KindDouble, KindString, KindObjectPath,
		KindSignature, KindUnixFD, KindVariant:
		return Type{Kind: Kind(c)}, nil

	case KindArray:
		elem, err := p.parseOne(true)
		if err != nil {
			return Type{}, err
		}
		return TArray(elem), nil

	case KindStruct:
		var fields []Type
		for {
			if p.pos >= len(p.s) {
				return Type{}, &InvalidSignatureError{Signature: p.s, Reason: "unterminated struct"}
			}
			if p.s[p.pos] == ')' {
				p.pos++
				break
			}
			f, err := p.parseOne(false)
			if err != nil {
				return Type{}, err
			}
			fields = append(fields, f)
		}
		if len(fields) == 0 {
			return Type{}, &InvalidSignatureError{Signature: p.s, Reason: "struct must have at least one field"}
		}
		return TStruct(fields...), nil

	case KindDictEntry:
		if !insideArray {
			return Type{}, &InvalidSignatureError{Signature: p.s, Reason: "dict entry only valid as an array element"}
		}
		key, err := p.parseOne(false)
		if err != nil {
			return Type{}, err
		}
		if !key.IsBasic() {
			return Type{}, &InvalidSignatureError{Signature: p.s, Reason: "dict entry key must be a basic type"}
		}
		val, err := p.parseOne(false)
		if err != nil {
			return Type{}, err
		}
		if p.pos >= len(p.s) || p.s[p.pos] != '}' {
			return Type{}, &InvalidSignatureError{Signature: p.s, Reason: "unterminated dict entry"}
		}
		p.pos++
		return TDictEntry(key, val), nil

	case ')', '}':
		return Type{}, &InvalidSignatureError{Signature: p.s, Reason: "unmatched closing bracket"}

	default:
		return Type{}, &InvalidSignatureError{Signature: p.s, Reason: fmt.Sprintf("unknown type code %q", c)}
	}
}

// Serialize renders types back into their canonical signature string.
// Parse(s).Serialize() == s for every well-formed s.
func Serialize(types []Type) Signature {
	var buf []byte
	for _, t := range types {
		appendTypeSignature(&buf, t)
	}
	return Signature(buf)
}

package abis

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

var (
	eventNameRe = regexp.MustCompile(`^[A-Z][a-zA-Z0-9_]*$`)
	paramNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
	fixedBytes  = regexp.MustCompile(`^bytes([1-9]|[12][0-9]|3[0-2])$`)
	sizedInt    = regexp.MustCompile(`^u?int(8|16|24|32|40|48|56|64|72|80|88|96|104|112|120|128|136|144|152|160|168|176|184|192|200|208|216|224|232|240|248|256)?$`) //nolint:lll
	fixedArray  = regexp.MustCompile(`\[\d+\]$`)
)

// EventParam is one parameter of a human readable event signature.
type EventParam struct {
	Name    string
	Type    string
	Indexed bool
}

// EventSignature is a parsed human readable event signature such as
// "Transfer(address indexed from, address indexed to, uint256 value)".
type EventSignature struct {
	Raw    string
	Name   string
	Params []EventParam
}

// ParseEventSignature parses an event signature. Parameter names are optional;
// unnamed parameters are called param0, param1 and so on.
func ParseEventSignature(sig string) (*EventSignature, error) {
	sig = strings.TrimSpace(sig)
	if sig == "" {
		return nil, fmt.Errorf("empty signature")
	}

	openParen := strings.Index(sig, "(")
	closeParen := strings.LastIndex(sig, ")")
	if openParen == -1 || closeParen == -1 || closeParen < openParen {
		return nil, fmt.Errorf("invalid signature %q: malformed parentheses", sig)
	}

	name := strings.TrimSpace(sig[:openParen])
	if !eventNameRe.MatchString(name) {
		return nil, fmt.Errorf("invalid event name %q: must start with an uppercase letter", name)
	}

	params, err := parseParameters(sig[openParen+1 : closeParen])
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", name, err)
	}

	return &EventSignature{Raw: sig, Name: name, Params: params}, nil
}

func parseParameters(list string) ([]EventParam, error) {
	list = strings.TrimSpace(list)
	if list == "" {
		return nil, nil
	}

	parts := strings.Split(list, ",")
	params := make([]EventParam, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))

	for i, part := range parts {
		p, err := parseParameter(strings.Fields(part), i)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", strings.TrimSpace(part), err)
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("duplicate parameter name: %s", p.Name)
		}
		seen[p.Name] = struct{}{}
		params = append(params, p)
	}

	return params, nil
}

func parseParameter(fields []string, index int) (EventParam, error) {
	if len(fields) == 0 {
		return EventParam{}, fmt.Errorf("empty parameter")
	}
	if !isValidSolidityType(fields[0]) {
		return EventParam{}, fmt.Errorf("unsupported type %s", fields[0])
	}

	p := EventParam{Type: fields[0], Name: fmt.Sprintf("param%d", index)}

	switch {
	case len(fields) == 1:
	case len(fields) == 2 && fields[1] == "indexed": //nolint:mnd
		p.Indexed = true
	case len(fields) == 2: //nolint:mnd
		p.Name = fields[1]
	case len(fields) == 3 && fields[1] == "indexed": //nolint:mnd
		p.Indexed = true
		p.Name = fields[2]
	default:
		return EventParam{}, fmt.Errorf("expected '<type> [indexed] [name]'")
	}

	if !paramNameRe.MatchString(p.Name) {
		return EventParam{}, fmt.Errorf("invalid parameter name: %s", p.Name)
	}

	return p, nil
}

// isValidSolidityType accepts elementary types and arrays of them. Tuples are not supported
// in signatures; contracts emitting them need a JSON ABI.
func isValidSolidityType(typ string) bool {
	switch {
	case typ == "address", typ == "bool", typ == "string", typ == "bytes":
		return true
	case fixedBytes.MatchString(typ), sizedInt.MatchString(typ):
		return true
	case strings.HasSuffix(typ, "[]"):
		return isValidSolidityType(strings.TrimSuffix(typ, "[]"))
	case fixedArray.MatchString(typ):
		return isValidSolidityType(fixedArray.ReplaceAllString(typ, ""))
	}

	return false
}

// CanonicalSignature returns the signature without names, e.g. "Transfer(address,address,uint256)".
func (e *EventSignature) CanonicalSignature() string {
	types := make([]string, len(e.Params))
	for i, p := range e.Params {
		types[i] = p.Type
	}

	return e.Name + "(" + strings.Join(types, ",") + ")"
}

// Event converts the signature into a go-ethereum ABI event.
func (e *EventSignature) Event() (abi.Event, error) {
	inputs := make(abi.Arguments, 0, len(e.Params))

	for _, p := range e.Params {
		typ, err := abi.NewType(p.Type, "", nil)
		if err != nil {
			return abi.Event{}, fmt.Errorf("event %s: %w", e.Name, err)
		}
		inputs = append(inputs, abi.Argument{Name: p.Name, Type: typ, Indexed: p.Indexed})
	}

	return abi.NewEvent(e.Name, e.Name, false, inputs), nil
}

// FromSignatures builds an ABI holding one event per signature.
func FromSignatures(sigs []string) (*abi.ABI, error) {
	parsed := &abi.ABI{Events: make(map[string]abi.Event, len(sigs))}

	for _, sig := range sigs {
		es, err := ParseEventSignature(sig)
		if err != nil {
			return nil, err
		}
		if _, dup := parsed.Events[es.Name]; dup {
			return nil, fmt.Errorf("duplicate event %s", es.Name)
		}

		ev, err := es.Event()
		if err != nil {
			return nil, err
		}
		parsed.Events[es.Name] = ev
	}

	return parsed, nil
}

// HumanSignature renders ev in the form ParseEventSignature accepts, e.g.
// "Transfer(address indexed from, address indexed to, uint256 value)".
func HumanSignature(ev abi.Event) string {
	params := make([]string, len(ev.Inputs))
	for i, in := range ev.Inputs {
		p := in.Type.String()
		if in.Indexed {
			p += " indexed"
		}
		if in.Name != "" {
			p += " " + in.Name
		}
		params[i] = p
	}

	return ev.RawName + "(" + strings.Join(params, ", ") + ")"
}

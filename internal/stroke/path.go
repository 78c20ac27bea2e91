package stroke

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ErrMalformedPath is returned by ParsePath for data it cannot read.
var ErrMalformedPath = errors.New("malformed path data")

// ParsePath reads SVG path data made of absolute M, L, Q and Z commands,
// including implicit command repetition.
func ParsePath(d string) (Outline, error) {
	tokens := tokenize(d)
	var (
		out  Outline
		verb Verb
	)
	for i := 0; i < len(tokens); {
		tok := tokens[i]
		if len(tok) == 1 && unicode.IsLetter(rune(tok[0])) {
			verb = Verb(tok[0])
			i++
			if verb == Close {
				out.Commands = append(out.Commands, Command{Verb: Close})
				continue
			}
		} else if verb == 0 || verb == Close {
			return Outline{}, fmt.Errorf("%w: coordinate %q without command", ErrMalformedPath, tok)
		}

		var arity int
		switch verb {
		case MoveTo, LineTo:
			arity = 2
		case QuadTo:
			arity = 4
		default:
			return Outline{}, fmt.Errorf("%w: unsupported command %q", ErrMalformedPath, string(verb))
		}
		if i+arity > len(tokens) {
			return Outline{}, fmt.Errorf("%w: %q needs %d coordinates", ErrMalformedPath, string(verb), arity)
		}
		nums := make([]float64, arity)
		for k := range nums {
			v, err := strconv.ParseFloat(tokens[i+k], 64)
			if err != nil {
				return Outline{}, fmt.Errorf("%w: %v", ErrMalformedPath, err)
			}
			nums[k] = v
		}
		i += arity

		switch verb {
		case MoveTo:
			out.Commands = append(out.Commands, Command{Verb: MoveTo, To: Point{nums[0], nums[1]}})
			// Pairs after a moveto are implicit linetos.
			verb = LineTo
		case LineTo:
			out.Commands = append(out.Commands, Command{Verb: LineTo, To: Point{nums[0], nums[1]}})
		case QuadTo:
			out.Commands = append(out.Commands, Command{
				Verb: QuadTo,
				Ctrl: Point{nums[0], nums[1]},
				To:   Point{nums[2], nums[3]},
			})
		}
	}
	return out, nil
}

func tokenize(d string) []string {
	var (
		tokens []string
		cur    strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range d {
		switch {
		case r == ',' || unicode.IsSpace(r):
			flush()
		case unicode.IsLetter(r) && r != 'e' && r != 'E':
			flush()
			tokens = append(tokens, string(r))
		case r == '-' && cur.Len() > 0 && !strings.HasSuffix(cur.String(), "e") && !strings.HasSuffix(cur.String(), "E"):
			flush()
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

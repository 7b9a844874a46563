// Expansion and compression of the scheduler's compressed node-range syntax.
//
// The grammar:
//
//   nodelist  ::= pattern ("," pattern)*
//   pattern   ::= fragment+
//   fragment  ::= literal | range
//   literal   ::= <longest nonempty string of characters not containing "[" or ",">
//   range     ::= "[" range-elt ("," range-elt)* "]"
//   range-elt ::= number | number "-" number
//   number    ::= <nonempty string of 0..9, to be interpreted as decimal>
//
// The following restrictions apply:
//
// - In a range A-B, A must be no greater than B or the pattern is invalid
// - If the left endpoint of a range has leading zeros then every name generated from that range
//   is zero-padded to the endpoint's width, the way the scheduler prints node names
// - Expanding the result of compressing a set of node names N yields exactly the set N
// - Compression does not have a unique result and is not required to be optimal, but it is
//   deterministic: compressing [y,x] and [x,y] yields the same string

package hostglob

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Split a <nodelist> into its individual <pattern>s.  This requires a little logic because
// a range may contain a comma.

func SplitNodeList(s string) ([]string, error) {
	patterns := make([]string, 0)
	if s == "" {
		return patterns, nil
	}
	insideBrackets := false
	start := -1
	for ix, c := range s {
		if c == '[' {
			if insideBrackets {
				return nil, errors.New("Bad node list: nested brackets")
			}
			insideBrackets = true
		} else if c == ']' {
			if !insideBrackets {
				return nil, errors.New("Bad node list: unmatched end bracket")
			}
			insideBrackets = false
		} else if c == ',' && !insideBrackets {
			if start == -1 {
				return nil, errors.New("Bad node list: empty node name")
			}
			patterns = append(patterns, s[start:ix])
			start = -1
		} else if start == -1 {
			start = ix
		}
	}
	if insideBrackets {
		return nil, errors.New("Bad node list: missing end bracket")
	}
	if start == len(s) || start == -1 {
		return nil, errors.New("Bad node list: empty node name")
	}
	patterns = append(patterns, s[start:])
	return patterns, nil
}

// Expand a <nodelist> into individual node names.  Duplicates collapse; the first occurrence
// determines the position in the result.

func ExpandNodeList(s string) ([]string, error) {
	patterns, err := SplitNodeList(s)
	if err != nil {
		return nil, err
	}
	nodes := make([]string, 0)
	seen := make(map[string]bool)
	for _, p := range patterns {
		xs, err := expandPattern(p)
		if err != nil {
			return nil, err
		}
		for _, x := range xs {
			if !seen[x] {
				seen[x] = true
				nodes = append(nodes, x)
			}
		}
	}
	return nodes, nil
}

// A number from a range, with the field width to pad to when formatting (0 if unpadded).

type numval struct {
	n, width int
}

func (nv numval) format() string {
	return fmt.Sprintf("%0*d", nv.width, nv.n)
}

var errNoMoreFragments = errors.New("No more fragments")

func expandPattern(s string) ([]string, error) {
	r := strings.NewReader(s)
	fragments := make([]any, 0)
	for {
		fragment, err := parseFragment(r)
		if err != nil {
			if err == errNoMoreFragments {
				break
			}
			return nil, err
		}
		fragments = append(fragments, fragment)
	}
	if len(fragments) == 0 {
		return nil, errors.New("Empty node name")
	}
	tails := []string{""}
	for i := len(fragments) - 1; i >= 0; i-- {
		switch f := fragments[i].(type) {
		case string:
			xs := make([]string, 0, len(tails))
			for _, t := range tails {
				xs = append(xs, f+t)
			}
			tails = xs
		case []numval:
			xs := make([]string, 0, len(tails)*len(f))
			for _, t := range tails {
				for _, nv := range f {
					xs = append(xs, nv.format()+t)
				}
			}
			tails = xs
		}
	}
	return tails, nil
}

func parseFragment(r *strings.Reader) (any, error) {
	switch c := getc(r); c {
	case 0:
		return nil, errNoMoreFragments
	case '[':
		needOne := true
		nums := []numval{}
		for {
			if eatc(r, ']') {
				if needOne {
					return nil, errors.New("Expected number")
				}
				break
			}
			needOne = false
			a, err := readNumber(r)
			if err != nil {
				return nil, err
			}
			if eatc(r, '-') {
				b, err := readNumber(r)
				if err != nil {
					return nil, err
				}
				if a.n > b.n {
					return nil, errors.New("Bad range")
				}
				for v := a.n; v <= b.n; v++ {
					nums = append(nums, numval{v, a.width})
				}
			} else {
				nums = append(nums, a)
			}
			if eatc(r, ',') {
				needOne = true
			} else if eatc(r, ']') {
				ungetc(r, ']')
			} else {
				return nil, errors.New("Unexpected character in range")
			}
		}
		return nums, nil
	case ',':
		return nil, errors.New("Unexpected ','")
	default:
		literal := string(c)
		for {
			c := getc(r)
			if c == 0 || c == '[' || c == ',' {
				ungetc(r, c)
				break
			}
			literal = literal + string(c)
		}
		return literal, nil
	}
}

func readNumber(r io.RuneScanner) (numval, error) {
	cs := ""
	for {
		c := getc(r)
		if c < '0' || c > '9' {
			ungetc(r, c)
			break
		}
		cs = cs + string(c)
	}
	if cs == "" {
		return numval{}, errors.New("Expected number")
	}
	n, err := strconv.Atoi(cs)
	if err != nil {
		return numval{}, err
	}
	width := 0
	if len(cs) > 1 && cs[0] == '0' {
		width = len(cs)
	}
	return numval{n, width}, nil
}

func eatc(r io.RuneScanner, x rune) bool {
	c := getc(r)
	if c == x {
		return true
	}
	ungetc(r, c)
	return false
}

func getc(r io.RuneScanner) rune {
	c, _, err := r.ReadRune()
	if err == io.EOF {
		return 0
	}
	return c
}

func ungetc(r io.RuneScanner, c rune) {
	if c != 0 {
		r.UnreadRune()
	}
}

// Given a list of node names, return an abbreviated <nodelist> that uses range syntax where
// possible.  Only the rightmost digit string of each name is considered for compression; names
// that share the surrounding text and the padding width are collected into one range.

var trailingDigitsRe = regexp.MustCompile(`^(.*?)(\d+)(\D*)$`)

type rangeKey struct {
	pre, suf string
	width    int
}

func CompressNodeList(nodes []string) string {
	patterns := make([]string, 0)
	groups := make(map[rangeKey][]int)
	for _, node := range nodes {
		ms := trailingDigitsRe.FindStringSubmatch(node)
		if ms == nil {
			patterns = append(patterns, node)
			continue
		}
		n, err := strconv.Atoi(ms[2])
		if err != nil {
			patterns = append(patterns, node)
			continue
		}
		width := 0
		if len(ms[2]) > 1 && ms[2][0] == '0' {
			width = len(ms[2])
		}
		k := rangeKey{ms[1], ms[3], width}
		groups[k] = append(groups[k], n)
	}
	for k, ns := range groups {
		patterns = append(patterns, k.pre+compressRange(ns, k.width)+k.suf)
	}
	sort.Strings(patterns)
	return strings.Join(patterns, ",")
}

func compressRange(xs []int, width int) string {
	format := func(n int) string {
		return fmt.Sprintf("%0*d", width, n)
	}
	if len(xs) == 1 {
		return format(xs[0])
	}
	sort.Ints(xs)
	s := ""
	for i := 0; i < len(xs); {
		first := xs[i]
		prev := first
		i++
		for i < len(xs) && (xs[i] == prev+1 || xs[i] == prev) {
			prev = xs[i]
			i++
		}
		if s != "" {
			s += ","
		}
		if first != prev {
			s += format(first) + "-" + format(prev)
		} else {
			s += format(first)
		}
	}
	return "[" + s + "]"
}

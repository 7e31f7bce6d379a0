package patch

import (
	"strings"
	"unicode/utf8"
)

// Ports is the inlet/outlet layout of a class.
type Ports struct {
	Inlets  []PortType
	Outlets []PortType
}

// Catalog maps class names to port layouts. Classes whose outlet or inlet
// count depends on creation arguments are handled by [Catalog.Resolve].
type Catalog map[string]Ports

func ports(in, out string) Ports {
	parse := func(s string) []PortType {
		p := make([]PortType, 0, len(s))
		for _, c := range s {
			if c == 's' {
				p = append(p, PortSignal)
			} else {
				p = append(p, PortData)
			}
		}
		return p
	}
	return Ports{Inlets: parse(in), Outlets: parse(out)}
}

// DefaultCatalog returns the layouts of a handful of common classes.
// Strings list ports left to right: 'd' data, 's' signal.
func DefaultCatalog() Catalog {
	return Catalog{
		"osc~":     ports("sd", "s"),
		"phasor~":  ports("sd", "s"),
		"lop~":     ports("sd", "s"),
		"hip~":     ports("sd", "s"),
		"+~":       ports("ss", "s"),
		"-~":       ports("ss", "s"),
		"*~":       ports("ss", "s"),
		"/~":       ports("ss", "s"),
		"dac~":     ports("ss", ""),
		"adc~":     ports("", "ss"),
		"inlet~":   ports("", "s"),
		"outlet~":  ports("s", ""),
		"+":        ports("dd", "d"),
		"-":        ports("dd", "d"),
		"*":        ports("dd", "d"),
		"/":        ports("dd", "d"),
		"metro":    ports("dd", "d"),
		"delay":    ports("dd", "d"),
		"loadbang": ports("", "d"),
		"print":    ports("d", ""),
		"inlet":    ports("", "d"),
		"outlet":   ports("d", ""),
		"bng":      ports("d", "d"),
		"tgl":      ports("d", "d"),
		"nbx":      ports("d", "d"),
		"hsl":      ports("d", "d"),
		"vsl":      ports("d", "d"),
		"hradio":   ports("d", "d"),
		"vradio":   ports("d", "d"),
		"vu":       ports("dd", "dd"),
		"cnv":      ports("", ""),
		"gatom":    ports("d", "d"),
		"msg":      ports("d", "d"),
		"text":     ports("", ""),
		"comment":  ports("", ""),
		"pd":       ports("", ""),
	}
}

// Resolve returns the class name and port layout for box text. Unknown
// classes get one data inlet and one data outlet.
func (c Catalog) Resolve(text string) (string, Ports) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", Ports{}
	}
	class, args := fields[0], fields[1:]
	n := len(args)

	switch class {
	case "t", "trigger":
		return class, Ports{Inlets: repeat(PortData, 1), Outlets: repeat(PortData, max(n, 2))}
	case "pack":
		return class, Ports{Inlets: repeat(PortData, max(n, 2)), Outlets: repeat(PortData, 1)}
	case "unpack":
		return class, Ports{Inlets: repeat(PortData, 1), Outlets: repeat(PortData, max(n, 2))}
	case "route", "select", "sel":
		return class, Ports{Inlets: repeat(PortData, 2), Outlets: repeat(PortData, max(n, 1)+1)}
	}

	if p, ok := c[class]; ok {
		return class, Ports{
			Inlets:  append([]PortType(nil), p.Inlets...),
			Outlets: append([]PortType(nil), p.Outlets...),
		}
	}
	return class, Ports{Inlets: repeat(PortData, 1), Outlets: repeat(PortData, 1)}
}

func repeat(t PortType, n int) []PortType {
	p := make([]PortType, n)
	for i := range p {
		p[i] = t
	}
	return p
}

// boxWidth approximates the width of an object box holding text.
func boxWidth(text string) int {
	return max(utf8.RuneCountInString(text)*7+10, 30)
}

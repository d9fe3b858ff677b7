// Package flagx lets several components parse their own subset of the
// process arguments without tripping over each other's flags.
package flagx

import (
	"flag"
	"strings"
)

// Filter keeps only the arguments that belong to a known set of flags.
// Names are given without leading dashes; both "-name" and "--name" match.
type Filter struct {
	valued  map[string]struct{}
	boolean map[string]struct{}
}

// NewFilter creates a Filter for flags that take a value (valued) and for
// boolean flags, which never consume the following argument.
func NewFilter(valued []string, boolean ...string) *Filter {
	f := &Filter{
		valued:  make(map[string]struct{}, len(valued)),
		boolean: make(map[string]struct{}, len(boolean)),
	}
	for _, n := range valued {
		f.valued[strings.TrimLeft(n, "-")] = struct{}{}
	}
	for _, n := range boolean {
		f.boolean[strings.TrimLeft(n, "-")] = struct{}{}
	}
	return f
}

// Apply returns the recognised flags from args in their original order.
// Supported forms are "-name value", "-name=value" and, for boolean flags,
// a bare "-name". A value is only taken from the next argument when it does
// not itself start with a dash.
func (f *Filter) Apply(args []string) []string {
	out := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			continue
		}

		name, _, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")

		if _, ok := f.boolean[name]; ok {
			out = append(out, arg)
			continue
		}
		if _, ok := f.valued[name]; !ok {
			continue
		}

		out = append(out, arg)
		if !hasValue && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			out = append(out, args[i+1])
			i++
		}
	}

	return out
}

// ConfigPath extracts the JSON config file path given with -c or -config.
// The last occurrence wins; an empty string means no file was requested.
func ConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "path to config file")
	fs.StringVar(&path, "c", "", "path to config file (short)")
	_ = fs.Parse(NewFilter([]string{"c", "config"}).Apply(args))

	return path
}

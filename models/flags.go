package models

import "strings"

// FlagPublishRequest marks a tournament with an open publication request.
const FlagPublishRequest = "publish request"

const flagSeparator = ":"

// FlagSet is an ordered list of flag tokens attached to a tournament. It is
// persisted as a single colon-separated string; the set representation only
// exists at the domain layer.
type FlagSet []string

// ParseFlags splits the persisted colon-separated form. An empty string
// yields an empty set.
func ParseFlags(s string) FlagSet {
	if s == "" {
		return nil
	}
	return FlagSet(strings.Split(s, flagSeparator))
}

// String returns the persisted colon-separated form.
func (f FlagSet) String() string {
	return strings.Join(f, flagSeparator)
}

func (f FlagSet) Has(flag string) bool {
	for _, existing := range f {
		if existing == flag {
			return true
		}
	}
	return false
}

// Add appends flags in order. Duplicates are not collapsed here.
func (f *FlagSet) Add(flags ...string) {
	*f = append(*f, flags...)
}

// Remove strips every occurrence of each given flag. Removing an absent flag
// is a no-op.
func (f *FlagSet) Remove(flags ...string) {
	if len(*f) == 0 {
		return
	}
	drop := make(map[string]struct{}, len(flags))
	for _, flag := range flags {
		drop[flag] = struct{}{}
	}
	kept := (*f)[:0]
	for _, existing := range *f {
		if _, ok := drop[existing]; !ok {
			kept = append(kept, existing)
		}
	}
	*f = kept
}

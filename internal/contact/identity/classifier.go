package identity

import (
	"strings"

	"github.com/coregx/ahocorasick"
)

// DefaultPatterns are local parts that mark a sender as a system mailbox.
// Each is matched as "<pattern>@" anywhere in the address.
var DefaultPatterns = []string{
	"noreply", "no-reply", "donotreply", "do-not-reply",
	"newsletter", "notifications", "support", "automated",
	"robot", "daemon", "mailer", "bounce", "postmaster",
	"info", "help", "hi", "hello", "invoice", "updates", "mail",
}

// DefaultDomains are notification senders matched as substrings of the address.
var DefaultDomains = []string{
	"mail.google.com",
	"calendar-notification@google.com",
	"email.apple.com",
	"bounce.email",
}

// DefaultNamelessKeywords mark an address as automated only when no display name came with it.
var DefaultNamelessKeywords = []string{"notifications", "automated", "system"}

// Lists is the deny-list configuration a Classifier is compiled from.
type Lists struct {
	Patterns         []string
	Domains          []string
	NamelessKeywords []string
}

// DefaultLists returns a copy of the built-in lists.
func DefaultLists() Lists {
	return Lists{
		Patterns:         append([]string(nil), DefaultPatterns...),
		Domains:          append([]string(nil), DefaultDomains...),
		NamelessKeywords: append([]string(nil), DefaultNamelessKeywords...),
	}
}

// With returns the lists extended by extra patterns and domains.
func (l Lists) With(patterns, domains []string) Lists {
	out := Lists{
		Patterns:         append(append([]string(nil), l.Patterns...), patterns...),
		Domains:          append(append([]string(nil), l.Domains...), domains...),
		NamelessKeywords: append([]string(nil), l.NamelessKeywords...),
	}
	return out
}

type matchKind uint8

const (
	kindDeny matchKind = iota + 1
	kindNameless
)

// Classifier decides whether an address belongs to a bot or system sender.
// It is immutable after construction and safe for concurrent use.
type Classifier struct {
	ac    *ahocorasick.Automaton
	kinds []matchKind
}

// NewClassifier compiles the lists into a single automaton.
func NewClassifier(lists Lists) (*Classifier, error) {
	c := &Classifier{}
	seen := make(map[string]int)
	var patterns []string

	add := func(p string, kind matchKind) {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			return
		}
		if idx, ok := seen[p]; ok {
			// deny wins over nameless for the same text
			if kind == kindDeny {
				c.kinds[idx] = kindDeny
			}
			return
		}
		seen[p] = len(patterns)
		patterns = append(patterns, p)
		c.kinds = append(c.kinds, kind)
	}

	for _, p := range lists.Patterns {
		p = strings.TrimSuffix(strings.TrimSpace(p), "@")
		if p == "" {
			continue
		}
		add(p+"@", kindDeny)
	}
	for _, d := range lists.Domains {
		add(d, kindDeny)
	}
	for _, k := range lists.NamelessKeywords {
		add(k, kindNameless)
	}

	if len(patterns) == 0 {
		return c, nil
	}

	automaton, err := ahocorasick.NewBuilder().
		AddStrings(patterns).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, err
	}
	c.ac = automaton
	return c, nil
}

// NewDefaultClassifier builds a classifier from the built-in lists plus extras.
func NewDefaultClassifier(extraPatterns, extraDomains []string) (*Classifier, error) {
	return NewClassifier(DefaultLists().With(extraPatterns, extraDomains))
}

// IsAutomated reports whether email should never become a contact.
// Rules, first match wins: empty address, a system local part, a notification
// domain, and finally a nameless sender whose address carries a system keyword.
func (c *Classifier) IsAutomated(email, name string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return true
	}
	if c.ac == nil {
		return false
	}

	nameless := strings.TrimSpace(name) == ""
	for _, m := range c.ac.FindAllOverlapping([]byte(email)) {
		switch c.kinds[m.PatternID] {
		case kindDeny:
			return true
		case kindNameless:
			if nameless {
				return true
			}
		}
	}
	return false
}

package campaign

import (
	"context"
	"strings"
)

type Kind string

const (
	KindConnect Kind = "connect"
	KindFollow  Kind = "follow"
	KindMessage Kind = "message"
	KindUnknown Kind = "unknown"
)

const (
	unknownName     = "Unknown"
	unknownHeadline = "Unknown title"
)

type KindSet map[Kind]struct{}

func Kinds(kinds ...Kind) KindSet {
	s := make(KindSet, len(kinds))
	for _, k := range kinds {
		s[k] = struct{}{}
	}
	return s
}

func (s KindSet) Has(k Kind) bool {
	_, ok := s[k]
	return ok
}

type Subject struct {
	Name     string
	Headline string
}

func placeholderSubject() Subject {
	return Subject{Name: unknownName, Headline: unknownHeadline}
}

type Candidate struct {
	Element Element
	Kind    Kind
	Subject Subject
}

// ClassifyButton infers the action kind from a button's visible text or aria label.
func ClassifyButton(label string) Kind {
	l := strings.ToLower(strings.TrimSpace(label))
	switch {
	case strings.Contains(l, "connect"), strings.HasPrefix(l, "invite"):
		return KindConnect
	case strings.Contains(l, "follow") && !strings.Contains(l, "following") && !strings.Contains(l, "unfollow"):
		return KindFollow
	case strings.Contains(l, "message"):
		return KindMessage
	default:
		return KindUnknown
	}
}

type Discoverer struct {
	res    *Resolver
	accept KindSet
}

func NewDiscoverer(res *Resolver, accept KindSet) *Discoverer {
	return &Discoverer{res: res, accept: accept}
}

// Discover lists the candidates on the current result page in document order.
// Direct connect buttons come first; follow buttons only when there are no connect buttons
// and follow is acceptable; the result-card scan runs when both found nothing.
func (d *Discoverer) Discover(ctx context.Context) []Candidate {
	seen := make(map[string]struct{})
	var out []Candidate
	add := func(el Element, kind Kind) {
		if _, dup := seen[el.Key()]; dup {
			return
		}
		seen[el.Key()] = struct{}{}
		out = append(out, Candidate{Element: el, Kind: kind, Subject: placeholderSubject()})
	}

	if els, err := d.res.Resolve(ctx, ConnectButtons); err == nil {
		for _, el := range els {
			add(el, KindConnect)
		}
	}
	if len(out) == 0 && d.accept.Has(KindFollow) {
		if els, err := d.res.Resolve(ctx, FollowButtons); err == nil {
			for _, el := range els {
				add(el, KindFollow)
			}
		}
	}
	if len(out) > 0 {
		return out
	}

	cards, err := d.res.Resolve(ctx, ResultCards)
	if err != nil {
		return nil
	}
	for _, card := range cards {
		buttons, err := d.res.ResolveWithin(ctx, card, CardButtons)
		if err != nil {
			continue
		}
		var first Element
		firstKind := KindUnknown
		for _, b := range buttons {
			kind := buttonKind(ctx, b)
			if kind == KindUnknown {
				continue
			}
			if d.accept.Has(kind) {
				first, firstKind = b, kind
				break
			}
			if first == nil {
				first, firstKind = b, kind
			}
		}
		if first != nil {
			add(first, firstKind)
		}
	}
	return out
}

func buttonKind(ctx context.Context, b Element) Kind {
	if text, err := b.Text(ctx); err == nil {
		if k := ClassifyButton(text); k != KindUnknown {
			return k
		}
	}
	if label, err := b.Attribute(ctx, "aria-label"); err == nil {
		return ClassifyButton(label)
	}
	return KindUnknown
}

// ExtractSubject reads name and headline from the result card around el, with placeholders.
func ExtractSubject(ctx context.Context, res *Resolver, el Element) (Subject, Element) {
	subject := placeholderSubject()
	cards, err := res.ResolveWithin(ctx, el, CardAncestor)
	if err != nil {
		return subject, nil
	}
	card := cards[0]
	if name := firstText(ctx, res, card, SubjectName); name != "" {
		subject.Name = name
	}
	if headline := firstText(ctx, res, card, SubjectHeadline); headline != "" {
		subject.Headline = headline
	}
	return subject, card
}

func firstText(ctx context.Context, res *Resolver, root Element, t Target) string {
	els, err := res.ResolveWithin(ctx, root, t)
	if err != nil {
		return ""
	}
	text, err := els[0].Text(ctx)
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(text), " ")
}

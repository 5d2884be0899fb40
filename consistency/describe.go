package consistency

import (
	"fmt"
	"strings"

	"github.com/jonwraymond/regenops/story"
)

// Describe composes a character description from a story-creation form.
// Clauses whose source field is empty are omitted:
//
//	Mia is a 6-year-old, with brown hair and blue eyes who is brave, kind
//	and loves dragons, space. Their favorite color is green.
func Describe(form story.Form) string {
	var b strings.Builder

	name := strings.TrimSpace(form.ChildName)
	if name == "" {
		name = "The child"
	}
	if form.ChildAge > 0 {
		fmt.Fprintf(&b, "%s is a %d-year-old", name, form.ChildAge)
	} else {
		fmt.Fprintf(&b, "%s is a child", name)
	}

	hair := strings.TrimSpace(form.PhysicalTraits.HairColor)
	eyes := strings.TrimSpace(form.PhysicalTraits.EyeColor)
	switch {
	case hair != "" && eyes != "":
		fmt.Fprintf(&b, ", with %s hair and %s eyes", hair, eyes)
	case hair != "":
		fmt.Fprintf(&b, ", with %s hair", hair)
	case eyes != "":
		fmt.Fprintf(&b, ", with %s eyes", eyes)
	}

	traits := nonBlank(form.Traits)
	interests := nonBlank(form.Interests)
	if len(traits) > 0 {
		b.WriteString(" who is " + strings.Join(traits, ", "))
	}
	if len(interests) > 0 {
		if len(traits) > 0 {
			b.WriteString(" and loves ")
		} else {
			b.WriteString(" who loves ")
		}
		b.WriteString(strings.Join(interests, ", "))
	}
	b.WriteString(".")

	if fav := strings.TrimSpace(form.PhysicalTraits.FavoriteColor); fav != "" {
		fmt.Fprintf(&b, " Their favorite color is %s.", fav)
	}
	return b.String()
}

func nonBlank(items []string) []string {
	var out []string
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

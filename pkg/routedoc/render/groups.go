package render

import "github.com/theroutercompany/routedoc/pkg/routedoc/model"

type group struct {
	Name   string
	Routes []model.Descriptor
}

// groupByTag groups descriptors under each of their tags. Groups appear in
// the order their tag is first seen; the untagged group always comes last.
func groupByTag(descs []model.Descriptor) []group {
	index := make(map[string]int)
	var groups []group
	var untagged []model.Descriptor

	add := func(name string, d model.Descriptor) {
		if name == UntaggedGroup {
			untagged = append(untagged, d)
			return
		}
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, group{Name: name})
		}
		groups[i].Routes = append(groups[i].Routes, d)
	}

	for _, d := range descs {
		if len(d.Tags) == 0 {
			add(UntaggedGroup, d)
			continue
		}
		for _, tag := range d.Tags {
			add(tag, d)
		}
	}

	if len(untagged) > 0 {
		groups = append(groups, group{Name: UntaggedGroup, Routes: untagged})
	}
	return groups
}

// methodClass maps a verb to its visual class in the HTML page.
func methodClass(m model.Method) string {
	switch m {
	case model.MethodGet:
		return "method green"
	case model.MethodPost:
		return "method blue"
	case model.MethodPut:
		return "method orange"
	case model.MethodPatch:
		return "method dark-orange"
	case model.MethodDelete:
		return "method red"
	default:
		return "method"
	}
}

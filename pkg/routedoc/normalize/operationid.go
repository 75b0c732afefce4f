package normalize

import (
	"regexp"
	"strconv"

	"github.com/theroutercompany/routedoc/pkg/routedoc/model"
)

var nonAlphanumeric = regexp.MustCompile(`[^A-Za-z0-9]+`)

// OperationID derives "<method>_<path>" where every run of characters other
// than letters and digits in the path becomes a single underscore.
// GET /api/users/:id gives "get_api_users_id".
func OperationID(method model.Method, path string) string {
	slug := trimUnderscores(nonAlphanumeric.ReplaceAllString(path, "_"))
	if slug == "" {
		return method.Lower()
	}
	return method.Lower() + "_" + slug
}

// UniqueOperationIDs rewrites colliding operation ids in place. The first
// descriptor keeps its id; later ones get "_2", "_3" and so on, skipping
// suffixed ids that are already taken.
func UniqueOperationIDs(descs []model.Descriptor) {
	taken := make(map[string]struct{}, len(descs))
	for _, d := range descs {
		taken[d.OperationID] = struct{}{}
	}

	seen := make(map[string]int, len(descs))
	for i := range descs {
		id := descs[i].OperationID
		seen[id]++
		if seen[id] == 1 {
			continue
		}
		n := seen[id]
		candidate := id + "_" + strconv.Itoa(n)
		for {
			if _, ok := taken[candidate]; !ok {
				break
			}
			n++
			candidate = id + "_" + strconv.Itoa(n)
		}
		seen[id] = n
		taken[candidate] = struct{}{}
		descs[i].OperationID = candidate
	}
}

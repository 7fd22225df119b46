package dist

import (
	"net/url"
	"sort"

	"github.com/pysync/pysync/internal/urlx"
)

// Identity is a stable cache/dedup key (§3.2). Two identical distributions
// produce an equal Identity regardless of cosmetic differences in how
// their URL was spelled.
type Identity string

// DistributionIdentity identifies this exact version/content, used to key
// version-specific caches (the wheel cache, the built-wheel cache). It is
// derived from the first declared content digest if present, else a
// canonicalized URL, else a path.
func DistributionIdentity(d Distribution) Identity {
	switch v := d.(type) {
	case *RegistryBuilt:
		w := v.BestWheel()
		if h := firstHash(w.Hashes); h != "" {
			return Identity("h:" + h)
		}
		return Identity("u:" + canon(urlx.MustParse(w.URL)))
	case *RegistrySource:
		if len(v.Wheels) > 0 {
			if h := firstHash(v.Wheels[0].Hashes); h != "" {
				return Identity("h:" + h)
			}
		}
		return Identity("u:" + v.IndexURL + "/" + v.Filename.Name + "/" + v.Filename.Version)
	case *DirectUrlBuilt:
		return Identity("u:" + canon(v.Verbatim))
	case *DirectUrlSource:
		return Identity("u:" + canon(v.Verbatim))
	case *PathBuilt:
		return Identity("p:" + v.Path)
	case *PathSource:
		return Identity("p:" + v.Path)
	case *DirectorySource:
		return Identity("p:" + v.Path)
	case *GitSource:
		return Identity("g:" + canon(v.Verbatim))
	default:
		return Identity("d:" + d.PackageName())
	}
}

// ResourceIdentity identifies this source of artifacts independent of
// revision, used to key refresh-scoped state (e.g. a git repository
// regardless of which commit is checked out). Derived like
// DistributionIdentity but with a looser URL canonicalization that drops
// per-revision fragments.
func ResourceIdentity(d Distribution) Identity {
	switch v := d.(type) {
	case *RegistryBuilt:
		return Identity("idx:" + canon(urlx.MustParse(v.Wheels[v.Best].Index)))
	case *RegistrySource:
		return Identity("idx:" + canon(urlx.MustParse(v.IndexURL)))
	case *DirectUrlBuilt:
		return Identity("u:" + canon(v.Location))
	case *DirectUrlSource:
		return Identity("u:" + canon(v.Location))
	case *PathBuilt:
		return Identity("p:" + v.Path)
	case *PathSource:
		return Identity("p:" + v.Path)
	case *DirectorySource:
		return Identity("p:" + v.Path)
	case *GitSource:
		return Identity("g:" + canon(v.Repo))
	default:
		return Identity("d:" + d.PackageName())
	}
}

func canon(u *url.URL) string {
	return urlx.Canonicalize(u).String()
}

func firstHash(hashes map[string]string) string {
	if len(hashes) == 0 {
		return ""
	}
	names := make([]string, 0, len(hashes))
	for n := range hashes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names[0] + ":" + hashes[names[0]]
}

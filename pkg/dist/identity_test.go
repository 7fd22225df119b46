package dist

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentityDeterminism_URLCosmetics(t *testing.T) {
	a := &DirectUrlBuilt{
		Filename: WheelFilename{Name: "flask", Version: "3.0.0"},
		Verbatim: mustURL("HTTPS://Example.org:443/packages/flask-3.0.0-py3-none-any.whl"),
	}
	b := &DirectUrlBuilt{
		Filename: WheelFilename{Name: "flask", Version: "3.0.0"},
		Verbatim: mustURL("https://example.org/packages/flask-3.0.0-py3-none-any.whl"),
	}
	assert.Equal(t, DistributionIdentity(a), DistributionIdentity(b))
}

func TestIdentityDeterminism_TrailingSlash(t *testing.T) {
	a := &DirectorySource{Name: "x", Verbatim: mustURL("file:///tmp/x/"), Path: "/tmp/x"}
	b := &DirectorySource{Name: "x", Verbatim: mustURL("file:///tmp/x"), Path: "/tmp/x"}
	assert.Equal(t, DistributionIdentity(a), DistributionIdentity(b))
}

func TestResourceIdentity_DropsRevision(t *testing.T) {
	a := &GitSource{Name: "x", Repo: mustURL("https://github.com/org/repo"), Revision: "abc"}
	b := &GitSource{Name: "x", Repo: mustURL("https://github.com/org/repo"), Revision: "def"}
	assert.Equal(t, ResourceIdentity(a), ResourceIdentity(b))
	aID := &GitSource{Name: "x", Repo: mustURL("https://github.com/org/repo"), Revision: "abc", Verbatim: mustURL("git+https://github.com/org/repo@abc")}
	bID := &GitSource{Name: "x", Repo: mustURL("https://github.com/org/repo"), Revision: "def", Verbatim: mustURL("git+https://github.com/org/repo@def")}
	assert.NotEqual(t, DistributionIdentity(aID), DistributionIdentity(bID))
}

func mustURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}

package installed

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/pysync/pysync/pkg/contracts"
)

// FSIntrospector implements contracts.EnvIntrospector by reading dist-info
// directories directly off disk, the way a real site-packages is laid
// out: one `<escaped-name>-<version>.dist-info/` directory per installed
// distribution, holding METADATA and an optional direct_url.json.
type FSIntrospector struct{}

var _ contracts.EnvIntrospector = FSIntrospector{}

// SitePackages implements the site_packages(root) contract (§6).
func (FSIntrospector) SitePackages(ctx context.Context, root string) ([]contracts.InstalledDistribution, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "reading site-packages %s", root)
	}

	var out []contracts.InstalledDistribution
	for _, e := range entries {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if !e.IsDir() || !strings.HasSuffix(e.Name(), ".dist-info") {
			continue
		}
		distInfoDir := filepath.Join(root, e.Name())
		name, version, err := metadataNameVersion(distInfoDir)
		if err != nil {
			escapedName, escapedVersion, ok := parseDistInfoDirname(e.Name())
			if !ok {
				continue
			}
			name, version = escapedName, escapedVersion
		}
		directURL, err := ReadDirectURL(distInfoDir)
		if err != nil {
			return nil, err
		}
		out = append(out, contracts.InstalledDistribution{
			Name:        name,
			Version:     version,
			InstallPath: distInfoDir,
			DirectURL:   directURL,
		})
	}
	return out, nil
}

// metadataNameVersion reads the canonical Name/Version fields out of a
// dist-info directory's METADATA file (RFC 822-style headers), which is
// authoritative over the directory name's escaped form.
func metadataNameVersion(distInfoDir string) (name, version string, err error) {
	f, err := os.Open(filepath.Join(distInfoDir, "METADATA"))
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			break // end of headers
		}
		if v, ok := strings.CutPrefix(line, "Name: "); ok {
			name = strings.TrimSpace(v)
		} else if v, ok := strings.CutPrefix(line, "Version: "); ok {
			version = strings.TrimSpace(v)
		}
		if name != "" && version != "" {
			break
		}
	}
	if name == "" || version == "" {
		return "", "", errors.Errorf("METADATA in %s missing Name/Version", distInfoDir)
	}
	return name, version, nil
}

// parseDistInfoDirname recovers name/version from a "Name-Version.dist-info"
// directory name when METADATA is unreadable.
func parseDistInfoDirname(dirname string) (name, version string, ok bool) {
	base := strings.TrimSuffix(dirname, ".dist-info")
	idx := strings.LastIndex(base, "-")
	if idx <= 0 {
		return "", "", false
	}
	return base[:idx], base[idx+1:], true
}

package executor

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// LinkMode selects how a fetched file is materialized into the
// environment root (§4.E "Link step").
type LinkMode int

const (
	LinkCopy LinkMode = iota
	LinkHardlink
	LinkSymlink
	// LinkReflink requests a copy-on-write clone where the filesystem
	// supports it. Go's standard library has no reflink syscall wrapper,
	// so this mode falls back to a plain copy, which is always correct,
	// just not as cheap; callers that need true reflink semantics are
	// expected to shell out, which is out of scope here.
	LinkReflink
)

// ErrDestinationExists is returned when the link mode's conflict policy
// aborts rather than overwrites (§4.E "abort by default").
var ErrDestinationExists = errors.New("destination exists and is not owned by a tracked package")

// PlaceFile materializes src at dest using mode, atomically: it
// materializes to a temp name in dest's directory, then renames
// (§4.E "Writes are atomic per file").
func PlaceFile(src, dest string, mode LinkMode, overwrite bool) error {
	if !overwrite {
		if _, err := os.Lstat(dest); err == nil {
			return errors.Wrapf(ErrDestinationExists, "%s", dest)
		}
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.Wrapf(err, "creating directory for %s", dest)
	}

	tmp := dest + ".pysync-tmp"
	defer os.Remove(tmp)

	switch mode {
	case LinkHardlink:
		if err := os.Link(src, tmp); err != nil {
			return errors.Wrapf(err, "hardlinking %s to %s", src, dest)
		}
	case LinkSymlink:
		if err := os.Symlink(src, tmp); err != nil {
			return errors.Wrapf(err, "symlinking %s to %s", src, dest)
		}
	case LinkCopy, LinkReflink:
		if err := copyFile(src, tmp); err != nil {
			return err
		}
	default:
		return errors.Errorf("unknown link mode %d", mode)
	}
	return errors.Wrapf(os.Rename(tmp, dest), "renaming into place: %s", dest)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "opening %s", src)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return errors.Wrapf(err, "statting %s", src)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return errors.Wrapf(err, "creating %s", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrapf(err, "copying %s to %s", src, dst)
	}
	return errors.Wrap(out.Close(), "closing destination file")
}

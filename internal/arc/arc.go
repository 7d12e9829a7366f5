// Package arc converts directory trees to and from flat tar byte
// sequences. The root of the tree is archived as ".", relative paths and
// permission bits are preserved, and symbolic links are skipped.
package arc

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Stat describes one regular file captured while packing.
type Stat struct {
	Path string
	Size int64
	Mode fs.FileMode
}

// Pack archives the tree rooted at dir into a tar byte sequence and
// returns it together with the manifest of regular files, in walk order.
//
// Directories are archived (so empty directories survive a round trip);
// symlinks and other non-regular files are skipped. The context cancels
// long-running walks between files.
func Pack(ctx context.Context, dir string) ([]byte, []Stat, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	var manifest []Stat

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.IsDir():
			hdr := &tar.Header{
				Typeflag: tar.TypeDir,
				Name:     name + "/",
				Mode:     int64(info.Mode().Perm()),
				ModTime:  info.ModTime(),
			}
			if name == "." {
				hdr.Name = "./"
			}
			return tw.WriteHeader(hdr)

		case info.Mode().IsRegular():
			hdr := &tar.Header{
				Typeflag: tar.TypeReg,
				Name:     name,
				Size:     info.Size(),
				Mode:     int64(info.Mode().Perm()),
				ModTime:  info.ModTime(),
			}
			if err := tw.WriteHeader(hdr); err != nil {
				return err
			}
			f, err := os.Open(p)
			if err != nil {
				return err
			}
			_, err = io.Copy(tw, io.LimitReader(f, info.Size()))
			f.Close()
			if err != nil {
				return err
			}
			manifest = append(manifest, Stat{
				Path: name,
				Size: info.Size(),
				Mode: info.Mode().Perm(),
			})
			return nil

		default:
			// Symlinks, devices, sockets: not represented.
			return nil
		}
	})
	if err != nil {
		return nil, nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, nil, err
	}
	return buf.Bytes(), manifest, nil
}

// Unpack recreates an archived tree under destDir, creating parent
// directories as needed. Entry names that escape destDir are rejected.
func Unpack(data []byte, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}

	tr := tar.NewReader(bytes.NewReader(data))
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read archive: %w", err)
		}

		name, err := cleanName(hdr.Name)
		if err != nil {
			return err
		}
		target := filepath.Join(destDir, filepath.FromSlash(name))

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, fs.FileMode(hdr.Mode).Perm()|0o700); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			if err := writeFile(target, tr, fs.FileMode(hdr.Mode).Perm(), hdr.Size); err != nil {
				return err
			}
		default:
			// Skip types Pack never produces rather than failing: the
			// archive remains usable even if written by a richer tool.
		}
	}
}

// cleanName normalizes a tar entry name and rejects path traversal.
func cleanName(name string) (string, error) {
	name = strings.TrimSuffix(name, "/")
	name = path.Clean(name)
	if name == "." {
		return ".", nil
	}
	if name == ".." || strings.HasPrefix(name, "../") || path.IsAbs(name) {
		return "", fmt.Errorf("unsafe entry path %q", name)
	}
	return name, nil
}

func writeFile(target string, r io.Reader, perm fs.FileMode, size int64) error {
	f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	_, err = io.Copy(f, io.LimitReader(r, size))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

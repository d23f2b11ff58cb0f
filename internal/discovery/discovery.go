// Package discovery locates variant directories and their kernel trace
// files by naming convention. It only matches and lists; all reporting
// on empty or unreadable directories is left to the caller.
package discovery

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// variantDirPattern matches benchmark variant directories such as
// p2048_ub512_b512. The whole name must match; digits only.
var variantDirPattern = regexp.MustCompile(`^p(\d+)_ub(\d+)_b(\d+)$`)

// TraceFileSuffix is the filename suffix identifying kernel trace CSVs.
const TraceFileSuffix = "_kernel_trace.csv"

// Variant is one benchmark run configuration, parsed from its
// directory name.
type Variant struct {
	Path string // full path to the variant directory
	Name string // directory basename, e.g. p2048_ub512_b512
	P    int    // prompt size
	UB   int    // micro-batch size
	B    int    // batch size
}

// Group is the set of trace files found directly under one
// subdirectory of a variant directory, in sorted order.
type Group struct {
	Dir   string
	Files []string
}

// Variants lists the immediate children of root whose names match the
// variant directory pattern, sorted by name. Non-directories and
// non-matching names are skipped. Returns an *AccessError if root
// cannot be listed.
func Variants(fsys afero.Fs, root string) ([]Variant, error) {
	infos, err := afero.ReadDir(fsys, root)
	if err != nil {
		return nil, &AccessError{Path: root, Err: err}
	}

	var variants []Variant
	for _, info := range infos {
		if !info.IsDir() {
			continue
		}
		m := variantDirPattern.FindStringSubmatch(info.Name())
		if m == nil {
			continue
		}

		p, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		ub, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		b, err := strconv.Atoi(m[3])
		if err != nil {
			continue
		}

		variants = append(variants, Variant{
			Path: filepath.Join(root, info.Name()),
			Name: info.Name(),
			P:    p,
			UB:   ub,
			B:    b,
		})
	}
	return variants, nil
}

// TraceFileGroups finds files matching <variant>/*/*_kernel_trace.csv,
// exactly one directory level below the variant directory, grouped by
// their immediate parent directory. Groups and the files within them
// are sorted by name. An unreadable subdirectory is skipped. Returns
// an *AccessError if the variant directory itself cannot be listed.
func TraceFileGroups(fsys afero.Fs, v Variant) ([]Group, error) {
	entries, err := afero.ReadDir(fsys, v.Path)
	if err != nil {
		return nil, &AccessError{Path: v.Path, Err: err}
	}

	var groups []Group
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(v.Path, entry.Name())

		files, err := afero.ReadDir(fsys, dir)
		if err != nil {
			continue
		}

		var paths []string
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			if strings.HasSuffix(f.Name(), TraceFileSuffix) {
				paths = append(paths, filepath.Join(dir, f.Name()))
			}
		}

		if len(paths) > 0 {
			groups = append(groups, Group{Dir: dir, Files: paths})
		}
	}
	return groups, nil
}

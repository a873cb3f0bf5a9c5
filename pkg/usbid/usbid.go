// Package usbid resolves USB vendor and product IDs to names using the
// usb.ids database shipped with most Linux distributions.
//
// The database is optional. When no file can be found, [Load] returns an
// empty [Names] and lookups report no match, so callers fall back to the
// strings the device reports itself.
package usbid

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// DefaultPaths lists the usual locations of usb.ids.
var DefaultPaths = []string{
	"/usr/share/hwdata/usb.ids",
	"/var/lib/usbutils/usb.ids",
	"/usr/share/misc/usb.ids",
}

// Names maps vendor and product IDs to names. The zero value is empty and
// ready to use. A Names is read-only after it is built, so lookups are safe
// for concurrent use.
type Names struct {
	vendors  map[uint16]string
	products map[uint32]string
}

func productKey(vid, pid uint16) uint32 { return uint32(vid)<<16 | uint32(pid) }

// Load parses the first of paths that exists on fs. It returns the path that
// was read, or "" with empty Names if none exists. Files that exist but
// cannot be read are an error.
func Load(fs afero.Fs, paths ...string) (*Names, string, error) {
	if len(paths) == 0 {
		paths = DefaultPaths
	}
	for _, path := range paths {
		f, err := fs.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, "", errors.Wrapf(err, "open %s", path)
		}
		names, err := Parse(f)
		f.Close()
		if err != nil {
			return nil, "", errors.Wrapf(err, "parse %s", path)
		}
		return names, path, nil
	}
	return &Names{}, "", nil
}

// Parse reads the usb.ids format: vendor lines "vvvv  name" followed by
// tab-indented product lines "\tpppp  name". Class, language and other
// sections after the vendor list are skipped.
func Parse(r io.Reader) (*Names, error) {
	n := &Names{
		vendors:  make(map[uint16]string),
		products: make(map[uint32]string),
	}

	var vid uint16
	inVendor := false
	s := bufio.NewScanner(r)
	for s.Scan() {
		line := s.Text()
		if line == "" || line[0] == '#' {
			continue
		}

		if line[0] != '\t' {
			id, name, ok := splitEntry(line)
			inVendor = ok
			if ok {
				vid = id
				n.vendors[vid] = name
			}
			continue
		}

		// Product lines belong to the last vendor; interface lines ("\t\t")
		// and entries under non-vendor sections are ignored.
		if !inVendor || strings.HasPrefix(line, "\t\t") {
			continue
		}
		if pid, name, ok := splitEntry(line[1:]); ok {
			n.products[productKey(vid, pid)] = name
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return n, nil
}

// splitEntry splits "xxxx  name" into its hex ID and name.
func splitEntry(line string) (uint16, string, bool) {
	if len(line) < 6 || line[4] != ' ' {
		return 0, "", false
	}
	id, err := strconv.ParseUint(line[:4], 16, 16)
	if err != nil {
		return 0, "", false
	}
	name := strings.TrimSpace(line[5:])
	if name == "" {
		return 0, "", false
	}
	return uint16(id), name, true
}

// Vendor returns the vendor name for vid, or "".
func (n *Names) Vendor(vid uint16) string {
	return n.vendors[vid]
}

// Product returns the product name for vid:pid, or "".
func (n *Names) Product(vid, pid uint16) string {
	return n.products[productKey(vid, pid)]
}

// Describe returns the vendor and product names for vid:pid, using the
// given fallbacks for IDs the database does not list.
func (n *Names) Describe(vid, pid uint16, vendor, product string) (string, string) {
	if v := n.Vendor(vid); v != "" {
		vendor = v
	}
	if p := n.Product(vid, pid); p != "" {
		product = p
	}
	return vendor, product
}

// Len returns the number of vendors and products known.
func (n *Names) Len() (vendors, products int) {
	return len(n.vendors), len(n.products)
}

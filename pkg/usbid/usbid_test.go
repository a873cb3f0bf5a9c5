package usbid

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `# usb.ids excerpt
#	vendor  vendor_name
#		device  device_name

1d6b  Linux Foundation
	0002  2.0 root hub
	0003  3.0 root hub
303a  Espressif
	1001  USB JTAG/serial debug unit
		00  interface lines are skipped
zzzz  Not a vendor
	0001  Orphan product
046d  Logitech, Inc.
	0825  Webcam C270

C 00  (Defined at Interface level)
	01  Audio
L 0001  Afrikaans
`

func TestParse(t *testing.T) {
	n, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	tests := []struct {
		vid, pid        uint16
		vendor, product string
	}{
		{0x1d6b, 0x0002, "Linux Foundation", "2.0 root hub"},
		{0x303a, 0x1001, "Espressif", "USB JTAG/serial debug unit"},
		{0x303a, 0x8000, "Espressif", ""},
		{0x046d, 0x0825, "Logitech, Inc.", "Webcam C270"},
		{0xffff, 0x0001, "", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.vendor, n.Vendor(tt.vid), "vendor %04x", tt.vid)
		assert.Equal(t, tt.product, n.Product(tt.vid, tt.pid), "product %04x:%04x", tt.vid, tt.pid)
	}

	vendors, products := n.Len()
	assert.Equal(t, 3, vendors)
	assert.Equal(t, 4, products)
}

// ===========================================================================
// Load
// ===========================================================================

func TestLoadFirstExisting(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/b/usb.ids", []byte(sample), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/c/usb.ids", []byte("1234  Other\n"), 0o644))

	n, path, err := Load(fs, "/a/usb.ids", "/b/usb.ids", "/c/usb.ids")
	require.NoError(t, err)
	assert.Equal(t, "/b/usb.ids", path)
	assert.Equal(t, "Espressif", n.Vendor(0x303a))
	assert.Empty(t, n.Vendor(0x1234))
}

func TestLoadMissing(t *testing.T) {
	n, path, err := Load(afero.NewMemMapFs(), "/nowhere/usb.ids")
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Empty(t, n.Vendor(0x303a))

	vendor, product := n.Describe(0x303a, 0x8000, "Espressif", "USB Camera + Audio")
	assert.Equal(t, "Espressif", vendor)
	assert.Equal(t, "USB Camera + Audio", product)
}

func TestDescribePrefersDatabase(t *testing.T) {
	n, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	vendor, product := n.Describe(0x046d, 0x0825, "unknown", "camera")
	assert.Equal(t, "Logitech, Inc.", vendor)
	assert.Equal(t, "Webcam C270", product)

	vendor, product = n.Describe(0x303a, 0x8000, "ESP", "USB Camera + Audio")
	assert.Equal(t, "Espressif", vendor)
	assert.Equal(t, "USB Camera + Audio", product)
}

func TestZeroNames(t *testing.T) {
	var n Names
	assert.Empty(t, n.Vendor(1))
	assert.Empty(t, n.Product(1, 2))
}

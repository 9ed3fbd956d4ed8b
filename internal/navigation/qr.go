package navigation

import (
	"errors"
	"net/url"

	"github.com/skip2/go-qrcode"
)

const (
	DefaultQRSize = 256
	MaxQRSize     = 1024
)

// ErrLinkNotAllowed is returned for links this service did not produce.
var ErrLinkNotAllowed = errors.New("link host is not allowed")

var allowedHosts = map[string]bool{
	kakaoMapHost: true,
	naverMapHost: true,
}

// ValidateLink checks that raw is an https link to one of the supported map services.
func ValidateLink(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "https" || !allowedHosts[u.Host] {
		return ErrLinkNotAllowed
	}
	return nil
}

// QRCodePNG renders link as a PNG QR code of size x size pixels so it can be
// opened on a phone. size is clamped to [64, MaxQRSize].
func QRCodePNG(link string, size int) ([]byte, error) {
	if err := ValidateLink(link); err != nil {
		return nil, err
	}
	switch {
	case size <= 0:
		size = DefaultQRSize
	case size < 64:
		size = 64
	case size > MaxQRSize:
		size = MaxQRSize
	}
	return qrcode.Encode(link, qrcode.Medium, size)
}

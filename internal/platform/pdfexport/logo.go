package pdfexport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
)

// maxLogoSize caps what is read from disk or the network.
const maxLogoSize = 2 << 20

var (
	ErrUnsupportedLogo = errors.New("logo must be a PNG or JPEG image")
	ErrLogoTooLarge    = errors.New("logo exceeds the size limit")
)

// Logo is an image embedded in every page header. Type is the fpdf image
// type name.
type Logo struct {
	Data []byte
	Type string
}

// DecodeLogo checks that data is a complete PNG or JPEG image.
func DecodeLogo(data []byte) (*Logo, error) {
	_, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedLogo, err)
	}
	switch format {
	case "png":
		return &Logo{Data: data, Type: "PNG"}, nil
	case "jpeg":
		return &Logo{Data: data, Type: "JPG"}, nil
	}
	return nil, fmt.Errorf("%w: got %s", ErrUnsupportedLogo, format)
}

// LoadLogo reads the logo from path, or fetches it from url when path is
// empty. Both empty returns nil and no error.
func LoadLogo(ctx context.Context, client *http.Client, path, url string) (*Logo, error) {
	var data []byte
	switch {
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open logo: %w", err)
		}
		defer f.Close()
		data, err = readCapped(f)
		if err != nil {
			return nil, err
		}
	case url != "":
		if client == nil {
			client = http.DefaultClient
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("build logo request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch logo: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch logo: unexpected status %d", resp.StatusCode)
		}
		data, err = readCapped(resp.Body)
		if err != nil {
			return nil, err
		}
	default:
		return nil, nil
	}
	return DecodeLogo(data)
}

func readCapped(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxLogoSize+1))
	if err != nil {
		return nil, fmt.Errorf("read logo: %w", err)
	}
	if len(data) > maxLogoSize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrLogoTooLarge, maxLogoSize)
	}
	return data, nil
}

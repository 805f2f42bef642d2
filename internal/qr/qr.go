package qr

import (
	"encoding/base64"
	"errors"

	"github.com/skip2/go-qrcode"
)

const defaultSize = 256

type Generator struct {
	size  int
	level qrcode.RecoveryLevel
}

func NewGenerator() *Generator {
	return &Generator{size: defaultSize, level: qrcode.Medium}
}

// PNG encodes text as a QR code PNG.
func (g *Generator) PNG(text string) ([]byte, error) {
	if text == "" {
		return nil, errors.New("qr: empty content")
	}
	return qrcode.Encode(text, g.level, g.size)
}

// DataURI returns the QR PNG as a data:image/png;base64 URI for inline HTML.
func (g *Generator) DataURI(text string) (string, error) {
	png, err := g.PNG(text)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

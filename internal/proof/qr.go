package proof

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const qrImageSize = 256

// RenderQR encodes the signed token into a scannable PNG, returned base64
// encoded for direct embedding in a data URL.
func RenderQR(token string) (string, error) {
	png, err := qrcode.Encode(token, qrcode.Medium, qrImageSize)
	if err != nil {
		return "", fmt.Errorf("failed to render qr image: %w", err)
	}

	return base64.StdEncoding.EncodeToString(png), nil
}

package links

import (
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	pkgerrors "github.com/almutairi-dev/tawseel-backend/pkg/errors"
)

const qrSize = 256

// QRCode renders a capability link as a PNG QR code so staff can hand an
// order to a driver without typing the URL.
func (g *Generator) QRCode(orderID uuid.UUID, action Action) ([]byte, error) {
	link, err := g.Build(orderID, action)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "build link for qr")
	}
	png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode qr")
	}
	return png, nil
}
